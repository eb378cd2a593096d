package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	"go.uber.org/zap"

	"github.com/SidA7MD/archiv-api/internal/dto"
	"github.com/SidA7MD/archiv-api/internal/models"
	appErrors "github.com/SidA7MD/archiv-api/pkg/errors"
	"github.com/SidA7MD/archiv-api/pkg/storage"
)

type documentStore interface {
	Create(ctx context.Context, doc *models.Document) error
	GetByID(ctx context.Context, id string) (*models.Document, error)
	List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error)
	Rename(ctx context.Context, id, filename string) error
	UpdateMetadata(ctx context.Context, id string, update models.MetadataUpdate) error
	Delete(ctx context.Context, id string) (string, error)
}

type contentStorage interface {
	SaveStream(relPath string, r io.Reader) (int64, error)
	Open(relPath string) (*os.File, error)
	Delete(relPath string) error
}

// DocumentUpload carries upload metadata and the content stream.
type DocumentUpload struct {
	Filename    string
	Size        int64
	ContentType string
	Content     io.ReadSeeker
}

// DocumentDownload bundles a content reader with response metadata.
type DocumentDownload struct {
	File        *os.File
	Filename    string
	ContentType string
	SizeBytes   int64
}

// DocumentServiceConfig holds validation parameters.
type DocumentServiceConfig struct {
	MaxFileSize int64
}

const listCachePattern = "documents:list:*"

// DocumentService validates, persists, retrieves and mutates document
// records, translating store outcomes into the archive error taxonomy.
type DocumentService struct {
	repo    documentStore
	storage contentStorage
	cache   *CacheService
	metrics *MetricsService
	logger  *zap.Logger
	cfg     DocumentServiceConfig
}

// NewDocumentService constructs the service with defaults.
func NewDocumentService(repo documentStore, contentStore contentStorage, cache *CacheService, metrics *MetricsService, logger *zap.Logger, cfg DocumentServiceConfig) *DocumentService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxFileSize <= 0 {
		cfg.MaxFileSize = 16 * 1024 * 1024
	}
	return &DocumentService{
		repo:    repo,
		storage: contentStore,
		cache:   cache,
		metrics: metrics,
		logger:  logger,
		cfg:     cfg,
	}
}

// Upload persists the content blob and metadata row for a new document.
// Validation happens entirely before the first store write; a failed metadata
// insert removes the already written blob so no ghost records survive.
func (s *DocumentService) Upload(ctx context.Context, meta dto.UploadDocumentRequest, upload DocumentUpload) (*models.Document, error) {
	if err := validateMetadataBag(meta); err != nil {
		return nil, err
	}
	if upload.Content == nil || upload.Size <= 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "file is required")
	}
	if upload.Size > s.cfg.MaxFileSize {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", s.cfg.MaxFileSize))
	}
	if !strings.EqualFold(strings.TrimSpace(upload.ContentType), models.PDFContentType) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "only PDF files are allowed")
	}
	filename := strings.TrimSpace(upload.Filename)
	if filename == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "filename is required")
	}

	pageCount := s.extractPageCount(upload.Content)

	id := uuid.NewString()
	relPath := storage.ContentPath(id)
	if _, err := upload.Content.Seek(0, io.SeekStart); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset upload stream")
	}
	written, err := s.storage.SaveStream(relPath, upload.Content)
	if err != nil {
		_ = s.storage.Delete(relPath)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to persist document content")
	}

	doc := &models.Document{
		ID:          id,
		Filename:    filename,
		ContentType: models.PDFContentType,
		FilePath:    relPath,
		SizeBytes:   written,
		PageCount:   pageCount,
		Semester:    meta.Semester,
		Type:        meta.Type,
		Subject:     strings.TrimSpace(meta.Subject),
		Year:        meta.Year,
	}
	if err := s.repo.Create(ctx, doc); err != nil {
		_ = s.storage.Delete(relPath)
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create document record")
	}

	s.metrics.ObserveUpload(written)
	s.invalidateListCache(ctx)
	return doc, nil
}

// List returns documents matching every supplied filter. The boolean reports
// whether the result came from cache.
func (s *DocumentService) List(ctx context.Context, filter dto.DocumentFilter) ([]models.Document, bool, error) {
	repoFilter := models.DocumentFilter{
		Semester: models.Semester(strings.ToUpper(strings.TrimSpace(filter.Semester))),
		Type:     models.DocumentType(strings.TrimSpace(filter.Type)),
		Subject:  strings.TrimSpace(filter.Subject),
		Year:     filter.Year,
		Limit:    filter.Limit,
		Offset:   filter.Offset,
	}

	cacheKey := listCacheKey(repoFilter)
	if s.cache.Enabled() {
		var cached []models.Document
		if hit, _ := s.cache.Get(ctx, cacheKey, &cached); hit {
			return cached, true, nil
		}
	}

	start := time.Now()
	items, err := s.repo.List(ctx, repoFilter)
	s.metrics.ObserveDBQuery("documents_list", time.Since(start))
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents")
	}
	if items == nil {
		items = []models.Document{}
	}

	if s.cache.Enabled() {
		_ = s.cache.Set(ctx, cacheKey, items, 0)
	}
	return items, false, nil
}

// Get returns a single record's metadata.
func (s *DocumentService) Get(ctx context.Context, id string) (*models.Document, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.ErrNotFound
	}
	doc, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load document")
	}
	return doc, nil
}

// Download locates the record and opens its content for streaming. Not-found
// is reported before any bytes are read.
func (s *DocumentService) Download(ctx context.Context, id string) (*DocumentDownload, error) {
	doc, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	file, err := s.storage.Open(doc.FilePath)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open document content")
	}
	info, err := file.Stat()
	if err != nil {
		file.Close() //nolint:errcheck
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to stat document content")
	}
	return &DocumentDownload{
		File:        file,
		Filename:    doc.Filename,
		ContentType: doc.ContentType,
		SizeBytes:   info.Size(),
	}, nil
}

// Rename updates only the stored filename. Renaming to the current name is a
// harmless idempotent assignment.
func (s *DocumentService) Rename(ctx context.Context, id, newFilename string) (*models.Document, error) {
	filename := strings.TrimSpace(newFilename)
	if filename == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "newFilename must not be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.ErrNotFound
	}
	if err := s.repo.Rename(ctx, id, filename); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to rename document")
	}
	s.invalidateListCache(ctx)
	return s.Get(ctx, id)
}

// UpdateMetadata overwrites only the supplied metadata fields. An empty
// update set is rejected before any store mutation.
func (s *DocumentService) UpdateMetadata(ctx context.Context, id string, req dto.UpdateMetadataRequest) (*models.Document, error) {
	update, err := buildMetadataUpdate(req)
	if err != nil {
		return nil, err
	}
	if update.Empty() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "no metadata fields supplied")
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, appErrors.ErrNotFound
	}
	if err := s.repo.UpdateMetadata(ctx, id, update); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update document metadata")
	}
	s.invalidateListCache(ctx)
	return s.Get(ctx, id)
}

// Delete removes the metadata row and then the content blob. A second delete
// of the same id reports not-found.
func (s *DocumentService) Delete(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return appErrors.ErrNotFound
	}
	relPath, err := s.repo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete document")
	}
	if err := s.storage.Delete(relPath); err != nil {
		// Metadata is already gone; the blob is unreachable either way.
		s.logger.Warn("failed to remove document content", zap.String("id", id), zap.Error(err))
	}
	s.invalidateListCache(ctx)
	return nil
}

// extractPageCount parses the payload as a PDF when possible. A payload that
// merely declares the PDF content type is still accepted, just without a page
// count.
func (s *DocumentService) extractPageCount(content io.ReadSeeker) *int {
	if content == nil {
		return nil
	}
	if _, err := content.Seek(0, io.SeekStart); err != nil {
		return nil
	}
	count, err := api.PageCount(content, model.NewDefaultConfiguration())
	if err != nil || count <= 0 {
		return nil
	}
	return &count
}

func (s *DocumentService) invalidateListCache(ctx context.Context) {
	if err := s.cache.Invalidate(ctx, listCachePattern); err != nil {
		s.logger.Warn("failed to invalidate list cache", zap.Error(err))
	}
}

func validateMetadataBag(meta dto.UploadDocumentRequest) error {
	if !meta.Semester.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "semester must be one of S1..S6")
	}
	if !meta.Type.Valid() {
		return appErrors.Clone(appErrors.ErrValidation, "type must be one of Cours, TD, TP, Devoirs, Compositions, Rattrapage")
	}
	if strings.TrimSpace(meta.Subject) == "" {
		return appErrors.Clone(appErrors.ErrValidation, "subject is required")
	}
	if meta.Year < models.MinYear || meta.Year > models.MaxYear {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("year must be between %d and %d", models.MinYear, models.MaxYear))
	}
	return nil
}

func buildMetadataUpdate(req dto.UpdateMetadataRequest) (models.MetadataUpdate, error) {
	var update models.MetadataUpdate
	if req.Semester != nil {
		if !req.Semester.Valid() {
			return update, appErrors.Clone(appErrors.ErrValidation, "semester must be one of S1..S6")
		}
		update.Semester = req.Semester
	}
	if req.Type != nil {
		if !req.Type.Valid() {
			return update, appErrors.Clone(appErrors.ErrValidation, "type must be one of Cours, TD, TP, Devoirs, Compositions, Rattrapage")
		}
		update.Type = req.Type
	}
	if req.Subject != nil {
		subject := strings.TrimSpace(*req.Subject)
		if subject == "" {
			return update, appErrors.Clone(appErrors.ErrValidation, "subject must not be empty")
		}
		update.Subject = &subject
	}
	if req.Year != nil {
		if *req.Year < models.MinYear || *req.Year > models.MaxYear {
			return update, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("year must be between %d and %d", models.MinYear, models.MaxYear))
		}
		update.Year = req.Year
	}
	return update, nil
}

func listCacheKey(filter models.DocumentFilter) string {
	return fmt.Sprintf("documents:list:%s:%s:%s:%d:%d:%d",
		filter.Semester, filter.Type, strings.ToLower(filter.Subject), filter.Year, filter.Limit, filter.Offset)
}
