package handler

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/SidA7MD/archiv-api/internal/dto"
	"github.com/SidA7MD/archiv-api/internal/middleware"
	"github.com/SidA7MD/archiv-api/internal/models"
	"github.com/SidA7MD/archiv-api/internal/service"
	appErrors "github.com/SidA7MD/archiv-api/pkg/errors"
	"github.com/SidA7MD/archiv-api/pkg/response"
)

type documentService interface {
	Upload(ctx context.Context, meta dto.UploadDocumentRequest, upload service.DocumentUpload) (*models.Document, error)
	List(ctx context.Context, filter dto.DocumentFilter) ([]models.Document, bool, error)
	Get(ctx context.Context, id string) (*models.Document, error)
	Download(ctx context.Context, id string) (*service.DocumentDownload, error)
	Rename(ctx context.Context, id, newFilename string) (*models.Document, error)
	UpdateMetadata(ctx context.Context, id string, req dto.UpdateMetadataRequest) (*models.Document, error)
	Delete(ctx context.Context, id string) error
}

// DocumentHandler manages the document archive HTTP endpoints.
type DocumentHandler struct {
	service        documentService
	maxUploadBytes int64
}

// multipartOverhead leaves room for boundaries and metadata fields on top of
// the file size cap.
const multipartOverhead = 64 << 10

// NewDocumentHandler constructs the handler.
func NewDocumentHandler(service documentService, maxUploadBytes int64) *DocumentHandler {
	if maxUploadBytes <= 0 {
		maxUploadBytes = 16 << 20
	}
	return &DocumentHandler{service: service, maxUploadBytes: maxUploadBytes}
}

// Upload godoc
// @Summary Upload a PDF document
// @Tags Documents
// @Accept multipart/form-data
// @Produce json
// @Param semester formData string true "Semester (S1..S6)"
// @Param type formData string true "Document type"
// @Param subject formData string true "Subject"
// @Param year formData int true "Academic year"
// @Param file formData file true "PDF content"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /files [post]
func (h *DocumentHandler) Upload(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "document service not configured"))
		return
	}
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, h.maxUploadBytes+multipartOverhead)
	var req dto.UploadDocumentRequest
	if err := c.ShouldBind(&req); err != nil {
		var maxErr *http.MaxBytesError
		if errors.As(err, &maxErr) {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("file exceeds %d bytes limit", h.maxUploadBytes)))
			return
		}
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid upload payload"))
		return
	}
	fileHeader, err := c.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	src, err := fileHeader.Open()
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to open file"))
		return
	}
	defer src.Close() //nolint:errcheck

	reader, ok := src.(io.ReadSeeker)
	if !ok {
		buf, readErr := io.ReadAll(src)
		if readErr != nil {
			response.Error(c, appErrors.Wrap(readErr, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to buffer file"))
			return
		}
		reader = bytes.NewReader(buf)
	}
	upload := service.DocumentUpload{
		Filename:    fileHeader.Filename,
		Size:        fileHeader.Size,
		ContentType: fileHeader.Header.Get("Content-Type"),
		Content:     reader,
	}
	doc, err := h.service.Upload(c.Request.Context(), req, upload)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, doc)
}

// List godoc
// @Summary List documents matching every supplied filter
// @Tags Documents
// @Produce json
// @Param semester query string false "Semester filter"
// @Param type query string false "Type filter"
// @Param subject query string false "Subject substring filter"
// @Param year query int false "Year filter"
// @Param limit query int false "Page size"
// @Param offset query int false "Page offset"
// @Success 200 {object} response.Envelope
// @Router /files [get]
func (h *DocumentHandler) List(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "document service not configured"))
		return
	}
	filter := dto.DocumentFilter{
		Semester: strings.TrimSpace(c.Query("semester")),
		Type:     strings.TrimSpace(c.Query("type")),
		Subject:  strings.TrimSpace(c.Query("subject")),
	}
	if raw := strings.TrimSpace(c.Query("year")); raw != "" {
		year, err := strconv.Atoi(raw)
		if err != nil {
			response.Error(c, appErrors.Clone(appErrors.ErrValidation, "year must be an integer"))
			return
		}
		filter.Year = year
	}
	filter.Limit = intQuery(c, "limit")
	filter.Offset = intQuery(c, "offset")

	start := time.Now()
	items, cacheHit, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, cacheHit)
	meta := middleware.ExtractMeta(c)
	if meta == nil {
		meta = map[string]interface{}{}
	}
	meta["processing_time_ms"] = time.Since(start).Milliseconds()
	response.JSON(c, http.StatusOK, items, nil, meta)
}

// Get godoc
// @Summary Get document metadata
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/{id} [get]
func (h *DocumentHandler) Get(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "document service not configured"))
		return
	}
	doc, err := h.service.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Download godoc
// @Summary Stream document content for inline viewing
// @Tags Documents
// @Produce application/pdf
// @Param id path string true "Document ID"
// @Success 200 {file} binary
// @Failure 404 {object} response.Envelope
// @Router /files/{id}/content [get]
func (h *DocumentHandler) Download(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "document service not configured"))
		return
	}
	result, err := h.service.Download(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	defer result.File.Close() //nolint:errcheck
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.DataFromReader(http.StatusOK, result.SizeBytes, result.ContentType, result.File, nil)
}

// Rename godoc
// @Summary Rename a document
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.RenameDocumentRequest true "Replacement filename"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/{id} [patch]
func (h *DocumentHandler) Rename(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "document service not configured"))
		return
	}
	var req dto.RenameDocumentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "newFilename is required"))
		return
	}
	doc, err := h.service.Rename(c.Request.Context(), c.Param("id"), req.NewFilename)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// UpdateMetadata godoc
// @Summary Update a subset of document metadata fields
// @Tags Documents
// @Accept json
// @Produce json
// @Param id path string true "Document ID"
// @Param payload body dto.UpdateMetadataRequest true "Metadata fields to overwrite"
// @Success 200 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/{id}/metadata [patch]
func (h *DocumentHandler) UpdateMetadata(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "document service not configured"))
		return
	}
	var req dto.UpdateMetadataRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid metadata payload"))
		return
	}
	doc, err := h.service.UpdateMetadata(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, doc, nil)
}

// Delete godoc
// @Summary Delete a document and its content
// @Tags Documents
// @Produce json
// @Param id path string true "Document ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /files/{id} [delete]
func (h *DocumentHandler) Delete(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "document service not configured"))
		return
	}
	id := c.Param("id")
	if err := h.service.Delete(c.Request.Context(), id); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, http.StatusOK, dto.DeleteDocumentResponse{ID: id}, nil)
}

func intQuery(c *gin.Context, name string) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return 0
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value < 0 {
		return 0
	}
	return value
}
