package service

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/SidA7MD/archiv-api/internal/models"
	appErrors "github.com/SidA7MD/archiv-api/pkg/errors"
	"github.com/SidA7MD/archiv-api/pkg/export"
)

type exportLister interface {
	ListAll(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error)
}

// ExportResult bundles rendered export bytes with response metadata.
type ExportResult struct {
	Content     []byte
	Filename    string
	ContentType string
}

// ExportService renders the document catalog as CSV or PDF.
type ExportService struct {
	repo   exportLister
	csv    *export.CSVExporter
	pdf    *export.PDFExporter
	logger *zap.Logger
}

// NewExportService constructs the export service.
func NewExportService(repo exportLister, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		repo:   repo,
		csv:    export.NewCSVExporter(),
		pdf:    export.NewPDFExporter(),
		logger: logger,
	}
}

var exportHeaders = []string{"Filename", "Semester", "Type", "Subject", "Year", "Pages", "Size", "Uploaded"}

// Export renders the (filtered) catalog in the requested format. Format
// defaults to csv.
func (s *ExportService) Export(ctx context.Context, filter models.DocumentFilter, format string) (*ExportResult, error) {
	if format == "" {
		format = "csv"
	}
	if format != "csv" && format != "pdf" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "format must be csv or pdf")
	}

	docs, err := s.repo.ListAll(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list documents for export")
	}

	dataset := export.Dataset{Headers: exportHeaders, Rows: make([]map[string]string, 0, len(docs))}
	for _, doc := range docs {
		pages := ""
		if doc.PageCount != nil {
			pages = strconv.Itoa(*doc.PageCount)
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"Filename": doc.Filename,
			"Semester": string(doc.Semester),
			"Type":     string(doc.Type),
			"Subject":  doc.Subject,
			"Year":     strconv.Itoa(doc.Year),
			"Pages":    pages,
			"Size":     strconv.FormatInt(doc.SizeBytes, 10),
			"Uploaded": doc.UploadedAt.UTC().Format(time.RFC3339),
		})
	}

	stamp := time.Now().UTC().Format("20060102")
	switch format {
	case "pdf":
		content, err := s.pdf.Render(dataset, "Document catalog")
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render pdf export")
		}
		return &ExportResult{
			Content:     content,
			Filename:    fmt.Sprintf("documents-%s.pdf", stamp),
			ContentType: models.PDFContentType,
		}, nil
	default:
		content, err := s.csv.Render(dataset)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render csv export")
		}
		return &ExportResult{
			Content:     content,
			Filename:    fmt.Sprintf("documents-%s.csv", stamp),
			ContentType: "text/csv",
		}, nil
	}
}
