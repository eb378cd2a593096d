package handler

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/SidA7MD/archiv-api/internal/models"
	"github.com/SidA7MD/archiv-api/internal/service"
	appErrors "github.com/SidA7MD/archiv-api/pkg/errors"
	"github.com/SidA7MD/archiv-api/pkg/response"
)

type exportService interface {
	Export(ctx context.Context, filter models.DocumentFilter, format string) (*service.ExportResult, error)
}

// ExportHandler serves catalog exports.
type ExportHandler struct {
	service exportService
}

// NewExportHandler constructs the handler.
func NewExportHandler(service exportService) *ExportHandler {
	return &ExportHandler{service: service}
}

// Export godoc
// @Summary Export the document catalog as CSV or PDF
// @Tags Documents
// @Produce text/csv,application/pdf
// @Param format query string false "Export format (csv or pdf, default csv)"
// @Param semester query string false "Semester filter"
// @Param type query string false "Type filter"
// @Param subject query string false "Subject substring filter"
// @Param year query int false "Year filter"
// @Success 200 {file} binary
// @Failure 400 {object} response.Envelope
// @Router /files/export [get]
func (h *ExportHandler) Export(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "export service not configured"))
		return
	}
	filter := models.DocumentFilter{
		Semester: models.Semester(strings.ToUpper(strings.TrimSpace(c.Query("semester")))),
		Type:     models.DocumentType(strings.TrimSpace(c.Query("type"))),
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

	result, err := h.service.Export(c.Request.Context(), filter, strings.TrimSpace(c.Query("format")))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", result.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, result.ContentType, result.Content)
}
