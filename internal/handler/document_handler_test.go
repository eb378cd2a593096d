package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"path/filepath"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/SidA7MD/archiv-api/internal/dto"
	"github.com/SidA7MD/archiv-api/internal/models"
	"github.com/SidA7MD/archiv-api/internal/service"
	appErrors "github.com/SidA7MD/archiv-api/pkg/errors"
)

type documentServiceMock struct {
	uploadResp   *models.Document
	uploadErr    error
	listResp     []models.Document
	listErr      error
	getResp      *models.Document
	getErr       error
	downloadResp *service.DocumentDownload
	downloadErr  error
	renameResp   *models.Document
	renameErr    error
	updateResp   *models.Document
	updateErr    error
	deleteErr    error

	uploadCalled bool
	lastMeta     dto.UploadDocumentRequest
	lastUpload   service.DocumentUpload
	lastFilter   dto.DocumentFilter
	lastID       string
	lastRename   string
	lastUpdate   dto.UpdateMetadataRequest
}

func (m *documentServiceMock) Upload(ctx context.Context, meta dto.UploadDocumentRequest, upload service.DocumentUpload) (*models.Document, error) {
	m.uploadCalled = true
	m.lastMeta = meta
	m.lastUpload = upload
	return m.uploadResp, m.uploadErr
}

func (m *documentServiceMock) List(ctx context.Context, filter dto.DocumentFilter) ([]models.Document, bool, error) {
	m.lastFilter = filter
	return m.listResp, false, m.listErr
}

func (m *documentServiceMock) Get(ctx context.Context, id string) (*models.Document, error) {
	m.lastID = id
	return m.getResp, m.getErr
}

func (m *documentServiceMock) Download(ctx context.Context, id string) (*service.DocumentDownload, error) {
	m.lastID = id
	return m.downloadResp, m.downloadErr
}

func (m *documentServiceMock) Rename(ctx context.Context, id, newFilename string) (*models.Document, error) {
	m.lastID = id
	m.lastRename = newFilename
	return m.renameResp, m.renameErr
}

func (m *documentServiceMock) UpdateMetadata(ctx context.Context, id string, req dto.UpdateMetadataRequest) (*models.Document, error) {
	m.lastID = id
	m.lastUpdate = req
	return m.updateResp, m.updateErr
}

func (m *documentServiceMock) Delete(ctx context.Context, id string) error {
	m.lastID = id
	return m.deleteErr
}

func multipartUpload(t *testing.T, fields map[string]string, filename string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	header := textproto.MIMEHeader{}
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	header.Set("Content-Type", models.PDFContentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return body, writer.FormDataContentType()
}

func TestDocumentHandlerUpload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &documentServiceMock{
		uploadResp: &models.Document{ID: "doc-1", Filename: "cours.pdf"},
	}
	handler := NewDocumentHandler(mockSvc, 0)

	fields := map[string]string{"semester": "S1", "type": "Cours", "subject": "Math", "year": "2024"}
	body, contentType := multipartUpload(t, fields, "cours.pdf", []byte("%PDF-1.4"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/files", body)
	req.Header.Set("Content-Type", contentType)
	c.Request = req

	handler.Upload(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.True(t, mockSvc.uploadCalled)
	assert.Equal(t, models.SemesterS1, mockSvc.lastMeta.Semester)
	assert.Equal(t, models.TypeCours, mockSvc.lastMeta.Type)
	assert.Equal(t, "Math", mockSvc.lastMeta.Subject)
	assert.Equal(t, 2024, mockSvc.lastMeta.Year)
	assert.Equal(t, "cours.pdf", mockSvc.lastUpload.Filename)
	assert.Equal(t, models.PDFContentType, mockSvc.lastUpload.ContentType)
	assert.Equal(t, int64(8), mockSvc.lastUpload.Size)
}

func TestDocumentHandlerUploadMissingFile(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &documentServiceMock{}
	handler := NewDocumentHandler(mockSvc, 0)

	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	require.NoError(t, writer.WriteField("semester", "S1"))
	require.NoError(t, writer.Close())

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/files", body)
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.Request = req

	handler.Upload(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.uploadCalled)
}

func TestDocumentHandlerUploadRejectsOversizeBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &documentServiceMock{}
	handler := NewDocumentHandler(mockSvc, 16)

	fields := map[string]string{"semester": "S1", "type": "Cours", "subject": "Math", "year": "2024"}
	body, contentType := multipartUpload(t, fields, "huge.pdf", bytes.Repeat([]byte("x"), 256<<10))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/files", body)
	req.Header.Set("Content-Type", contentType)
	c.Request = req

	handler.Upload(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.False(t, mockSvc.uploadCalled, "the body must be rejected before reaching the service")
}

func TestDocumentHandlerUploadValidationError(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &documentServiceMock{
		uploadErr: appErrors.Clone(appErrors.ErrValidation, "only PDF files are allowed"),
	}
	handler := NewDocumentHandler(mockSvc, 0)

	body, contentType := multipartUpload(t, map[string]string{"semester": "S1", "type": "Cours", "subject": "Math", "year": "2024"}, "notes.txt", []byte("text"))

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPost, "/files", body)
	req.Header.Set("Content-Type", contentType)
	c.Request = req

	handler.Upload(c)
	require.Equal(t, http.StatusBadRequest, w.Code)

	var envelope struct {
		Error *appErrors.Error `json:"error"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	require.NotNil(t, envelope.Error)
	assert.Equal(t, "only PDF files are allowed", envelope.Error.Message)
}

func TestDocumentHandlerListParsesFilters(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &documentServiceMock{listResp: []models.Document{{ID: "doc-1"}}}
	handler := NewDocumentHandler(mockSvc, 0)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/files?semester=S3&type=TD&subject=Analyse&year=2023&limit=10&offset=20", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "S3", mockSvc.lastFilter.Semester)
	assert.Equal(t, "TD", mockSvc.lastFilter.Type)
	assert.Equal(t, "Analyse", mockSvc.lastFilter.Subject)
	assert.Equal(t, 2023, mockSvc.lastFilter.Year)
	assert.Equal(t, 10, mockSvc.lastFilter.Limit)
	assert.Equal(t, 20, mockSvc.lastFilter.Offset)
}

func TestDocumentHandlerListRejectsBadYear(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewDocumentHandler(&documentServiceMock{}, 0)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/files?year=abc", nil)
	c.Request = req

	handler.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestDocumentHandlerGetNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &documentServiceMock{getErr: appErrors.ErrNotFound}
	handler := NewDocumentHandler(mockSvc, 0)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/files/unknown", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "unknown"}}

	handler.Get(c)
	require.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "unknown", mockSvc.lastID)
}

func TestDocumentHandlerDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)

	payload := []byte("%PDF-1.4 content bytes")
	path := filepath.Join(t.TempDir(), "doc.pdf")
	require.NoError(t, os.WriteFile(path, payload, 0o600))
	file, err := os.Open(path)
	require.NoError(t, err)

	mockSvc := &documentServiceMock{
		downloadResp: &service.DocumentDownload{
			File:        file,
			Filename:    "cours.pdf",
			ContentType: models.PDFContentType,
			SizeBytes:   int64(len(payload)),
		},
	}
	handler := NewDocumentHandler(mockSvc, 0)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodGet, "/files/doc-1/content", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "doc-1"}}

	handler.Download(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, `inline; filename="cours.pdf"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, models.PDFContentType, w.Header().Get("Content-Type"))
	assert.Equal(t, payload, w.Body.Bytes())
}

func TestDocumentHandlerRename(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &documentServiceMock{
		renameResp: &models.Document{ID: "doc-1", Filename: "renamed.pdf"},
	}
	handler := NewDocumentHandler(mockSvc, 0)

	payload, _ := json.Marshal(dto.RenameDocumentRequest{NewFilename: "renamed.pdf"})
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPatch, "/files/doc-1", bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "doc-1"}}

	handler.Rename(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "doc-1", mockSvc.lastID)
	assert.Equal(t, "renamed.pdf", mockSvc.lastRename)
}

func TestDocumentHandlerRenameInvalidBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &documentServiceMock{}
	handler := NewDocumentHandler(mockSvc, 0)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPatch, "/files/doc-1", bytes.NewBufferString(`{}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "doc-1"}}

	handler.Rename(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, mockSvc.lastRename)
}

func TestDocumentHandlerUpdateMetadata(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &documentServiceMock{
		updateResp: &models.Document{ID: "doc-1", Semester: models.SemesterS3},
	}
	handler := NewDocumentHandler(mockSvc, 0)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodPatch, "/files/doc-1/metadata", bytes.NewBufferString(`{"semester":"S3"}`))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "doc-1"}}

	handler.UpdateMetadata(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mockSvc.lastUpdate.Semester)
	assert.Equal(t, models.SemesterS3, *mockSvc.lastUpdate.Semester)
	assert.Nil(t, mockSvc.lastUpdate.Year)
}

func TestDocumentHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &documentServiceMock{}
	handler := NewDocumentHandler(mockSvc, 0)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/files/doc-1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "doc-1"}}

	handler.Delete(c)
	require.Equal(t, http.StatusOK, w.Code)

	var envelope struct {
		Data dto.DeleteDocumentResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &envelope))
	assert.Equal(t, "doc-1", envelope.Data.ID)
}

func TestDocumentHandlerDeleteNotFound(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mockSvc := &documentServiceMock{deleteErr: appErrors.ErrNotFound}
	handler := NewDocumentHandler(mockSvc, 0)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(http.MethodDelete, "/files/doc-1", nil)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: "doc-1"}}

	handler.Delete(c)
	require.Equal(t, http.StatusNotFound, w.Code)
}
