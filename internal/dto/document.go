package dto

import "github.com/SidA7MD/archiv-api/internal/models"

// UploadDocumentRequest contains the metadata bag submitted alongside a file upload.
type UploadDocumentRequest struct {
	Semester models.Semester     `form:"semester" json:"semester"`
	Type     models.DocumentType `form:"type" json:"type"`
	Subject  string              `form:"subject" json:"subject"`
	Year     int                 `form:"year" json:"year"`
}

// RenameDocumentRequest carries the replacement filename.
type RenameDocumentRequest struct {
	NewFilename string `json:"newFilename" binding:"required"`
}

// UpdateMetadataRequest carries a partial metadata bag; absent fields are
// left untouched.
type UpdateMetadataRequest struct {
	Semester *models.Semester     `json:"semester,omitempty"`
	Type     *models.DocumentType `json:"type,omitempty"`
	Subject  *string              `json:"subject,omitempty"`
	Year     *int                 `json:"year,omitempty"`
}

// DocumentFilter captures list query parameters.
type DocumentFilter struct {
	Semester string
	Type     string
	Subject  string
	Year     int
	Limit    int
	Offset   int
}

// UploadDocumentResponse acknowledges a completed upload.
type UploadDocumentResponse struct {
	ID       string `json:"id"`
	Filename string `json:"filename"`
}

// DeleteDocumentResponse acknowledges a completed delete.
type DeleteDocumentResponse struct {
	ID string `json:"id"`
}
