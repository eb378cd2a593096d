package models

import "time"

// PDFContentType is the only content type the archive accepts.
const PDFContentType = "application/pdf"

// Semester identifies the academic semester a document belongs to.
type Semester string

const (
	SemesterS1 Semester = "S1"
	SemesterS2 Semester = "S2"
	SemesterS3 Semester = "S3"
	SemesterS4 Semester = "S4"
	SemesterS5 Semester = "S5"
	SemesterS6 Semester = "S6"
)

// Valid reports whether the semester is one of S1..S6.
func (s Semester) Valid() bool {
	switch s {
	case SemesterS1, SemesterS2, SemesterS3, SemesterS4, SemesterS5, SemesterS6:
		return true
	}
	return false
}

// DocumentType classifies the pedagogical kind of an archived document.
type DocumentType string

const (
	TypeCours        DocumentType = "Cours"
	TypeTD           DocumentType = "TD"
	TypeTP           DocumentType = "TP"
	TypeDevoirs      DocumentType = "Devoirs"
	TypeCompositions DocumentType = "Compositions"
	TypeRattrapage   DocumentType = "Rattrapage"
)

// Valid reports whether the document type is a known kind.
func (t DocumentType) Valid() bool {
	switch t {
	case TypeCours, TypeTD, TypeTP, TypeDevoirs, TypeCompositions, TypeRattrapage:
		return true
	}
	return false
}

// Year bounds accepted at upload and metadata update time.
const (
	MinYear = 2000
	MaxYear = 2100
)

// Document represents one archived PDF: its metadata row plus the path of the
// stored binary. Content never changes after creation; filename and the
// metadata bag are the only mutable fields.
type Document struct {
	ID          string       `db:"id" json:"id"`
	Filename    string       `db:"filename" json:"filename"`
	ContentType string       `db:"content_type" json:"contentType"`
	FilePath    string       `db:"file_path" json:"-"`
	SizeBytes   int64        `db:"size_bytes" json:"sizeBytes"`
	PageCount   *int         `db:"page_count" json:"pageCount,omitempty"`
	Semester    Semester     `db:"semester" json:"semester"`
	Type        DocumentType `db:"type" json:"type"`
	Subject     string       `db:"subject" json:"subject"`
	Year        int          `db:"year" json:"year"`
	UploadedAt  time.Time    `db:"uploaded_at" json:"uploadedAt"`
}

// MetadataUpdate carries the subset of metadata fields to overwrite. Nil
// fields keep their prior value.
type MetadataUpdate struct {
	Semester *Semester
	Type     *DocumentType
	Subject  *string
	Year     *int
}

// Empty reports whether the update carries no fields at all.
func (u MetadataUpdate) Empty() bool {
	return u.Semester == nil && u.Type == nil && u.Subject == nil && u.Year == nil
}

// DocumentFilter narrows listing queries by metadata fields. Zero values
// impose no constraint.
type DocumentFilter struct {
	Semester Semester
	Type     DocumentType
	Subject  string
	Year     int
	Limit    int
	Offset   int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
}
