package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/SidA7MD/archiv-api/internal/models"
)

// DocumentRepository handles document metadata persistence.
type DocumentRepository struct {
	db *sqlx.DB
}

// NewDocumentRepository constructs the repository.
func NewDocumentRepository(db *sqlx.DB) *DocumentRepository {
	return &DocumentRepository{db: db}
}

const documentColumns = `id, filename, content_type, file_path, size_bytes, page_count,
       semester, type, subject, year, uploaded_at`

// Create stores metadata for an uploaded document.
func (r *DocumentRepository) Create(ctx context.Context, doc *models.Document) error {
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	if doc.UploadedAt.IsZero() {
		doc.UploadedAt = time.Now().UTC()
	}
	const query = `INSERT INTO documents
	(id, filename, content_type, file_path, size_bytes, page_count, semester, type, subject, year, uploaded_at)
	VALUES (:id, :filename, :content_type, :file_path, :size_bytes, :page_count, :semester, :type, :subject, :year, :uploaded_at)`
	if _, err := r.db.NamedExecContext(ctx, query, doc); err != nil {
		return fmt.Errorf("create document: %w", err)
	}
	return nil
}

// GetByID retrieves one document row.
func (r *DocumentRepository) GetByID(ctx context.Context, id string) (*models.Document, error) {
	query := `SELECT ` + documentColumns + ` FROM documents WHERE id = $1`
	var doc models.Document
	if err := r.db.GetContext(ctx, &doc, query, id); err != nil {
		return nil, err
	}
	return &doc, nil
}

// List returns documents matching every supplied filter, newest first,
// bounded by the page limit.
func (r *DocumentRepository) List(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	query, args := buildListQuery(filter)

	limit := filter.Limit
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	offset := filter.Offset
	if offset < 0 {
		offset = 0
	}
	query += fmt.Sprintf(" LIMIT %d OFFSET %d", limit, offset)

	var records []models.Document
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list documents: %w", err)
	}
	return records, nil
}

// ListAll returns every document matching the filter with no page bound.
// Exports rely on this to render the complete catalog.
func (r *DocumentRepository) ListAll(ctx context.Context, filter models.DocumentFilter) ([]models.Document, error) {
	query, args := buildListQuery(filter)

	var records []models.Document
	if err := r.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("list all documents: %w", err)
	}
	return records, nil
}

// likeEscaper neutralises ILIKE metacharacters in user-supplied subject
// filters so they match literally.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func buildListQuery(filter models.DocumentFilter) (string, []interface{}) {
	builder := strings.Builder{}
	builder.WriteString(`SELECT ` + documentColumns + ` FROM documents`)
	args := make([]interface{}, 0, 4)
	conditions := make([]string, 0, 4)

	if filter.Semester != "" {
		args = append(args, filter.Semester)
		conditions = append(conditions, fmt.Sprintf("semester = $%d", len(args)))
	}
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("type = $%d", len(args)))
	}
	if filter.Subject != "" {
		args = append(args, "%"+likeEscaper.Replace(filter.Subject)+"%")
		conditions = append(conditions, fmt.Sprintf("subject ILIKE $%d", len(args)))
	}
	if filter.Year != 0 {
		args = append(args, filter.Year)
		conditions = append(conditions, fmt.Sprintf("year = $%d", len(args)))
	}

	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	builder.WriteString(" ORDER BY uploaded_at DESC")

	return builder.String(), args
}

// Rename replaces the stored filename. Returns sql.ErrNoRows when the id is
// unknown.
func (r *DocumentRepository) Rename(ctx context.Context, id, filename string) error {
	const query = `UPDATE documents SET filename = $2 WHERE id = $1`
	res, err := r.db.ExecContext(ctx, query, id, filename)
	if err != nil {
		return fmt.Errorf("rename document: %w", err)
	}
	return requireRow(res, "rename")
}

// UpdateMetadata overwrites only the supplied metadata fields.
func (r *DocumentRepository) UpdateMetadata(ctx context.Context, id string, update models.MetadataUpdate) error {
	sets := make([]string, 0, 4)
	args := []interface{}{id}

	if update.Semester != nil {
		args = append(args, *update.Semester)
		sets = append(sets, fmt.Sprintf("semester = $%d", len(args)))
	}
	if update.Type != nil {
		args = append(args, *update.Type)
		sets = append(sets, fmt.Sprintf("type = $%d", len(args)))
	}
	if update.Subject != nil {
		args = append(args, *update.Subject)
		sets = append(sets, fmt.Sprintf("subject = $%d", len(args)))
	}
	if update.Year != nil {
		args = append(args, *update.Year)
		sets = append(sets, fmt.Sprintf("year = $%d", len(args)))
	}
	if len(sets) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE documents SET %s WHERE id = $1", strings.Join(sets, ", "))
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update document metadata: %w", err)
	}
	return requireRow(res, "update metadata")
}

// Delete removes the metadata row and reports the blob path that held the
// content. Returns sql.ErrNoRows when the id is already gone, which callers
// rely on to detect double deletes.
func (r *DocumentRepository) Delete(ctx context.Context, id string) (string, error) {
	const query = `DELETE FROM documents WHERE id = $1 RETURNING file_path`
	var filePath string
	if err := r.db.QueryRowxContext(ctx, query, id).Scan(&filePath); err != nil {
		if err == sql.ErrNoRows {
			return "", sql.ErrNoRows
		}
		return "", fmt.Errorf("delete document: %w", err)
	}
	return filePath, nil
}

func requireRow(res sql.Result, op string) error {
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("check %s rows: %w", op, err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}
