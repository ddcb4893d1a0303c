package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"lawdocs/internal/model"
	"lawdocs/internal/repository"
)

// DocumentPostgres is a PostgreSQL implementation of repository.DocumentRepository.
// It uses database/sql with parameterized queries and contains no business logic.
// Tags are persisted as a JSONB array; case_id/client_id use '' for "unset".
type DocumentPostgres struct {
	db *sql.DB
}

// NewDocumentPostgres creates a new DocumentPostgres repository.
func NewDocumentPostgres(db *sql.DB) *DocumentPostgres {
	return &DocumentPostgres{db: db}
}

var _ repository.DocumentRepository = (*DocumentPostgres)(nil)

const documentColumns = `id, owner_id, title, description, tags, document_type, case_id, client_id,
	original_name, stored_name, mime_type, size_bytes, created_at, updated_at`

// Create inserts a new document row and returns the stored record.
func (r *DocumentPostgres) Create(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		INSERT INTO documents (id, owner_id, title, description, tags, document_type, case_id, client_id,
			original_name, stored_name, mime_type, size_bytes, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING ` + documentColumns
	tags, err := tagsJSON(doc.Tags)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, q,
		doc.ID,
		doc.OwnerID,
		doc.Title,
		doc.Description,
		tags,
		string(doc.DocumentType),
		doc.CaseID,
		doc.ClientID,
		doc.OriginalName,
		doc.StoredName,
		doc.MimeType,
		doc.SizeBytes,
		doc.CreatedAt,
		doc.UpdatedAt,
	)
	return scanDocument(row)
}

// FindByID fetches a single document owned by ownerID.
// A row owned by someone else surfaces as sql.ErrNoRows.
func (r *DocumentPostgres) FindByID(ctx context.Context, ownerID, id string) (*model.Document, error) {
	const q = `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE id = $1 AND owner_id = $2
	`
	return scanDocument(r.db.QueryRowContext(ctx, q, id, ownerID))
}

// List returns the owner's documents matching the filter, newest first.
// Filter predicates are conjunctive.
func (r *DocumentPostgres) List(ctx context.Context, ownerID string, f repository.DocumentFilter) ([]model.Document, error) {
	q := `
		SELECT ` + documentColumns + `
		FROM documents
		WHERE owner_id = $1`
	args := []any{ownerID}

	if f.DocumentType != "" {
		args = append(args, string(f.DocumentType))
		q += fmt.Sprintf(" AND document_type = $%d", len(args))
	}
	if f.CaseID != "" {
		args = append(args, f.CaseID)
		q += fmt.Sprintf(" AND case_id = $%d", len(args))
	}
	if f.Tag != "" {
		tag, err := tagsJSON([]string{f.Tag})
		if err != nil {
			return nil, err
		}
		args = append(args, tag)
		q += fmt.Sprintf(" AND tags @> $%d::jsonb", len(args))
	}
	q += " ORDER BY created_at DESC, id DESC"

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := make([]model.Document, 0)
	for rows.Next() {
		d, err := scanDocumentRow(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *d)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

// Update overwrites the mutable columns of the owner's row and returns the result.
func (r *DocumentPostgres) Update(ctx context.Context, doc *model.Document) (*model.Document, error) {
	const q = `
		UPDATE documents
		SET title = $1, description = $2, tags = $3, document_type = $4, case_id = $5, client_id = $6,
			original_name = $7, stored_name = $8, mime_type = $9, size_bytes = $10, updated_at = $11
		WHERE id = $12 AND owner_id = $13
		RETURNING ` + documentColumns
	tags, err := tagsJSON(doc.Tags)
	if err != nil {
		return nil, err
	}
	row := r.db.QueryRowContext(ctx, q,
		doc.Title,
		doc.Description,
		tags,
		string(doc.DocumentType),
		doc.CaseID,
		doc.ClientID,
		doc.OriginalName,
		doc.StoredName,
		doc.MimeType,
		doc.SizeBytes,
		doc.UpdatedAt,
		doc.ID,
		doc.OwnerID,
	)
	return scanDocument(row)
}

// Delete removes the owner's document. It does not return an error if the row
// does not exist; row removal is checked upstream via FindByID.
func (r *DocumentPostgres) Delete(ctx context.Context, ownerID, id string) error {
	const q = `DELETE FROM documents WHERE id = $1 AND owner_id = $2`
	res, err := r.db.ExecContext(ctx, q, id, ownerID)
	if err != nil {
		return err
	}
	_, _ = res.RowsAffected()
	return nil
}

// StoredNames returns every referenced stored_name across all owners.
func (r *DocumentPostgres) StoredNames(ctx context.Context) ([]string, error) {
	const q = `SELECT stored_name FROM documents`
	rows, err := r.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var n string
		if err := rows.Scan(&n); err != nil {
			return nil, err
		}
		names = append(names, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return names, nil
}

// scanner covers both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanDocument(row scanner) (*model.Document, error) {
	return scanDocumentRow(row)
}

func scanDocumentRow(s scanner) (*model.Document, error) {
	var (
		d       model.Document
		docType string
		rawTags []byte
	)
	if err := s.Scan(
		&d.ID,
		&d.OwnerID,
		&d.Title,
		&d.Description,
		&rawTags,
		&docType,
		&d.CaseID,
		&d.ClientID,
		&d.OriginalName,
		&d.StoredName,
		&d.MimeType,
		&d.SizeBytes,
		&d.CreatedAt,
		&d.UpdatedAt,
	); err != nil {
		return nil, err
	}
	d.DocumentType = model.DocumentType(docType)
	d.Tags = []string{}
	if len(rawTags) > 0 {
		if err := json.Unmarshal(rawTags, &d.Tags); err != nil {
			return nil, fmt.Errorf("decode tags: %w", err)
		}
	}
	return &d, nil
}

func tagsJSON(tags []string) ([]byte, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return nil, fmt.Errorf("encode tags: %w", err)
	}
	return b, nil
}
