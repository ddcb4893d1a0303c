package repository

import (
	"context"

	"lawdocs/internal/model"
)

// DocumentFilter holds optional list predicates. Set fields are combined
// conjunctively; zero values mean "no constraint".
type DocumentFilter struct {
	DocumentType model.DocumentType
	CaseID       string
	Tag          string
}

// DocumentRepository defines data access for documents using SQL queries only.
// No business logic and no filesystem knowledge here — strictly persistence.
//
// Every read, update, and delete is scoped by owner: a row owned by someone
// else behaves exactly like a row that does not exist (sql.ErrNoRows), so
// existence never leaks to unauthorized callers.
type DocumentRepository interface {
	// Create inserts a new document record and returns the stored row.
	Create(ctx context.Context, doc *model.Document) (*model.Document, error)

	// FindByID returns the document with the given ID owned by ownerID.
	FindByID(ctx context.Context, ownerID, id string) (*model.Document, error)

	// List returns the owner's documents matching the filter, newest first.
	List(ctx context.Context, ownerID string, f DocumentFilter) ([]model.Document, error)

	// Update overwrites the row identified by doc.ID and doc.OwnerID and
	// returns the stored result. Returns sql.ErrNoRows if the row is gone.
	Update(ctx context.Context, doc *model.Document) (*model.Document, error)

	// Delete removes the owner's document. It returns nil if the row was
	// deleted or did not exist.
	Delete(ctx context.Context, ownerID, id string) error

	// StoredNames returns every stored_name currently referenced by any row.
	// Feeds the orphan-file reconciliation sweep.
	StoredNames(ctx context.Context) ([]string, error)
}
