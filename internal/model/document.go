package model

import "time"

// DocumentType classifies a document's case association.
type DocumentType string

const (
	// DocumentTypeStandalone is a document with no case association.
	DocumentTypeStandalone DocumentType = "standalone"
	// DocumentTypeCase is a document attached to a case; CaseID must be set.
	DocumentTypeCase DocumentType = "case"
)

// Valid reports whether t is one of the known document types.
func (t DocumentType) Valid() bool {
	return t == DocumentTypeStandalone || t == DocumentTypeCase
}

// Document represents a stored file belonging to an owner.
// This is a pure domain model with no database-specific dependencies or tags.
// It can be used across layers (HTTP, service, storage) without coupling to persistence.
//
// OriginalName is display-only; all storage addressing goes through StoredName,
// which is generated at upload time and unique across the store.
type Document struct {
	ID           string       `json:"id"`
	OwnerID      string       `json:"owner_id"`
	Title        string       `json:"title"`
	Description  string       `json:"description"`
	Tags         []string     `json:"tags"`
	DocumentType DocumentType `json:"document_type"`
	CaseID       string       `json:"case_id,omitempty"`
	ClientID     string       `json:"client_id,omitempty"`
	OriginalName string       `json:"original_name"`
	StoredName   string       `json:"stored_name"`
	MimeType     string       `json:"mime_type"`
	SizeBytes    int64        `json:"size_bytes"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
}
