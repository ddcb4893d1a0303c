package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/google/uuid"

	"lawdocs/internal/model"
	"lawdocs/internal/repository"
	"lawdocs/internal/storage"
)

var (
	ErrIDRequired = errors.New("id is required")
	// ErrNotFound covers both unknown IDs and documents owned by someone
	// else; the two are deliberately indistinguishable.
	ErrNotFound = errors.New("document not found")
	// ErrFileMissing means the metadata row exists but its file does not.
	// That is a data-integrity anomaly, surfaced distinctly so callers can
	// report "file not found on server storage" without ambiguity.
	ErrFileMissing  = errors.New("file not found on server storage")
	ErrFileRequired = errors.New("file is required")
	ErrFileTooLarge = errors.New("file exceeds the maximum upload size")
)

// IsValidationInput reports whether err stems from bad caller input rather
// than a backend failure. Handlers map these to 400.
func IsValidationInput(err error) bool {
	var verrs validation.Errors
	if errors.As(err, &verrs) {
		return true
	}
	return errors.Is(err, ErrIDRequired) || errors.Is(err, ErrFileRequired) || errors.Is(err, ErrFileTooLarge)
}

// FileUpload is a decoded incoming file. The service never sees multipart
// forms or any other HTTP-framework detail; handlers decode and hand over a
// plain stream plus what was observed about it.
type FileUpload struct {
	Reader       io.Reader
	OriginalName string
	MimeType     string
	SizeBytes    int64
}

// UploadInput carries everything needed to create a document.
type UploadInput struct {
	OwnerID      string
	File         FileUpload
	Title        string
	DocumentType model.DocumentType
	CaseID       string
	ClientID     string
	Description  string
	Tags         []string
}

// UpdateInput is a partial update. Nil pointers mean "field not sent, leave
// untouched" — presence semantics, not falsy-means-unset. A non-nil File
// triggers a file replacement.
type UpdateInput struct {
	Title        *string
	Description  *string
	DocumentType *model.DocumentType
	CaseID       *string
	ClientID     *string
	Tags         *[]string
	File         *FileUpload
}

// DocumentService defines the use cases for handling documents. All
// operations are scoped to the owner passed in; cross-owner access reads as
// not found.
type DocumentService interface {
	// Upload stores the file first, then the metadata row, and removes the
	// file again if the row cannot be saved.
	Upload(ctx context.Context, in UploadInput) (*model.Document, error)

	// List returns the owner's documents matching the filter.
	List(ctx context.Context, ownerID string, f repository.DocumentFilter) ([]model.Document, error)

	// Get returns a single document by its ID.
	Get(ctx context.Context, ownerID, id string) (*model.Document, error)

	// Update applies a partial metadata update and, when a new file is
	// supplied, replaces the stored file (write-new, commit, delete-old).
	Update(ctx context.Context, ownerID, id string, in UpdateInput) (*model.Document, error)

	// Download returns the document's content stream together with its
	// metadata. The caller must close the stream.
	Download(ctx context.Context, ownerID, id string) (io.ReadCloser, *model.Document, error)

	// Delete removes the metadata row, then best-effort deletes the file.
	Delete(ctx context.Context, ownerID, id string) error
}

// documentService is a concrete implementation of DocumentService.
type documentService struct {
	store          storage.BlobStore
	repo           repository.DocumentRepository
	maxUploadBytes int64
	logger         *slog.Logger
}

// NewDocumentService constructs a new DocumentService. maxUploadBytes <= 0
// disables the size gate (handlers usually enforce their own as well).
func NewDocumentService(store storage.BlobStore, repo repository.DocumentRepository, maxUploadBytes int64) DocumentService {
	return &documentService{
		store:          store,
		repo:           repo,
		maxUploadBytes: maxUploadBytes,
		logger:         slog.Default(),
	}
}

// validateDocument holds the one rule set used by both upload and update:
// non-empty title, known type, and case documents must reference a case.
func validateDocument(d *model.Document) error {
	return validation.ValidateStruct(d,
		validation.Field(&d.Title, validation.Required),
		validation.Field(&d.DocumentType,
			validation.Required,
			validation.In(model.DocumentTypeStandalone, model.DocumentTypeCase)),
		validation.Field(&d.CaseID,
			validation.Required.When(d.DocumentType == model.DocumentTypeCase).
				Error("case documents require a case_id")),
	)
}

func (s *documentService) Upload(ctx context.Context, in UploadInput) (*model.Document, error) {
	if in.File.Reader == nil {
		return nil, ErrFileRequired
	}
	if s.maxUploadBytes > 0 && in.File.SizeBytes > s.maxUploadBytes {
		return nil, ErrFileTooLarge
	}

	now := time.Now().UTC()
	doc := &model.Document{
		ID:           uuid.NewString(),
		OwnerID:      in.OwnerID,
		Title:        in.Title,
		Description:  in.Description,
		Tags:         in.Tags,
		DocumentType: in.DocumentType,
		CaseID:       in.CaseID,
		ClientID:     in.ClientID,
		OriginalName: in.File.OriginalName,
		MimeType:     in.File.MimeType,
		SizeBytes:    in.File.SizeBytes,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// Reject bad metadata before a single byte reaches the store.
	if err := validateDocument(doc); err != nil {
		return nil, err
	}

	storedName, err := s.writeFile(ctx, in.File)
	if err != nil {
		return nil, err
	}
	doc.StoredName = storedName

	stored, err := s.repo.Create(ctx, doc)
	if err != nil {
		// Compensating action: the row never landed, so the file must go.
		// A failed cleanup leaves a harmless orphan and is logged; the
		// caller still learns about the save failure, not cleanup noise.
		if delErr := s.store.Remove(ctx, storedName); delErr != nil {
			s.logger.Error("upload rollback failed, orphan file left behind",
				"stored_name", storedName, "error", delErr)
		}
		return nil, fmt.Errorf("save document metadata: %w", err)
	}
	return stored, nil
}

// writeFile allocates a stored name and writes the stream under it.
// Both backends check name availability before consuming the reader, so a
// collision can be retried with a re-derived name and an untouched stream.
func (s *documentService) writeFile(ctx context.Context, f FileUpload) (string, error) {
	for attempt := 0; ; attempt++ {
		storedName := storage.NewStoredName(f.OriginalName)
		err := s.store.Write(ctx, storedName, f.Reader, f.SizeBytes, f.MimeType)
		if err == nil {
			return storedName, nil
		}
		if errors.Is(err, storage.ErrExists) && attempt < 2 {
			continue
		}
		return "", fmt.Errorf("write file: %w", err)
	}
}

func (s *documentService) List(ctx context.Context, ownerID string, f repository.DocumentFilter) ([]model.Document, error) {
	if f.DocumentType != "" && !f.DocumentType.Valid() {
		return nil, validation.Errors{"document_type": fmt.Errorf("must be one of %q or %q",
			model.DocumentTypeStandalone, model.DocumentTypeCase)}
	}
	return s.repo.List(ctx, ownerID, f)
}

func (s *documentService) Get(ctx context.Context, ownerID, id string) (*model.Document, error) {
	if id == "" {
		return nil, ErrIDRequired
	}
	doc, err := s.repo.FindByID(ctx, ownerID, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return doc, nil
}

func (s *documentService) Update(ctx context.Context, ownerID, id string, in UpdateInput) (*model.Document, error) {
	current, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, err
	}

	merged := *current
	if in.Title != nil {
		merged.Title = *in.Title
	}
	if in.Description != nil {
		merged.Description = *in.Description
	}
	if in.DocumentType != nil {
		merged.DocumentType = *in.DocumentType
	}
	if in.CaseID != nil {
		merged.CaseID = *in.CaseID
	}
	if in.ClientID != nil {
		merged.ClientID = *in.ClientID
	}
	if in.Tags != nil {
		merged.Tags = *in.Tags
	}
	if err := validateDocument(&merged); err != nil {
		return nil, err
	}

	// Replacement file: written under a fresh name before anything else is
	// touched. Deleting the old file first would open a window where the row
	// points at nothing if a later step fails.
	if in.File != nil {
		if in.File.Reader == nil {
			return nil, ErrFileRequired
		}
		if s.maxUploadBytes > 0 && in.File.SizeBytes > s.maxUploadBytes {
			return nil, ErrFileTooLarge
		}
		newName, err := s.writeFile(ctx, *in.File)
		if err != nil {
			return nil, err
		}
		merged.StoredName = newName
		merged.OriginalName = in.File.OriginalName
		merged.MimeType = in.File.MimeType
		merged.SizeBytes = in.File.SizeBytes
	}
	merged.UpdatedAt = time.Now().UTC()

	updated, err := s.repo.Update(ctx, &merged)
	if err != nil {
		// Compensating action: the row still points at the old file, so only
		// the freshly written file needs to go.
		if in.File != nil {
			if delErr := s.store.Remove(ctx, merged.StoredName); delErr != nil {
				s.logger.Error("replace rollback failed, orphan file left behind",
					"stored_name", merged.StoredName, "error", delErr)
			}
		}
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update document metadata: %w", err)
	}

	// Only after the row commits does the old file become unreferenced.
	// Remove is idempotent; a failure here leaves an orphan, not a dangling
	// reference, so it is logged rather than returned.
	if in.File != nil && current.StoredName != "" && current.StoredName != updated.StoredName {
		if delErr := s.store.Remove(ctx, current.StoredName); delErr != nil {
			s.logger.Warn("old file cleanup failed after replacement",
				"stored_name", current.StoredName, "error", delErr)
		}
	}
	return updated, nil
}

func (s *documentService) Download(ctx context.Context, ownerID, id string) (io.ReadCloser, *model.Document, error) {
	doc, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return nil, nil, err
	}
	rc, _, err := s.store.Open(ctx, doc.StoredName)
	if err != nil {
		if errors.Is(err, storage.ErrNotExist) {
			s.logger.Error("document row references a missing file",
				"document_id", doc.ID, "stored_name", doc.StoredName)
			return nil, nil, ErrFileMissing
		}
		return nil, nil, fmt.Errorf("open file: %w", err)
	}
	return rc, doc, nil
}

func (s *documentService) Delete(ctx context.Context, ownerID, id string) error {
	doc, err := s.Get(ctx, ownerID, id)
	if err != nil {
		return err
	}
	// Row first: once it is gone the document no longer exists as far as any
	// reader is concerned. File removal is best-effort cleanup after that.
	if err := s.repo.Delete(ctx, ownerID, id); err != nil {
		return fmt.Errorf("delete document metadata: %w", err)
	}
	if delErr := s.store.Remove(ctx, doc.StoredName); delErr != nil {
		s.logger.Warn("file cleanup failed after row deletion",
			"stored_name", doc.StoredName, "error", delErr)
	}
	return nil
}
