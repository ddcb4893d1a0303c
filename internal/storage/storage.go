// Package storage contains the file store abstraction and its backends.
// Nothing outside this package touches stored bytes directly; pipelines
// address files solely by their stored name.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"
)

var (
	// ErrNotExist is returned by Open when no file exists under the name.
	ErrNotExist = errors.New("file does not exist")
	// ErrExists is returned by Write when the name is already in use.
	// Callers re-derive a fresh name and retry.
	ErrExists = errors.New("file already exists")
	// ErrInvalidName is returned for names that could escape the store.
	ErrInvalidName = errors.New("invalid stored name")
)

// Error wraps a backend failure with operation and name context so the
// write path is never logged without the path that failed.
type Error struct {
	Op   string
	Name string
	Err  error
}

func (e *Error) Error() string {
	return fmt.Sprintf("storage %s %q: %v", e.Op, e.Name, e.Err)
}

func (e *Error) Unwrap() error { return e.Err }

// Entry describes one stored file. Used by the reconciliation sweep.
type Entry struct {
	Name    string
	ModTime time.Time
}

// BlobStore is the file store contract shared by the local filesystem
// and S3-compatible backends.
type BlobStore interface {
	// Write creates the file under storedName from r. Size is the expected
	// byte count (-1 if unknown). Returns ErrExists if the name is taken and
	// ErrInvalidName if the name contains path separators.
	Write(ctx context.Context, storedName string, r io.Reader, size int64, contentType string) error
	// Open returns the file content as a stream along with its size.
	// Returns ErrNotExist when there is no file under the name.
	Open(ctx context.Context, storedName string) (io.ReadCloser, int64, error)
	// Remove deletes the file. Removing a name that does not exist is a
	// no-op, not an error: deletion must be idempotent so pipelines can
	// call it defensively.
	Remove(ctx context.Context, storedName string) error
	// Entries lists every stored file. Used by the reconciliation sweep.
	Entries(ctx context.Context) ([]Entry, error)
}

// validName rejects anything that is not a bare file name. Stored names are
// generated by NewStoredName and never contain separators; a separator here
// means a caller is trying to address outside the store.
func validName(name string) bool {
	if name == "" || name == "." || name == ".." {
		return false
	}
	return !strings.ContainsAny(name, `/\`)
}
