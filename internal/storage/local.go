package storage

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// Local stores files on the local filesystem directly under a root directory
// passed in at construction. Files are flat: storedName is the file name, no
// subdirectories. Writes go through a temp file and an atomic rename so a
// crashed upload never leaves a half-written file under a referenced name.
type Local struct {
	root string
}

var _ BlobStore = (*Local)(nil)

// NewLocal creates a Local store rooted at root, creating the directory if needed.
func NewLocal(root string) (*Local, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create storage root %q: %w", root, err)
	}
	absRoot, err := filepath.Abs(root)
	if err != nil {
		return nil, fmt.Errorf("resolve storage root: %w", err)
	}
	return &Local{root: absRoot}, nil
}

// path resolves storedName to an absolute path under root after rejecting
// anything that is not a bare file name.
func (l *Local) path(op, storedName string) (string, error) {
	if !validName(storedName) {
		return "", &Error{Op: op, Name: storedName, Err: ErrInvalidName}
	}
	return filepath.Join(l.root, storedName), nil
}

// Write streams r to storedName using a temp file + atomic rename.
// An existing file under the name is never overwritten; the caller gets
// ErrExists and re-derives. The stat-then-rename gap is covered by the
// randomness of generated names, not by locking.
func (l *Local) Write(ctx context.Context, storedName string, r io.Reader, size int64, contentType string) error {
	_ = contentType // captured in metadata, not needed by the filesystem

	dest, err := l.path("write", storedName)
	if err != nil {
		return err
	}
	if _, err := os.Stat(dest); err == nil {
		return &Error{Op: "write", Name: storedName, Err: ErrExists}
	} else if !os.IsNotExist(err) {
		return &Error{Op: "write", Name: storedName, Err: err}
	}

	tmp := dest + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0o640)
	if err != nil {
		return &Error{Op: "write", Name: storedName, Err: err}
	}

	n, werr := io.Copy(f, r)
	cerr := f.Close()

	if werr != nil {
		os.Remove(tmp)
		return &Error{Op: "write", Name: storedName, Err: werr}
	}
	if cerr != nil {
		os.Remove(tmp)
		return &Error{Op: "write", Name: storedName, Err: cerr}
	}
	if size >= 0 && n != size {
		os.Remove(tmp)
		return &Error{Op: "write", Name: storedName, Err: fmt.Errorf("short write: got %d bytes, want %d", n, size)}
	}

	if err := os.Rename(tmp, dest); err != nil {
		os.Remove(tmp)
		return &Error{Op: "write", Name: storedName, Err: err}
	}
	return nil
}

// Open returns the file for sequential reading. Caller must close it.
func (l *Local) Open(ctx context.Context, storedName string) (io.ReadCloser, int64, error) {
	abs, err := l.path("open", storedName)
	if err != nil {
		return nil, 0, err
	}
	f, err := os.Open(abs)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, 0, &Error{Op: "open", Name: storedName, Err: ErrNotExist}
		}
		return nil, 0, &Error{Op: "open", Name: storedName, Err: err}
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, &Error{Op: "open", Name: storedName, Err: err}
	}
	return f, info.Size(), nil
}

// Remove deletes the file. Silently succeeds if it does not exist.
func (l *Local) Remove(ctx context.Context, storedName string) error {
	abs, err := l.path("remove", storedName)
	if err != nil {
		return err
	}
	if err := os.Remove(abs); err != nil && !os.IsNotExist(err) {
		return &Error{Op: "remove", Name: storedName, Err: err}
	}
	return nil
}

// Entries lists stored files, skipping directories and in-flight temp files.
func (l *Local) Entries(ctx context.Context) ([]Entry, error) {
	dirents, err := os.ReadDir(l.root)
	if err != nil {
		return nil, fmt.Errorf("read storage root: %w", err)
	}
	entries := make([]Entry, 0, len(dirents))
	for _, de := range dirents {
		if de.IsDir() || filepath.Ext(de.Name()) == ".tmp" {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		entries = append(entries, Entry{Name: de.Name(), ModTime: info.ModTime()})
	}
	return entries, nil
}
