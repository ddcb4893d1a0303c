package storage

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLocal(t *testing.T) *Local {
	t.Helper()
	l, err := NewLocal(t.TempDir())
	require.NoError(t, err)
	return l
}

func TestLocal_WriteOpenRoundTrip(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	content := "signed retainer agreement"
	err := l.Write(ctx, "doc.pdf", strings.NewReader(content), int64(len(content)), "application/pdf")
	require.NoError(t, err)

	rc, size, err := l.Open(ctx, "doc.pdf")
	require.NoError(t, err)
	defer rc.Close()

	assert.Equal(t, int64(len(content)), size)
	got, err := io.ReadAll(rc)
	require.NoError(t, err)
	assert.Equal(t, content, string(got))
}

func TestLocal_WriteRejectsExistingName(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	require.NoError(t, l.Write(ctx, "dup.txt", strings.NewReader("one"), 3, "text/plain"))

	err := l.Write(ctx, "dup.txt", strings.NewReader("two"), 3, "text/plain")
	assert.ErrorIs(t, err, ErrExists)

	// Original content untouched.
	rc, _, err := l.Open(ctx, "dup.txt")
	require.NoError(t, err)
	defer rc.Close()
	got, _ := io.ReadAll(rc)
	assert.Equal(t, "one", string(got))
}

func TestLocal_WriteRejectsPathSeparators(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	for _, name := range []string{"../escape.txt", "a/b.txt", `a\b.txt`, "", ".", ".."} {
		err := l.Write(ctx, name, strings.NewReader("x"), 1, "text/plain")
		assert.ErrorIs(t, err, ErrInvalidName, "name %q", name)
	}
}

func TestLocal_WriteShortRead(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	err := l.Write(ctx, "short.txt", strings.NewReader("abc"), 10, "text/plain")
	require.Error(t, err)

	// Neither the file nor its temp sibling may remain.
	_, _, err = l.Open(ctx, "short.txt")
	assert.ErrorIs(t, err, ErrNotExist)
	entries, err := l.Entries(ctx)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestLocal_OpenMissing(t *testing.T) {
	l := newTestLocal(t)

	_, _, err := l.Open(context.Background(), "nope.txt")
	assert.ErrorIs(t, err, ErrNotExist)

	var serr *Error
	require.ErrorAs(t, err, &serr)
	assert.Equal(t, "nope.txt", serr.Name)
	assert.Equal(t, "open", serr.Op)
}

func TestLocal_RemoveIdempotent(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	require.NoError(t, l.Write(ctx, "gone.txt", strings.NewReader("x"), 1, "text/plain"))

	assert.NoError(t, l.Remove(ctx, "gone.txt"))
	assert.NoError(t, l.Remove(ctx, "gone.txt"))
	assert.NoError(t, l.Remove(ctx, "never-existed.txt"))
}

func TestLocal_Entries(t *testing.T) {
	l := newTestLocal(t)
	ctx := context.Background()

	require.NoError(t, l.Write(ctx, "a.txt", strings.NewReader("a"), 1, "text/plain"))
	require.NoError(t, l.Write(ctx, "b.txt", strings.NewReader("b"), 1, "text/plain"))

	// Leftover temp files from interrupted writes must not be listed.
	require.NoError(t, os.WriteFile(filepath.Join(l.root, "c.txt.tmp"), []byte("c"), 0o640))

	entries, err := l.Entries(ctx)
	require.NoError(t, err)

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name)
		assert.False(t, e.ModTime.IsZero())
	}
	assert.ElementsMatch(t, []string{"a.txt", "b.txt"}, names)
}
