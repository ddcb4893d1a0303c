package storage

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewStoredName(t *testing.T) {
	t.Run("preserves extension", func(t *testing.T) {
		name := NewStoredName("Contract Draft.PDF")
		assert.True(t, strings.HasSuffix(name, ".pdf"), "got %q", name)
		assert.True(t, validName(name))
	})

	t.Run("no extension", func(t *testing.T) {
		name := NewStoredName("README")
		assert.NotContains(t, name, ".")
		assert.True(t, validName(name))
	})

	t.Run("never emits separators from hostile input", func(t *testing.T) {
		for _, in := range []string{"../../etc/passwd", `..\..\boot.ini`, "a/b/c.j s", "x." + strings.Repeat("/", 3)} {
			name := NewStoredName(in)
			assert.True(t, validName(name), "input %q produced %q", in, name)
		}
	})

	t.Run("unique across many allocations", func(t *testing.T) {
		seen := make(map[string]struct{}, 1000)
		for i := 0; i < 1000; i++ {
			name := NewStoredName("scan.png")
			_, dup := seen[name]
			assert.False(t, dup, "duplicate name %q", name)
			seen[name] = struct{}{}
		}
	})
}
