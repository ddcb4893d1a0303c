package storage

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// NewStoredName generates a collision-resistant on-disk name for an upload.
// Format: <unixNano>_<16 hex chars><ext>. The timestamp keeps names roughly
// sortable by upload time; the crypto/rand suffix makes collisions negligible
// without any lock serializing concurrent uploads. The original extension is
// preserved for content-type hinting; everything else about the original name
// is display-only and never reaches the disk.
func NewStoredName(originalName string) string {
	var buf [8]byte
	_, _ = rand.Read(buf[:])
	return fmt.Sprintf("%d_%s%s", time.Now().UnixNano(), hex.EncodeToString(buf[:]), safeExt(originalName))
}

// safeExt extracts a lowercase extension, dropping anything that is not a
// plain dot-prefixed alphanumeric suffix. Uploader-controlled input must not
// smuggle separators or oddities into the stored name.
func safeExt(originalName string) string {
	ext := strings.ToLower(filepath.Ext(filepath.Base(originalName)))
	if ext == "" || ext == "." {
		return ""
	}
	for _, r := range ext[1:] {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return ""
		}
	}
	return ext
}
