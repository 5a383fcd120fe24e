package storage

import (
	"strings"

	"github.com/google/uuid"
)

// DefaultKeyPrefix is the folder uploads are written under.
const DefaultKeyPrefix = "fnol_uploads"

// NewObjectKey builds a collision-free key of the form <prefix>/<uuid>_<name>.
func NewObjectKey(prefix, filename string) string {
	prefix = strings.Trim(prefix, "/")
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	return prefix + "/" + uuid.New().String() + "_" + SanitizeFilename(filename)
}

// SanitizeFilename reduces a client-supplied name to [A-Za-z0-9._-].
// Directory components are dropped and leading dots removed; an empty
// result becomes "file".
func SanitizeFilename(name string) string {
	if i := strings.LastIndexAny(name, `/\`); i >= 0 {
		name = name[i+1:]
	}
	var b strings.Builder
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '-', r == '_':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	out := strings.TrimLeft(b.String(), ".")
	out = strings.Trim(out, "_")
	if out == "" {
		return "file"
	}
	return out
}
