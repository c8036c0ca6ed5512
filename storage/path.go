package storage

import (
	"slices"
	"strings"

	"github.com/google/uuid"
)

// NewObjectPath returns <folder>/<generated-name><ext> for a fresh upload.
func NewObjectPath(folder, ext string) string {
	if ext != "" && !strings.HasPrefix(ext, ".") {
		ext = "." + ext
	}
	return strings.Trim(folder, "/") + "/" + uuid.NewString() + strings.ToLower(ext)
}

// ValidFolder reports whether folder is one of the allowed category folders.
func ValidFolder(folder string, allowed []string) bool {
	folder = strings.Trim(folder, "/")
	return folder != "" && slices.Contains(allowed, folder)
}
