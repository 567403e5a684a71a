package overrides

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/nerrad567/gray-logic-entity-manager/internal/infrastructure/fileutil"
)

// File permissions for the override document.
const filePermissions = 0o644

// FileBackend stores the override document as a JSON file.
type FileBackend struct {
	path string
}

// NewFileBackend creates a backend for the file at path.
// The file and its directory are created on first save.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the file location.
func (b *FileBackend) Path() string {
	return b.path
}

// Load reads the file. A missing file yields ErrNoDocument.
func (b *FileBackend) Load(_ context.Context) ([]byte, error) {
	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, ErrNoDocument
	}
	if err != nil {
		return nil, fmt.Errorf("reading %s: %w", b.path, err)
	}
	return data, nil
}

// Save replaces the file atomically.
func (b *FileBackend) Save(_ context.Context, data []byte) error {
	return fileutil.WriteAtomic(b.path, data, filePermissions)
}
