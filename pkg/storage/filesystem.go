package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// LocalStorage persists rendered reports on disk under a base directory.
type LocalStorage struct {
	baseDir string
}

// NewLocalStorage ensures the base directory exists and returns a handle.
func NewLocalStorage(baseDir string) (*LocalStorage, error) {
	if baseDir == "" {
		baseDir = "./reportes"
	}
	if err := os.MkdirAll(baseDir, 0o755); err != nil {
		return nil, fmt.Errorf("create reports directory: %w", err)
	}
	return &LocalStorage{baseDir: baseDir}, nil
}

// Save writes data to filename under the base dir and returns the relative name.
func (s *LocalStorage) Save(filename string, data []byte) (string, error) {
	clean := filepath.Base(filename)
	if clean == "." || clean == string(filepath.Separator) {
		return "", fmt.Errorf("invalid report filename %q", filename)
	}
	if err := os.WriteFile(s.Path(clean), data, 0o644); err != nil {
		return "", fmt.Errorf("write report file: %w", err)
	}
	return clean, nil
}

// Path returns where filename lives on disk.
func (s *LocalStorage) Path(filename string) string {
	return filepath.Join(s.baseDir, filename)
}
