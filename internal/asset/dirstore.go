package asset

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/google/uuid"
)

// DirStore persists generated assets as files under a directory and hands
// back path references relative to the document root.
type DirStore struct {
	dir string
}

// NewDirStore returns a store writing into dir, creating it if needed.
func NewDirStore(dir string) (*DirStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating asset dir: %w", err)
	}
	return &DirStore{dir: dir}, nil
}

// Save writes the payload to a uniquely named file and returns its path.
func (s *DirStore) Save(_ context.Context, data []byte, contentType string) (string, error) {
	name := uuid.NewString() + extensionFor(contentType)
	path := filepath.Join(s.dir, name)
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("writing asset %s: %w", name, err)
	}
	return path, nil
}

func extensionFor(contentType string) string {
	switch contentType {
	case "image/png":
		return ".png"
	case "image/jpeg":
		return ".jpg"
	case "image/gif":
		return ".gif"
	case "image/webp":
		return ".webp"
	default:
		return ".bin"
	}
}
