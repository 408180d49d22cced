// Package local writes the output document to the local filesystem.
package local

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/JakeFAU/athlete-pipeline/internal/athlete"
	"github.com/JakeFAU/athlete-pipeline/internal/storage"
)

// Config captures the parameters for the local document sink.
type Config struct {
	// Path is the file the document is written to.
	Path string `mapstructure:"path"`
}

// Sink writes documents to a single file, replacing it atomically.
type Sink struct {
	path string
}

var _ athlete.DocumentSink = (*Sink)(nil)

// New creates a local sink.
func New(cfg Config) (*Sink, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("output path is required")
	}
	abs, err := filepath.Abs(cfg.Path)
	if err != nil {
		return nil, fmt.Errorf("resolve output path: %w", err)
	}
	return &Sink{path: abs}, nil
}

// Write encodes doc, creating parent directories as needed, and returns a
// file:// URI.
func (s *Sink) Write(_ context.Context, doc athlete.OutputDocument) (string, error) {
	data, err := storage.EncodeDocument(doc)
	if err != nil {
		return "", err
	}

	// #nosec G302 -- the document is published for other readers.
	if err := WriteFileAtomic(s.path, data, 0o644); err != nil {
		return "", fmt.Errorf("write document %s: %w", s.path, err)
	}
	return fmt.Sprintf("file://%s", s.path), nil
}
