// Package gcs writes the output document to Google Cloud Storage.
package gcs

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"cloud.google.com/go/storage"

	"github.com/JakeFAU/athlete-pipeline/internal/athlete"
	docstorage "github.com/JakeFAU/athlete-pipeline/internal/storage"
)

// Config captures the destination object.
type Config struct {
	Bucket string `mapstructure:"gcs_bucket"`
	Object string `mapstructure:"gcs_object"`
}

// Sink uploads documents to a configured GCS object.
type Sink struct {
	client *storage.Client
	bucket string
	object string
}

var _ athlete.DocumentSink = (*Sink)(nil)

// New creates a GCS-backed document sink.
func New(client *storage.Client, cfg Config) (*Sink, error) {
	if client == nil {
		return nil, fmt.Errorf("storage client is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket name is required")
	}
	if strings.TrimSpace(cfg.Object) == "" {
		return nil, fmt.Errorf("object name is required")
	}
	return &Sink{client: client, bucket: cfg.Bucket, object: cfg.Object}, nil
}

// Write uploads doc and returns a gs:// URI.
func (s *Sink) Write(ctx context.Context, doc athlete.OutputDocument) (string, error) {
	data, err := docstorage.EncodeDocument(doc)
	if err != nil {
		return "", err
	}

	writer := s.client.Bucket(s.bucket).Object(s.object).NewWriter(ctx)
	writer.ContentType = docstorage.ContentType
	// Single-request upload; documents are small.
	writer.ChunkSize = 0
	if _, err := io.Copy(writer, bytes.NewReader(data)); err != nil {
		closeErr := writer.Close()
		if closeErr != nil {
			return "", fmt.Errorf("copy object: %w (close writer: %v)", err, closeErr)
		}
		return "", fmt.Errorf("copy object: %w", err)
	}
	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close writer: %w", err)
	}
	return fmt.Sprintf("gs://%s/%s", s.bucket, s.object), nil
}
