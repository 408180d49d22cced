package ingest

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/JakeFAU/athlete-pipeline/internal/athlete"
)

// FileReporter writes the failed URLs of a run to a plain text file:
//
//	failed_count: <n>
//	generated_at: <RFC 3339 timestamp>
//	<url>
//	...
type FileReporter struct {
	path string
}

var _ athlete.FailureReporter = (*FileReporter)(nil)

// NewFileReporter returns a reporter writing to path.
func NewFileReporter(path string) (*FileReporter, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("failure report path is required")
	}
	return &FileReporter{path: path}, nil
}

// Report overwrites the report file with the given failures.
func (r *FileReporter) Report(_ context.Context, failed []string, generatedAt time.Time) error {
	var b strings.Builder
	fmt.Fprintf(&b, "failed_count: %d\n", len(failed))
	fmt.Fprintf(&b, "generated_at: %s\n", generatedAt.Format(time.RFC3339))
	for _, url := range failed {
		b.WriteString(url)
		b.WriteByte('\n')
	}

	if err := os.MkdirAll(filepath.Dir(r.path), 0o750); err != nil {
		return fmt.Errorf("create report directory: %w", err)
	}
	if err := os.WriteFile(r.path, []byte(b.String()), 0o600); err != nil {
		return fmt.Errorf("write failure report: %w", err)
	}
	return nil
}
