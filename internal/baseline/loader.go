// Package baseline loads the curated record set a merge starts from.
package baseline

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"

	"github.com/JakeFAU/athlete-pipeline/internal/athlete"
)

// document is the subset of a published output document that carries curated
// fields.
type document struct {
	Athletes []athlete.CuratedRecord `json:"athletes"`
}

// LoadFile reads a previously published output document from path. A missing
// file is an empty baseline. A corrupt file is an empty baseline and an error,
// which callers may treat as a warning.
func LoadFile(path string) (athlete.Baseline, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return athlete.Baseline{}, nil
	}
	if err != nil {
		return athlete.Baseline{}, fmt.Errorf("open baseline: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return Decode(f)
}

// Decode indexes the athletes of an output document by external identifier.
// Athletes without one are skipped; on duplicates the last one wins.
func Decode(r io.Reader) (athlete.Baseline, error) {
	var doc document
	if err := json.NewDecoder(r).Decode(&doc); err != nil {
		return athlete.Baseline{}, fmt.Errorf("decode baseline: %w", err)
	}
	b := make(athlete.Baseline, len(doc.Athletes))
	for _, rec := range doc.Athletes {
		if rec.ExternalID == "" {
			continue
		}
		b[rec.ExternalID] = rec
	}
	return b, nil
}
