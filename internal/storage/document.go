// Package storage holds the encoding shared by the output document sinks.
// Backends live in the local and gcs subpackages.
package storage

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/JakeFAU/athlete-pipeline/internal/athlete"
)

// ContentType is the media type of an encoded document.
const ContentType = "application/json"

// EncodeDocument renders doc as indented JSON. Non-ASCII text such as Korean
// names is written as is.
func EncodeDocument(doc athlete.OutputDocument) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return buf.Bytes(), nil
}
