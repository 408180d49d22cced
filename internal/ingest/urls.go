package ingest

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadURLs reads one source URL per line from path, skipping blank lines.
func ReadURLs(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open url list: %w", err)
	}
	defer func() {
		_ = f.Close()
	}()
	return ParseURLs(f)
}

// ParseURLs returns the trimmed, non-blank lines of r in order.
func ParseURLs(r io.Reader) ([]string, error) {
	var urls []string
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		if line := strings.TrimSpace(sc.Text()); line != "" {
			urls = append(urls, line)
		}
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read url list: %w", err)
	}
	return urls, nil
}
