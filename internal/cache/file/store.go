// Package file implements athlete.CacheStore on a single JSON document
// mapping source URL to {timestamp, data}.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/JakeFAU/athlete-pipeline/internal/athlete"
	"github.com/JakeFAU/athlete-pipeline/internal/clock"
	"github.com/JakeFAU/athlete-pipeline/internal/storage/local"
)

// Config captures the parameters for the JSON file cache.
type Config struct {
	Path string `mapstructure:"path"`
}

// Timestamps written by older tooling carry no zone; they are read as local
// time.
var legacyLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999",
}

type fileEntry struct {
	Timestamp string                   `json:"timestamp"`
	Data      athlete.RawAthleteRecord `json:"data"`
}

// Store is a file-backed cache. The file is read once by New and rewritten in
// full after every Put.
type Store struct {
	mu      sync.Mutex
	path    string
	entries map[string]athlete.CacheEntry
	clock   athlete.Clock
	logger  *zap.Logger
}

var _ athlete.CacheStore = (*Store)(nil)

// New loads the cache at cfg.Path. A missing or unreadable document yields an
// empty cache.
func New(cfg Config, clk athlete.Clock, logger *zap.Logger) (*Store, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, fmt.Errorf("cache path is required")
	}
	if clk == nil {
		clk = clock.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &Store{
		path:    cfg.Path,
		entries: make(map[string]athlete.CacheEntry),
		clock:   clk,
		logger:  logger,
	}
	s.load()
	return s, nil
}

func (s *Store) load() {
	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return
	}
	if err != nil {
		s.logger.Warn("cache unreadable, starting empty", zap.String("path", s.path), zap.Error(err))
		return
	}

	var doc map[string]fileEntry
	if err := json.Unmarshal(raw, &doc); err != nil {
		s.logger.Warn("cache corrupt, starting empty", zap.String("path", s.path), zap.Error(err))
		return
	}
	for url, fe := range doc {
		capturedAt, err := parseTimestamp(fe.Timestamp)
		if err != nil {
			s.logger.Warn("dropping cache entry", zap.String("url", url), zap.Error(err))
			continue
		}
		s.entries[url] = athlete.CacheEntry{URL: url, CapturedAt: capturedAt, Payload: fe.Data}
	}
	s.logger.Debug("cache loaded", zap.String("path", s.path), zap.Int("entries", len(s.entries)))
}

// Get returns the entry stored for url.
func (s *Store) Get(_ context.Context, url string) (athlete.CacheEntry, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry, ok := s.entries[url]
	return entry, ok, nil
}

// Put replaces the entry for url, stamped with the current time, and rewrites
// the backing file.
func (s *Store) Put(_ context.Context, url string, payload athlete.RawAthleteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[url] = athlete.CacheEntry{URL: url, CapturedAt: s.clock.Now(), Payload: payload}
	return s.persist()
}

// Len reports the number of cached entries.
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

func (s *Store) persist() error {
	doc := make(map[string]fileEntry, len(s.entries))
	for url, e := range s.entries {
		doc[url] = fileEntry{Timestamp: e.CapturedAt.UTC().Format(time.RFC3339Nano), Data: e.Payload}
	}
	raw, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("encode cache: %w", err)
	}
	if err := local.WriteFileAtomic(s.path, raw, 0o600); err != nil {
		return fmt.Errorf("write cache %s: %w", s.path, err)
	}
	return nil
}

func parseTimestamp(v string) (time.Time, error) {
	v = strings.TrimSpace(v)
	if t, err := time.Parse(time.RFC3339Nano, v); err == nil {
		return t, nil
	}
	for _, layout := range legacyLayouts {
		if t, err := time.ParseInLocation(layout, v, time.Local); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised timestamp %q", v)
}
