// Package sqlite implements athlete.CacheStore on an embedded SQLite database.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/JakeFAU/athlete-pipeline/internal/athlete"
	"github.com/JakeFAU/athlete-pipeline/internal/clock"
)

const schema = `
CREATE TABLE IF NOT EXISTS cache_entries (
	url         TEXT PRIMARY KEY,
	captured_at TEXT NOT NULL,
	payload     TEXT NOT NULL
)`

// Config captures the parameters for the SQLite cache.
type Config struct {
	Path string `mapstructure:"path"`
}

// Store is a SQLite-backed cache.
type Store struct {
	db     *sql.DB
	clock  athlete.Clock
	logger *zap.Logger
}

var _ athlete.CacheStore = (*Store)(nil)

// New opens (or creates) the database at cfg.Path. A corrupt database is
// renamed to cfg.Path+".corrupt" and replaced by an empty one.
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
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o750); err != nil {
		return nil, fmt.Errorf("create cache directory: %w", err)
	}

	db, err := open(cfg.Path + "?_pragma=busy_timeout(5000)")
	if err != nil {
		// An unreadable database is an empty cache: move it aside and start over.
		aside := cfg.Path + ".corrupt"
		logger.Warn("cache database unusable, starting empty",
			zap.String("path", cfg.Path), zap.String("moved_to", aside), zap.Error(err))
		if rerr := os.Rename(cfg.Path, aside); rerr != nil && !errors.Is(rerr, os.ErrNotExist) {
			logger.Warn("failed to move cache database aside", zap.String("path", cfg.Path), zap.Error(rerr))
		}
		db, err = open(cfg.Path + "?_pragma=busy_timeout(5000)")
	}
	if err != nil {
		logger.Warn("cache database not recreated, using an in-memory cache",
			zap.String("path", cfg.Path), zap.Error(err))
		db, err = open(":memory:")
		if err != nil {
			return nil, err
		}
		// Each connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}
	return &Store{db: db, clock: clk, logger: logger}, nil
}

func open(dsn string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create cache schema: %w", err)
	}
	return db, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Get returns the entry stored for url. Rows whose payload or timestamp no
// longer decode are reported as a miss.
func (s *Store) Get(ctx context.Context, url string) (athlete.CacheEntry, bool, error) {
	var capturedAt, payload string
	err := s.db.QueryRowContext(ctx,
		`SELECT captured_at, payload FROM cache_entries WHERE url = ?`, url,
	).Scan(&capturedAt, &payload)
	if errors.Is(err, sql.ErrNoRows) {
		return athlete.CacheEntry{}, false, nil
	}
	if err != nil {
		return athlete.CacheEntry{}, false, fmt.Errorf("query cache entry: %w", err)
	}

	at, err := time.Parse(time.RFC3339Nano, capturedAt)
	if err != nil {
		s.logger.Warn("ignoring cache row with bad timestamp", zap.String("url", url), zap.Error(err))
		return athlete.CacheEntry{}, false, nil
	}
	var rec athlete.RawAthleteRecord
	if err := json.Unmarshal([]byte(payload), &rec); err != nil {
		s.logger.Warn("ignoring corrupt cache row", zap.String("url", url), zap.Error(err))
		return athlete.CacheEntry{}, false, nil
	}
	return athlete.CacheEntry{URL: url, CapturedAt: at, Payload: rec}, true, nil
}

// Put upserts the entry for url, stamped with the current time.
func (s *Store) Put(ctx context.Context, url string, payload athlete.RawAthleteRecord) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode cache payload: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO cache_entries (url, captured_at, payload) VALUES (?, ?, ?)
		ON CONFLICT(url) DO UPDATE SET captured_at = excluded.captured_at, payload = excluded.payload`,
		url, s.clock.Now().UTC().Format(time.RFC3339Nano), string(raw),
	)
	if err != nil {
		return fmt.Errorf("upsert cache entry: %w", err)
	}
	return nil
}
