package athlete

import (
	"context"
	"time"
)

// CacheStore persists extraction snapshots keyed by source URL.
type CacheStore interface {
	Get(ctx context.Context, url string) (CacheEntry, bool, error)
	Put(ctx context.Context, url string, payload RawAthleteRecord) error
}

// Fetcher retrieves the raw page content for a URL.
type Fetcher interface {
	Fetch(ctx context.Context, url string) ([]byte, error)
}

// Extractor turns raw page content into a RawAthleteRecord.
type Extractor interface {
	Extract(body []byte, sourceURL string) (RawAthleteRecord, error)
}

// DocumentSink persists the final output document and returns its URI.
type DocumentSink interface {
	Write(ctx context.Context, doc OutputDocument) (string, error)
}

// FailureReporter records the URLs that could not be ingested.
type FailureReporter interface {
	Report(ctx context.Context, failed []string, generatedAt time.Time) error
}

// RunRecorder stores run summaries (run history).
type RunRecorder interface {
	RecordRun(ctx context.Context, summary RunSummary) error
}

// Publisher pushes run notifications to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload any) (string, error)
}

// Clock returns the current time (useful for testing).
type Clock interface {
	Now() time.Time
}

// IDGenerator produces run IDs.
type IDGenerator interface {
	NewID() (string, error)
}
