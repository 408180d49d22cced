package athlete

import "time"

// RawResult is one competition row as it was read from a profile page.
// Optional values are nil (or empty for text) when the page did not carry them.
type RawResult struct {
	Date       string   `json:"date,omitempty"`
	Place      string   `json:"place"`
	Category   string   `json:"category"`
	Discipline string   `json:"discipline"`
	Nation     string   `json:"nation"`
	Rank       *int     `json:"rank"`
	RankStatus string   `json:"rank_status,omitempty"`
	FISPoints  *float64 `json:"fis_points"`
	CupPoints  *float64 `json:"cup_points"`
}

// Eligible reports whether the row qualifies for the recent-results window:
// it needs a positive numeric rank or a non-finish status code.
func (r RawResult) Eligible() bool {
	return r.HasRank() || r.RankStatus != ""
}

// HasRank reports whether the row carries a positive numeric rank.
func (r RawResult) HasRank() bool {
	return r.Rank != nil && *r.Rank > 0
}

// RawAthleteRecord is the payload produced by one successful extraction.
type RawAthleteRecord struct {
	SourceURL  string      `json:"fis_url"`
	ExternalID string      `json:"fis_code"`
	SportCode  string      `json:"sport_code"`
	Name       string      `json:"name_en"`
	BirthDate  string      `json:"birth_date,omitempty"`
	Results    []RawResult `json:"results"`
}

// DefaultCacheTTL is the staleness threshold for cached extractions.
const DefaultCacheTTL = 24 * time.Hour

// CacheEntry is a timestamped snapshot of a previous extraction.
type CacheEntry struct {
	URL        string
	CapturedAt time.Time
	Payload    RawAthleteRecord
}

// IsFresh reports whether the entry can be served instead of refetching.
// Incomplete payloads (no results or no birth date) are never fresh, so a
// partial extraction is retried on the next run regardless of its age.
func (e CacheEntry) IsFresh(now time.Time, ttl time.Duration) bool {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if now.Sub(e.CapturedAt) >= ttl {
		return false
	}
	return len(e.Payload.Results) > 0 && e.Payload.BirthDate != ""
}

// Medals holds medal counts by category.
type Medals struct {
	Gold   int `json:"gold"`
	Silver int `json:"silver"`
	Bronze int `json:"bronze"`
}

// CuratedRecord carries the manually maintained fields of a previously
// published athlete that must survive a merge.
type CuratedRecord struct {
	ID           string  `json:"id,omitempty"`
	ExternalID   string  `json:"fis_code"`
	LocalName    string  `json:"name_ko,omitempty"`
	SourceName   string  `json:"name_en,omitempty"`
	BirthDate    string  `json:"birth_date,omitempty"`
	Team         string  `json:"team,omitempty"`
	DisplayLabel string  `json:"sport_display,omitempty"`
	Medals       *Medals `json:"medals,omitempty"`
}

// Baseline indexes curated records by external identifier.
type Baseline map[string]CuratedRecord

// ProcessedResult is one entry of an athlete's recent-results window.
type ProcessedResult struct {
	Date       string   `json:"date"`
	Event      string   `json:"event"`
	Rank       *int     `json:"rank"`
	RankStatus *string  `json:"rank_status"`
	Points     float64  `json:"points"`
	Place      string   `json:"place"`
	Category   string   `json:"category"`
	Discipline string   `json:"discipline"`
	CupPoints  *float64 `json:"cup_points"`
}

// ProcessedAthleteRecord is the display-ready record emitted per athlete.
type ProcessedAthleteRecord struct {
	ID            string            `json:"id"`
	LocalName     string            `json:"name_ko"`
	SourceName    string            `json:"name_en"`
	BirthDate     *string           `json:"birth_date"`
	BirthYear     *int              `json:"birth_year"`
	Age           *int              `json:"age"`
	Sport         string            `json:"sport"`
	SportDisplay  string            `json:"sport_display"`
	Team          string            `json:"team"`
	ExternalID    string            `json:"fis_code"`
	SourceURL     string            `json:"fis_url"`
	CurrentRank   *int              `json:"current_rank"`
	BestRank      *int              `json:"best_rank"`
	SeasonStarts  int               `json:"season_starts"`
	Medals        Medals            `json:"medals"`
	RecentResults []ProcessedResult `json:"recent_results"`
}

// DocumentMetadata describes a generated OutputDocument.
type DocumentMetadata struct {
	LastUpdated   string `json:"last_updated"`
	TotalAthletes int    `json:"total_athletes"`
}

// OutputDocument is the aggregate artifact handed to a DocumentSink.
type OutputDocument struct {
	Metadata DocumentMetadata         `json:"metadata"`
	Athletes []ProcessedAthleteRecord `json:"athletes"`
}

// RunSummary describes one pipeline execution for run history and
// notifications.
type RunSummary struct {
	RunID      string    `json:"run_id"`
	StartedAt  time.Time `json:"started_at"`
	FinishedAt time.Time `json:"finished_at"`
	URLCount   int       `json:"url_count"`
	Ingested   int       `json:"ingested"`
	CacheHits  int       `json:"cache_hits"`
	Fetched    int       `json:"fetched"`
	Failed     int       `json:"failed"`
	OutputURI  string    `json:"output_uri"`
}
