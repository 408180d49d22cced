// Package merge reconciles freshly ingested athlete records with the curated
// baseline and derives the display fields of the output document.
package merge

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/JakeFAU/athlete-pipeline/internal/athlete"
	"github.com/JakeFAU/athlete-pipeline/internal/clock"
)

// Defaults applied when Config leaves a field empty.
const (
	DefaultIDPrefix    = "KOR"
	DefaultTeam        = "KOR"
	DefaultRecentLimit = 8
	fallbackEvent      = "Result"
)

// Config controls merge behavior.
type Config struct {
	IDStrategy  string `mapstructure:"id_strategy"`
	IDPrefix    string `mapstructure:"id_prefix"`
	RecentLimit int    `mapstructure:"recent_limit"`
	DefaultTeam string `mapstructure:"default_team"`
}

// Processor turns raw records into processed ones. Its output depends only on
// its inputs and the injected clock.
type Processor struct {
	cfg   Config
	clock athlete.Clock
	ids   idAllocator
}

// New validates cfg and builds a Processor.
func New(cfg Config, clk athlete.Clock) (*Processor, error) {
	if cfg.IDStrategy == "" {
		cfg.IDStrategy = IDStrategySequential
	}
	if cfg.IDStrategy != IDStrategyStable && cfg.IDStrategy != IDStrategySequential {
		return nil, fmt.Errorf("unknown id strategy %q", cfg.IDStrategy)
	}
	if cfg.IDPrefix == "" {
		cfg.IDPrefix = DefaultIDPrefix
	}
	if cfg.RecentLimit <= 0 {
		cfg.RecentLimit = DefaultRecentLimit
	}
	if cfg.DefaultTeam == "" {
		cfg.DefaultTeam = DefaultTeam
	}
	if clk == nil {
		clk = clock.New()
	}
	return &Processor{cfg: cfg, clock: clk, ids: idAllocator{prefix: cfg.IDPrefix}}, nil
}

// Process merges raw with baseline, one output record per input record, in
// input order.
func (p *Processor) Process(raw []athlete.RawAthleteRecord, baseline athlete.Baseline) []athlete.ProcessedAthleteRecord {
	year := p.clock.Now().Year()
	out := make([]athlete.ProcessedAthleteRecord, 0, len(raw))
	for _, rec := range raw {
		out = append(out, p.processOne(rec, baseline[rec.ExternalID], year))
	}

	if p.cfg.IDStrategy == IDStrategyStable {
		p.ids.stable(out, baseline)
	} else {
		p.ids.sequential(out)
	}
	return out
}

// NewDocument wraps records into an output document stamped with now.
func NewDocument(records []athlete.ProcessedAthleteRecord, now time.Time) athlete.OutputDocument {
	if records == nil {
		records = []athlete.ProcessedAthleteRecord{}
	}
	return athlete.OutputDocument{
		Metadata: athlete.DocumentMetadata{
			LastUpdated:   now.Format(time.RFC3339),
			TotalAthletes: len(records),
		},
		Athletes: records,
	}
}

func (p *Processor) processOne(rec athlete.RawAthleteRecord, cur athlete.CuratedRecord, year int) athlete.ProcessedAthleteRecord {
	sport := SportKey(rec.SportCode)
	sourceName := firstNonEmpty(cur.SourceName, rec.Name)

	out := athlete.ProcessedAthleteRecord{
		LocalName:    firstNonEmpty(cur.LocalName, sourceName),
		SourceName:   sourceName,
		Sport:        sport,
		SportDisplay: firstNonEmpty(cur.DisplayLabel, SportLabel(sport)),
		Team:         firstNonEmpty(cur.Team, p.cfg.DefaultTeam),
		ExternalID:   rec.ExternalID,
		SourceURL:    rec.SourceURL,
	}
	if cur.Medals != nil {
		out.Medals = *cur.Medals
	}

	if birthDate := firstNonEmpty(rec.BirthDate, cur.BirthDate); birthDate != "" {
		out.BirthDate = &birthDate
		if by, ok := birthYear(birthDate); ok {
			age := year - by
			out.BirthYear = &by
			out.Age = &age
		}
	}

	dated := datedResults(rec.Results)
	out.SeasonStarts = len(dated)
	out.RecentResults = make([]athlete.ProcessedResult, 0, p.cfg.RecentLimit)
	// Ranks only count inside the recent window.
	for _, r := range dated {
		if !r.Eligible() {
			continue
		}
		if len(out.RecentResults) == p.cfg.RecentLimit {
			break
		}
		if r.HasRank() {
			rank := *r.Rank
			if out.CurrentRank == nil {
				out.CurrentRank = &rank
			}
			if out.BestRank == nil || rank < *out.BestRank {
				out.BestRank = &rank
			}
		}
		out.RecentResults = append(out.RecentResults, processResult(r))
	}
	return out
}

// datedResults returns the results carrying a date, most recent first. ISO
// dates are zero-padded so string order is date order.
func datedResults(results []athlete.RawResult) []athlete.RawResult {
	dated := make([]athlete.RawResult, 0, len(results))
	for _, r := range results {
		if r.Date != "" {
			dated = append(dated, r)
		}
	}
	slices.SortStableFunc(dated, func(a, b athlete.RawResult) int {
		return strings.Compare(b.Date, a.Date)
	})
	return dated
}

func processResult(r athlete.RawResult) athlete.ProcessedResult {
	out := athlete.ProcessedResult{
		Date:       r.Date,
		Event:      firstNonEmpty(r.Discipline, r.Category, fallbackEvent),
		Place:      r.Place,
		Category:   r.Category,
		Discipline: r.Discipline,
		CupPoints:  r.CupPoints,
	}
	if r.HasRank() {
		rank := *r.Rank
		out.Rank = &rank
	}
	if r.RankStatus != "" {
		status := r.RankStatus
		out.RankStatus = &status
	}
	if r.FISPoints != nil {
		out.Points = *r.FISPoints
	}
	return out
}

func birthYear(date string) (int, bool) {
	if len(date) < 4 {
		return 0, false
	}
	for i := 0; i < 4; i++ {
		if date[i] < '0' || date[i] > '9' {
			return 0, false
		}
	}
	y, err := strconv.Atoi(date[:4])
	if err != nil {
		return 0, false
	}
	return y, true
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
