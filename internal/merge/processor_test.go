package merge

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/athlete-pipeline/internal/athlete"
	"github.com/JakeFAU/athlete-pipeline/internal/clock"
)

var fixedNow = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)

func intPtr(v int) *int { return &v }

func floatPtr(v float64) *float64 { return &v }

func newProcessor(t *testing.T, cfg Config) *Processor {
	t.Helper()
	p, err := New(cfg, clock.NewFixed(fixedNow))
	require.NoError(t, err)
	return p
}

func jung() athlete.RawAthleteRecord {
	return athlete.RawAthleteRecord{
		SourceURL:  "https://fis.test/athlete?competitorid=234567&sectorcode=AL",
		ExternalID: "234567",
		SportCode:  "AL",
		Name:       "Donghyun JUNG",
		BirthDate:  "1998-03-05",
		Results: []athlete.RawResult{
			{Date: "2023-12-01", RankStatus: "DNF", Discipline: "Slalom"},
			{Date: "2024-01-10", Rank: intPtr(4), FISPoints: floatPtr(12.5), Category: "World Cup"},
		},
	}
}

func TestProcessEndToEndRecord(t *testing.T) {
	t.Parallel()

	out := newProcessor(t, Config{}).Process([]athlete.RawAthleteRecord{jung()}, nil)
	require.Len(t, out, 1)
	rec := out[0]

	assert.Equal(t, "KOR001", rec.ID)
	assert.Equal(t, "Donghyun JUNG", rec.SourceName)
	assert.Equal(t, "Donghyun JUNG", rec.LocalName)
	require.NotNil(t, rec.BirthDate)
	assert.Equal(t, "1998-03-05", *rec.BirthDate)
	require.NotNil(t, rec.BirthYear)
	assert.Equal(t, 1998, *rec.BirthYear)
	require.NotNil(t, rec.Age)
	assert.Equal(t, 27, *rec.Age)
	assert.Equal(t, "alpine_skiing", rec.Sport)
	assert.Equal(t, "Alpine Skiing", rec.SportDisplay)
	assert.Equal(t, DefaultTeam, rec.Team)
	assert.Equal(t, athlete.Medals{}, rec.Medals)
	require.NotNil(t, rec.CurrentRank)
	assert.Equal(t, 4, *rec.CurrentRank)
	require.NotNil(t, rec.BestRank)
	assert.Equal(t, 4, *rec.BestRank)
	assert.Equal(t, 2, rec.SeasonStarts)

	require.Len(t, rec.RecentResults, 2)
	first, second := rec.RecentResults[0], rec.RecentResults[1]
	assert.Equal(t, "2024-01-10", first.Date)
	assert.Equal(t, "World Cup", first.Event)
	assert.InDelta(t, 12.5, first.Points, 1e-9)
	assert.Nil(t, first.RankStatus)
	assert.Equal(t, "2023-12-01", second.Date)
	assert.Equal(t, "Slalom", second.Event)
	assert.Nil(t, second.Rank)
	require.NotNil(t, second.RankStatus)
	assert.Equal(t, "DNF", *second.RankStatus)
	assert.Zero(t, second.Points)
}

func TestProcessEligibilityAndTruncation(t *testing.T) {
	t.Parallel()

	raw := athlete.RawAthleteRecord{ExternalID: "1", SportCode: "SB"}
	// Ten dated rows, 2024-01-01 .. 2024-01-10; the 2024-01-07 row is
	// ineligible. Two undated rows never count.
	for day := 1; day <= 10; day++ {
		r := athlete.RawResult{Date: time.Date(2024, 1, day, 0, 0, 0, 0, time.UTC).Format("2006-01-02")}
		switch {
		case day == 7:
		case day%2 == 0:
			r.Rank = intPtr(day)
		default:
			r.RankStatus = "DNS"
		}
		raw.Results = append(raw.Results, r)
	}
	raw.Results = append(raw.Results,
		athlete.RawResult{Rank: intPtr(1)},
		athlete.RawResult{RankStatus: "DSQ"},
	)

	rec := newProcessor(t, Config{}).Process([]athlete.RawAthleteRecord{raw}, nil)[0]
	require.Len(t, rec.RecentResults, 8)
	want := []string{
		"2024-01-10", "2024-01-09", "2024-01-08", "2024-01-06",
		"2024-01-05", "2024-01-04", "2024-01-03", "2024-01-02",
	}
	for i, r := range rec.RecentResults {
		assert.Equal(t, want[i], r.Date)
	}
	assert.Equal(t, 10, rec.SeasonStarts)
	require.NotNil(t, rec.CurrentRank)
	assert.Equal(t, 10, *rec.CurrentRank)
	require.NotNil(t, rec.BestRank)
	assert.Equal(t, 2, *rec.BestRank)
	assert.Equal(t, "snowboard_park", rec.Sport)
}

func TestProcessBestRankStaysInsideRecentWindow(t *testing.T) {
	t.Parallel()

	raw := athlete.RawAthleteRecord{ExternalID: "1"}
	// Nine ranked rows; the oldest one, outside the window of eight, has the
	// lowest rank.
	for day := 1; day <= 9; day++ {
		rank := 50
		if day == 1 {
			rank = 1
		}
		raw.Results = append(raw.Results, athlete.RawResult{
			Date: time.Date(2024, 3, day, 0, 0, 0, 0, time.UTC).Format("2006-01-02"),
			Rank: intPtr(rank),
		})
	}

	rec := newProcessor(t, Config{}).Process([]athlete.RawAthleteRecord{raw}, nil)[0]
	require.Len(t, rec.RecentResults, 8)
	assert.Equal(t, 9, rec.SeasonStarts)
	require.NotNil(t, rec.BestRank)
	assert.Equal(t, 50, *rec.BestRank)

	rec = newProcessor(t, Config{RecentLimit: 9}).Process([]athlete.RawAthleteRecord{raw}, nil)[0]
	assert.Equal(t, 1, *rec.BestRank)
}

func TestProcessStableSortKeepsInputOrderForSameDate(t *testing.T) {
	t.Parallel()

	raw := athlete.RawAthleteRecord{ExternalID: "1", Results: []athlete.RawResult{
		{Date: "2024-02-02", Rank: intPtr(9), Discipline: "first"},
		{Date: "2024-02-02", Rank: intPtr(3), Discipline: "second"},
	}}
	rec := newProcessor(t, Config{}).Process([]athlete.RawAthleteRecord{raw}, nil)[0]
	require.Len(t, rec.RecentResults, 2)
	assert.Equal(t, "first", rec.RecentResults[0].Event)
	assert.Equal(t, 9, *rec.CurrentRank)
	assert.Equal(t, 3, *rec.BestRank)
}

func TestProcessBaselinePrecedence(t *testing.T) {
	t.Parallel()

	baseline := athlete.Baseline{
		"234567": {
			ID:           "KOR007",
			ExternalID:   "234567",
			LocalName:    "정동현",
			SourceName:   "JUNG Dong-hyun",
			BirthDate:    "1988-01-01",
			Team:         "KOR",
			DisplayLabel: "Alpine",
			Medals:       &athlete.Medals{Gold: 1, Bronze: 2},
		},
	}
	p := newProcessor(t, Config{IDStrategy: IDStrategyStable, DefaultTeam: "TBD"})

	rec := p.Process([]athlete.RawAthleteRecord{jung()}, baseline)[0]
	assert.Equal(t, "KOR007", rec.ID)
	assert.Equal(t, "정동현", rec.LocalName)
	assert.Equal(t, "JUNG Dong-hyun", rec.SourceName)
	assert.Equal(t, "KOR", rec.Team)
	assert.Equal(t, "Alpine", rec.SportDisplay)
	assert.Equal(t, athlete.Medals{Gold: 1, Bronze: 2}, rec.Medals)
	// The scraped birth date wins over the curated one.
	assert.Equal(t, "1998-03-05", *rec.BirthDate)

	scraped := jung()
	scraped.BirthDate = ""
	rec = p.Process([]athlete.RawAthleteRecord{scraped}, baseline)[0]
	assert.Equal(t, "1988-01-01", *rec.BirthDate)
	assert.Equal(t, 1988, *rec.BirthYear)

	rec = p.Process([]athlete.RawAthleteRecord{jung()}, nil)[0]
	assert.Equal(t, "TBD", rec.Team)
}

func TestProcessDegradedFields(t *testing.T) {
	t.Parallel()

	raw := athlete.RawAthleteRecord{ExternalID: "5", SportCode: "XYZ", Name: "Athlete 5", BirthDate: "19x8-01-01"}
	rec := newProcessor(t, Config{}).Process([]athlete.RawAthleteRecord{raw}, nil)[0]
	assert.Equal(t, FallbackSport, rec.Sport)
	assert.Equal(t, "Alpine Skiing", rec.SportDisplay)
	require.NotNil(t, rec.BirthDate)
	assert.Nil(t, rec.BirthYear)
	assert.Nil(t, rec.Age)
	assert.Nil(t, rec.CurrentRank)
	assert.Nil(t, rec.BestRank)
	assert.Zero(t, rec.SeasonStarts)
	assert.NotNil(t, rec.RecentResults)
	assert.Empty(t, rec.RecentResults)

	raw.BirthDate = ""
	rec = newProcessor(t, Config{}).Process([]athlete.RawAthleteRecord{raw}, nil)[0]
	assert.Nil(t, rec.BirthDate)
}

func TestProcessIsIdempotent(t *testing.T) {
	t.Parallel()

	baseline := athlete.Baseline{"234567": {ID: "KOR002", ExternalID: "234567", Team: "KOR"}}
	raw := []athlete.RawAthleteRecord{jung(), {ExternalID: "9", SportCode: "CC", Name: "Other"}}
	p := newProcessor(t, Config{})

	first, err := json.Marshal(NewDocument(p.Process(raw, baseline), fixedNow))
	require.NoError(t, err)
	second, err := json.Marshal(NewDocument(p.Process(raw, baseline), fixedNow))
	require.NoError(t, err)
	assert.JSONEq(t, string(first), string(second))
}

func TestNewDocument(t *testing.T) {
	t.Parallel()

	doc := NewDocument(nil, fixedNow)
	assert.Equal(t, "2025-06-01T09:00:00Z", doc.Metadata.LastUpdated)
	assert.Zero(t, doc.Metadata.TotalAthletes)

	raw, err := json.Marshal(doc)
	require.NoError(t, err)
	assert.JSONEq(t, `{"metadata":{"last_updated":"2025-06-01T09:00:00Z","total_athletes":0},"athletes":[]}`, string(raw))
}

func TestNewRejectsUnknownStrategy(t *testing.T) {
	t.Parallel()

	_, err := New(Config{IDStrategy: "hash"}, nil)
	assert.Error(t, err)
}
