package file_test

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JakeFAU/athlete-pipeline/internal/athlete"
	"github.com/JakeFAU/athlete-pipeline/internal/cache/file"
	"github.com/JakeFAU/athlete-pipeline/internal/clock"
)

const testURL = "https://www.fis-ski.com/DB/general/athlete-biography.html?sectorcode=AL&competitorid=1"

func samplePayload() athlete.RawAthleteRecord {
	rank := 4
	return athlete.RawAthleteRecord{
		SourceURL:  testURL,
		ExternalID: "1",
		SportCode:  "AL",
		Name:       "Donghyun JUNG",
		BirthDate:  "1998-03-05",
		Results:    []athlete.RawResult{{Date: "2024-01-10", Rank: &rank}},
	}
}

func TestNewRequiresPath(t *testing.T) {
	t.Parallel()

	_, err := file.New(file.Config{}, nil, nil)
	assert.Error(t, err)
}

func TestStoreSurvivesRestart(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "nested", "cache", "scraper_cache.json")
	at := time.Date(2025, 1, 15, 8, 30, 0, 0, time.UTC)
	clk := clock.NewFixed(at)

	store, err := file.New(file.Config{Path: path}, clk, nil)
	require.NoError(t, err)
	_, found, err := store.Get(context.Background(), testURL)
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, store.Put(context.Background(), testURL, samplePayload()))

	reopened, err := file.New(file.Config{Path: path}, clk, nil)
	require.NoError(t, err)
	entry, found, err := reopened.Get(context.Background(), testURL)
	require.NoError(t, err)
	require.True(t, found)
	assert.True(t, at.Equal(entry.CapturedAt))
	assert.Equal(t, samplePayload(), entry.Payload)
	assert.True(t, entry.IsFresh(at.Add(23*time.Hour), 0))
}

func TestStoreFileLayout(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	store, err := file.New(file.Config{Path: path}, clock.NewFixed(time.Date(2025, 1, 15, 8, 30, 0, 0, time.UTC)), nil)
	require.NoError(t, err)
	require.NoError(t, store.Put(context.Background(), testURL, samplePayload()))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc map[string]map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Contains(t, doc, testURL)
	assert.JSONEq(t, `"2025-01-15T08:30:00Z"`, string(doc[testURL]["timestamp"]))

	var data map[string]any
	require.NoError(t, json.Unmarshal(doc[testURL]["data"], &data))
	assert.Equal(t, "1", data["fis_code"])
	assert.Equal(t, "Donghyun JUNG", data["name_en"])
}

func TestStoreReadsLegacyTimestamps(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	legacy := `{
	  "` + testURL + `": {"timestamp": "2025-01-15T08:30:00.123456", "data": {"fis_code": "1", "sport_code": "AL", "name_en": "X", "birth_date": null, "gender": null, "results": []}},
	  "https://example.test/bad": {"timestamp": "yesterday", "data": {}}
	}`
	require.NoError(t, os.WriteFile(path, []byte(legacy), 0o600))

	store, err := file.New(file.Config{Path: path}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, store.Len())

	entry, found, err := store.Get(context.Background(), testURL)
	require.NoError(t, err)
	require.True(t, found)
	want := time.Date(2025, 1, 15, 8, 30, 0, 123456000, time.Local)
	assert.True(t, want.Equal(entry.CapturedAt))
	assert.Equal(t, "1", entry.Payload.ExternalID)
	assert.Empty(t, entry.Payload.BirthDate)
}

func TestStoreCorruptFileIsEmpty(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "cache.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o600))

	store, err := file.New(file.Config{Path: path}, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 0, store.Len())

	// The next Put replaces the corrupt document.
	require.NoError(t, store.Put(context.Background(), testURL, samplePayload()))
	raw, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, json.Valid(raw))
}

func TestStorePutOverwrites(t *testing.T) {
	t.Parallel()

	clk := clock.NewFixed(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC))
	store, err := file.New(file.Config{Path: filepath.Join(t.TempDir(), "c.json")}, clk, nil)
	require.NoError(t, err)

	require.NoError(t, store.Put(context.Background(), testURL, samplePayload()))
	clk.Advance(48 * time.Hour)
	updated := samplePayload()
	updated.Name = "Updated"
	require.NoError(t, store.Put(context.Background(), testURL, updated))

	entry, found, err := store.Get(context.Background(), testURL)
	require.NoError(t, err)
	require.True(t, found)
	assert.Equal(t, "Updated", entry.Payload.Name)
	assert.True(t, clk.Now().Equal(entry.CapturedAt))
	assert.Equal(t, 1, store.Len())
}
