package merge

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/JakeFAU/athlete-pipeline/internal/athlete"
)

func idsOf(records []athlete.ProcessedAthleteRecord) []string {
	ids := make([]string, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}
	return ids
}

func TestSequentialIDsFollowOutputPosition(t *testing.T) {
	t.Parallel()

	baseline := athlete.Baseline{"b": {ID: "KOR050", ExternalID: "b"}}
	raw := []athlete.RawAthleteRecord{{ExternalID: "a"}, {ExternalID: "b"}, {ExternalID: "c"}}
	out := newProcessor(t, Config{IDStrategy: IDStrategySequential}).Process(raw, baseline)
	assert.Equal(t, []string{"KOR001", "KOR002", "KOR003"}, idsOf(out))
}

func TestDefaultIDsIgnoreBaselineNumbers(t *testing.T) {
	t.Parallel()

	baseline := athlete.Baseline{
		"b": {ID: "KOR001", ExternalID: "b"},
		"z": {ID: "KOR009", ExternalID: "z"},
	}
	raw := []athlete.RawAthleteRecord{{ExternalID: "a"}, {ExternalID: "b"}}
	out := newProcessor(t, Config{}).Process(raw, baseline)
	assert.Equal(t, []string{"KOR001", "KOR002"}, idsOf(out))
}

func TestStableIDsSurviveReordering(t *testing.T) {
	t.Parallel()

	p := newProcessor(t, Config{IDStrategy: IDStrategyStable})
	baseline := athlete.Baseline{
		"a": {ID: "KOR001", ExternalID: "a"},
		"b": {ID: "KOR002", ExternalID: "b"},
		// Retired athlete: number stays reserved.
		"z": {ID: "KOR009", ExternalID: "z"},
		// Malformed identifiers are reassigned.
		"m": {ID: "TEMP-1", ExternalID: "m"},
	}
	raw := []athlete.RawAthleteRecord{
		{ExternalID: "new"},
		{ExternalID: "b"},
		{ExternalID: "m"},
		{ExternalID: "a"},
	}
	out := p.Process(raw, baseline)
	assert.Equal(t, []string{"KOR010", "KOR002", "KOR011", "KOR001"}, idsOf(out))
}

func TestStableIDsNeverDuplicate(t *testing.T) {
	t.Parallel()

	p := newProcessor(t, Config{IDStrategy: IDStrategyStable, IDPrefix: "ATH"})
	baseline := athlete.Baseline{"a": {ID: "ATH1", ExternalID: "a"}}
	// The same athlete listed twice only keeps the number once.
	raw := []athlete.RawAthleteRecord{{ExternalID: "a"}, {ExternalID: "a"}, {ExternalID: "b"}}
	out := p.Process(raw, baseline)
	assert.Equal(t, []string{"ATH1", "ATH002", "ATH003"}, idsOf(out))
}

func TestStableIDsWithoutBaseline(t *testing.T) {
	t.Parallel()

	out := newProcessor(t, Config{IDStrategy: IDStrategyStable}).Process([]athlete.RawAthleteRecord{{ExternalID: "x"}, {ExternalID: "y"}}, nil)
	assert.Equal(t, []string{"KOR001", "KOR002"}, idsOf(out))
}

func TestIDAllocatorParse(t *testing.T) {
	t.Parallel()

	a := idAllocator{prefix: "KOR"}
	for id, want := range map[string]int{"KOR001": 1, "KOR120": 120, "KOR7": 7} {
		n, ok := a.parse(id)
		assert.True(t, ok, id)
		assert.Equal(t, want, n, id)
	}
	for _, id := range []string{"", "KOR", "KOR000", "KOR-1", "JPN001", "KOR01a"} {
		_, ok := a.parse(id)
		assert.False(t, ok, id)
	}
}
