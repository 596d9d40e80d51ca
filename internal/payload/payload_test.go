package payload

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"PickForge/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pick(id, sport, market, bookmaker string, odds ...float64) model.CandidatePick {
	opts := make([]model.CandidateOption, len(odds))
	for i, o := range odds {
		opts[i] = model.CandidateOption{Label: string(rune('A' + i)), Odds: o}
	}
	return model.CandidatePick{
		CandidateID: id,
		SportSlug:   sport,
		League:      "League " + id,
		Event:       "Home " + id + " vs Away " + id,
		StartTime:   "2026-02-10T18:00:00Z",
		Market:      market,
		Bookmaker:   bookmaker,
		Options:     opts,
	}
}

func TestBuild(t *testing.T) {
	candidates := []model.CandidatePick{
		pick("1", "soccer", "h2h", "pinnacle", 2.1, 3.3, 3.6),
		pick("2", "tennis", "outrights", "", 1.5, 2.6),
	}

	daily, err := Build("round-1", model.ModeDaily, candidates, []string{"eu", "uk"})
	require.NoError(t, err)
	assert.Equal(t, "round-1", daily.RoundID)
	require.Len(t, daily.Picks, 2)

	first := daily.Picks[0]
	assert.Equal(t, "[DAILY] Home 1 vs Away 1 - h2h", first.Title)
	require.NotNil(t, first.Description)
	assert.Equal(t, "regions=eu,uk | bookmaker=pinnacle", *first.Description)
	assert.Equal(t, 0, first.OrderIndex)
	assert.Equal(t, model.PickMetadata{League: "League 1", Event: "Home 1 vs Away 1", StartTime: "2026-02-10T18:00:00Z"}, first.Metadata)

	second := daily.Picks[1]
	assert.Equal(t, "[DAILY] Home 2 vs Away 2 - outrights", second.Title)
	assert.Equal(t, "regions=eu,uk | bookmaker=n/a", *second.Description)
	assert.Equal(t, 1, second.OrderIndex)

	weekly, err := Build("round-1", model.ModeWeekly, candidates[:1], nil)
	require.NoError(t, err)
	assert.Equal(t, "[WEEK] Home 1 vs Away 1 - h2h", weekly.Picks[0].Title)
	assert.Equal(t, "regions= | bookmaker=pinnacle", *weekly.Picks[0].Description)
}

func TestBuildRejectsInvalid(t *testing.T) {
	tests := []struct {
		name       string
		round      string
		candidates []model.CandidatePick
		field      string
	}{
		{name: "空轮次", round: " ", candidates: []model.CandidatePick{pick("1", "soccer", "h2h", "", 2, 2)}, field: "round_id"},
		{name: "无候选", round: "r", field: "picks"},
		{name: "单选项", round: "r", candidates: []model.CandidatePick{pick("1", "soccer", "h2h", "", 2)}, field: "picks[0].options"},
		{name: "赔率过低", round: "r", candidates: []model.CandidatePick{pick("1", "soccer", "h2h", "", 2, 1.01)}, field: "picks[0].options[1].odds"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Build(tt.round, model.ModeDaily, tt.candidates, nil)
			var verr *model.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
		})
	}

	bad := pick("1", "soccer", "h2h", "", 2, 2)
	bad.StartTime = "2026-02-10T18:00:00+00:00"
	_, err := Build("r", model.ModeDaily, []model.CandidatePick{bad}, nil)
	assert.Error(t, err)
}

func TestSummarize(t *testing.T) {
	p, err := Build("r", model.ModeDaily, []model.CandidatePick{
		pick("1", "soccer", "h2h", "", 2.1, 3.3, 3.6),
		pick("2", "soccer", "totals", "", 1.9, 1.95),
		pick("3", "tennis", "h2h", "", 1.4, 2.8),
	}, nil)
	require.NoError(t, err)

	assert.Equal(t, Summary{
		TotalPicks:    3,
		CountsBySport: map[string]int{"soccer": 2, "tennis": 1},
		MinOdds:       1.4,
		MaxOdds:       3.6,
	}, Summarize(p))

	empty := Summarize(model.ImportPayload{RoundID: "r"})
	assert.Equal(t, 0, empty.TotalPicks)
	assert.Zero(t, empty.MinOdds)
	assert.Zero(t, empty.MaxOdds)
	assert.Equal(t, map[string]interface{}{
		"total_picks":     0,
		"counts_by_sport": map[string]interface{}{},
		"min_odds":        0.0,
		"max_odds":        0.0,
	}, empty.AsMap())
}

func TestOutputFilename(t *testing.T) {
	madrid := time.FixedZone("CET", 3600)
	tests := []struct {
		mode model.Mode
		now  time.Time
		want string
	}{
		{model.ModeDaily, time.Date(2026, 2, 10, 0, 30, 0, 0, madrid), "daily_picks_2026-02-09.json"},
		{model.ModeWeekly, time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC), "weekly_picks_2026-07.json"},
		{model.ModeWeekly, time.Date(2027, 1, 1, 12, 0, 0, 0, time.UTC), "weekly_picks_2026-53.json"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, OutputFilename(tt.mode, tt.now))
	}
}

func TestWrite(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "out")
	p, err := Build("r", model.ModeDaily, []model.CandidatePick{pick("1", "soccer", "h2h", "", 2, 2)}, []string{"eu"})
	require.NoError(t, err)

	path, err := Write(dir, model.ModeDaily, time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC), p)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "daily_picks_2026-02-10.json"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "\n  \"round_id\": \"r\",\n  \"picks\": [\n")
	assert.Contains(t, string(data), `"title": "[DAILY] Home 1 vs Away 1 - h2h"`)

	var back model.ImportPayload
	require.NoError(t, json.Unmarshal(data, &back))
	assert.Equal(t, p, back)
}
