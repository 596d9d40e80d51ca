package featured

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"PickForge/internal/anchoring"
	"PickForge/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func candidate(id, sport, league, bucket string) Candidate {
	return Candidate{
		ID:        id,
		SportSlug: sport,
		League:    league,
		StartTime: "2026-02-12T18:00:00Z",
		Home:      id + "-home",
		Away:      id + "-away",
		Bucket:    bucket,
	}
}

func oneEachConfig() Config {
	one := Quotas{"today": 1, "tomorrow": 1, "week_rest": 1}
	return Config{
		Soccer: map[string]LeagueQuota{
			CategoryLaLiga:        {LeagueKeywords: []string{"la liga", "spain"}, Quotas: one},
			CategoryPremierLeague: {LeagueKeywords: []string{"premier league", "epl", "england"}, Quotas: one},
		},
		Basketball: map[string]LeagueQuota{CategoryNBA: {LeagueKeywords: []string{"nba"}, Quotas: one}},
		Others:     OthersQuota{Quotas: one},
	}
}

func eventIDs(selections []model.FeaturedSelection) []string {
	out := make([]string, len(selections))
	for i, s := range selections {
		out[i] = s.EventID
	}
	return out
}

func TestSelectRespectsBucketsAndLeagues(t *testing.T) {
	candidates := []Candidate{
		candidate("la-today-1", "soccer", "La Liga", "today"),
		candidate("la-today-2", "soccer", "La Liga", "today"),
		candidate("pl-today-1", "soccer", "Premier League", "today"),
		candidate("pl-today-2", "soccer", "Premier League", "today"),
		candidate("la-tomorrow-1", "soccer", "La Liga", "tomorrow"),
		candidate("pl-tomorrow-1", "soccer", "Premier League", "tomorrow"),
		candidate("la-week-1", "soccer", "La Liga", "week_rest"),
		candidate("pl-week-1", "soccer", "Premier League", "week_rest"),
		candidate("nba-today-1", "basketball", "NBA", "today"),
		candidate("nba-tomorrow-1", "basketball", "NBA", "tomorrow"),
		candidate("nba-week-1", "basketball", "NBA", "week_rest"),
		candidate("other-today-1", "golf", "PGA Tour", "today"),
		candidate("other-tomorrow-1", "motor", "Formula One", "tomorrow"),
		candidate("other-week-1", "combat", "UFC", "week_rest"),
	}

	res := NewSelector(oneEachConfig(), nil).Select(context.Background(), candidates, Options{
		FeaturedDate: "2026-02-10",
		Seed:         "FEATURED|2026-02-10|round-1",
	})

	assert.Empty(t, res.Rationale)
	assert.Empty(t, res.Warnings)
	require.Len(t, res.Selections, 12)

	seen := map[string]bool{}
	cells := map[[2]string]bool{}
	for _, s := range res.Selections {
		assert.False(t, seen[s.EventID], s.EventID)
		seen[s.EventID] = true
		require.NotNil(t, s.League)
		cells[[2]string{s.Bucket, *s.League}] = true
		assert.Equal(t, "2026-02-10", s.FeaturedDate)
	}
	for _, bucket := range model.FeaturedBuckets {
		assert.True(t, cells[[2]string{bucket, CategoryLaLiga}], bucket)
		assert.True(t, cells[[2]string{bucket, CategoryPremierLeague}], bucket)
		assert.True(t, cells[[2]string{bucket, CategoryNBA}], bucket)
	}

	// others 保留原运动与联赛
	last := res.Selections[len(res.Selections)-1]
	assert.Equal(t, "other-week-1", last.EventID)
	assert.Equal(t, "combat", last.SportSlug)
	assert.Equal(t, "UFC", *last.League)
}

func TestSelectFallbackIsSeedDeterministic(t *testing.T) {
	candidates := []Candidate{
		candidate("la-today-a", "soccer", "La Liga", "today"),
		candidate("la-today-b", "soccer", "La Liga", "today"),
		candidate("pl-today-a", "soccer", "Premier League", "today"),
		candidate("pl-today-b", "soccer", "Premier League", "today"),
	}
	todayOnly := Quotas{"today": 1}
	cfg := Config{
		Soccer: map[string]LeagueQuota{
			CategoryLaLiga:        {LeagueKeywords: []string{"la liga"}, Quotas: todayOnly},
			CategoryPremierLeague: {LeagueKeywords: []string{"premier league"}, Quotas: todayOnly},
		},
		Basketball: map[string]LeagueQuota{CategoryNBA: {LeagueKeywords: []string{"nba"}}},
	}
	s := NewSelector(cfg, nil)
	run := func(seed string) []string {
		return eventIDs(s.Select(context.Background(), candidates, Options{FeaturedDate: "2026-02-10", Seed: seed}).Selections)
	}

	first := run("FEATURED|2026-02-10|r1")
	assert.Equal(t, first, run("FEATURED|2026-02-10|r1"))
	assert.Equal(t, []string{"la-today-b", "pl-today-a"}, first)
	assert.Equal(t, []string{"la-today-a", "pl-today-b"}, run("FEATURED|2026-02-11|r1"))
}

func TestSeedRotation(t *testing.T) {
	assert.Equal(t, 0, SeedRotation("FEATURED|2026-02-10|r1", "soccer:la_liga:today", 1))
	assert.Equal(t, 0, SeedRotation("FEATURED|2026-02-10|r1", "soccer:la_liga:today", 0))
	assert.Equal(t, 1, SeedRotation("FEATURED|2026-02-10|r1", "soccer:la_liga:today", 2))
	assert.Equal(t, 0, SeedRotation("FEATURED|2026-02-11|r1", "soccer:la_liga:today", 2))
	// 无日期段时退回种子哈希
	assert.Equal(t, 1, SeedRotation("nodate", "soccer:la_liga:today", 2))
	for size := 2; size < 9; size++ {
		off := SeedRotation("FEATURED|2026-02-10|r1", "others:today", size)
		assert.True(t, off >= 0 && off < size)
	}
}

func TestBuildCandidates(t *testing.T) {
	loc, err := anchoring.LoadLocation("Europe/Madrid")
	require.NoError(t, err)
	now := time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC)
	featuredDate, err := ParseDate("2026-02-10")
	require.NoError(t, err)

	withID := func(id, start string) model.EventModel {
		return model.EventModel{
			ProviderEventID: "p-" + id,
			SportSlug:       "soccer",
			League:          "La Liga",
			StartTime:       start,
			Home:            "H",
			Metadata:        map[string]interface{}{"db_event_id": id},
		}
	}
	events := []model.EventModel{
		withID("too-soon", "2026-02-10T11:00:00Z"),
		withID("today", "2026-02-10T11:30:00Z"),
		withID("late-today", "2026-02-10T22:30:00Z"), // 马德里 23:30
		withID("tomorrow", "2026-02-10T23:30:00Z"),   // 马德里次日 00:30
		withID("later", "2026-02-14T18:00:00Z"),
		{ProviderEventID: "no-db-id", StartTime: "2026-02-12T18:00:00Z"},
		withID("bad-time", "soon"),
	}

	out := BuildCandidates(events, now, featuredDate, 90, loc)
	require.Len(t, out, 4)
	got := map[string]string{}
	for _, c := range out {
		got[c.ID] = c.Bucket
	}
	assert.Equal(t, map[string]string{
		"today":      model.BucketToday,
		"late-today": model.BucketToday,
		"tomorrow":   model.BucketTomorrow,
		"later":      model.BucketWeekRest,
	}, got)
	assert.Equal(t, "H vs TBD", out[0].EventLabel())
}

type mockProposer struct {
	mock.Mock
}

func (m *mockProposer) ProposeFeatured(ctx context.Context, req ProposalRequest) (Proposal, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(Proposal), args.Error(1)
}

func TestSelectUsesProposalThenFallback(t *testing.T) {
	candidates := []Candidate{
		candidate("la-1", "soccer", "La Liga", "today"),
		candidate("la-2", "soccer", "La Liga", "today"),
		candidate("la-3", "soccer", "La Liga", "today"),
		candidate("nba-1", "basketball", "NBA", "today"),
	}
	cfg := Config{
		Soccer: map[string]LeagueQuota{
			CategoryLaLiga: {LeagueKeywords: []string{"la liga"}, Quotas: Quotas{"today": 2}},
		},
		Basketball: map[string]LeagueQuota{CategoryNBA: {LeagueKeywords: []string{"nba"}, Quotas: Quotas{"today": 1}}},
	}
	ctx := context.Background()

	t.Run("建议ID经校验后优先", func(t *testing.T) {
		p := new(mockProposer)
		p.On("ProposeFeatured", ctx, mock.Anything).Return(Proposal{
			Buckets: map[string]map[string][]string{
				"today": {
					CategoryLaLiga: {"ghost", "nba-1", "la-3", "la-3", "la-1", "la-2"},
					CategoryNBA:    {"la-1"},
				},
			},
			Rationale: "derbies",
		}, nil)

		res := NewSelector(cfg, p).Select(ctx, candidates, Options{FeaturedDate: "2026-02-10", Seed: "FEATURED|2026-02-10|r1", UseLLM: true})
		assert.Equal(t, []string{"la-3", "la-1", "nba-1"}, eventIDs(res.Selections))
		assert.Equal(t, "derbies", res.Rationale)
		assert.Empty(t, res.Warnings)
		p.AssertExpectations(t)
	})

	t.Run("建议失败回退", func(t *testing.T) {
		p := new(mockProposer)
		p.On("ProposeFeatured", ctx, mock.Anything).Return(Proposal{}, errors.New("boom"))

		res := NewSelector(cfg, p).Select(ctx, candidates, Options{FeaturedDate: "2026-02-10", Seed: "FEATURED|2026-02-10|r1", UseLLM: true})
		assert.Len(t, res.Selections, 3)
		assert.Equal(t, []string{"OpenAI featured selector failed, using deterministic fallback (boom)"}, res.Warnings)
	})

	t.Run("配额不足告警", func(t *testing.T) {
		res := NewSelector(cfg, nil).Select(ctx, candidates[:1], Options{FeaturedDate: "2026-02-10", Seed: "s"})
		assert.Equal(t, []string{
			"football la_liga today: requested 2, selected 1",
			"basketball nba today: requested 1, selected 0",
		}, res.Warnings)
	})
}

func TestLoadConfig(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadConfig(filepath.Join(dir, "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)

	path := filepath.Join(dir, "featured.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
soccer:
  la_liga:
    league_keywords: ["la liga"]
    quotas: {today: 5}
`), 0o644))
	cfg, err = LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 90, cfg.MinLeadMinutes)
	assert.Equal(t, []string{CategoryLaLiga}, cfg.FootballCategories())
	assert.Equal(t, 5, cfg.Soccer[CategoryLaLiga].Quotas.For("today"))
	assert.Equal(t, 0, cfg.Soccer[CategoryLaLiga].Quotas.For("tomorrow"))
	assert.Equal(t, DefaultConfig().Basketball, cfg.Basketball)

	listPath := filepath.Join(dir, "list.yaml")
	require.NoError(t, os.WriteFile(listPath, []byte("- a\n- b\n"), 0o644))
	cfg, err = LoadConfig(listPath)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func oddsEvent(dbID, pid, sport, league, start string) model.EventModel {
	return model.EventModel{
		Provider:        model.ProviderTheOdds,
		ProviderEventID: pid,
		SportSlug:       sport,
		League:          league,
		StartTime:       start,
		Metadata:        map[string]interface{}{"db_event_id": dbID},
	}
}

func oddsCandidate(pid, market, start string) model.CandidatePick {
	return model.CandidatePick{
		CandidateID:     "k:" + pid + ":" + market,
		SportKey:        "k",
		SportSlug:       "soccer",
		League:          "La Liga",
		Event:           pid,
		EventKey:        pid,
		StartTime:       start,
		Market:          market,
		ProviderEventID: pid,
		Options:         []model.CandidateOption{{Label: "A", Odds: 2}, {Label: "B", Odds: 2}},
	}
}

func TestSelectCandidatesWithOdds(t *testing.T) {
	loc, err := anchoring.LoadLocation("Europe/Madrid")
	require.NoError(t, err)
	featuredDate, err := ParseDate("2026-02-10")
	require.NoError(t, err)
	start := "2026-02-10T18:00:00Z"

	events := []model.EventModel{
		oddsEvent("db-1", "p1", "soccer", "La Liga", start),
		oddsEvent("db-2", "p2", "soccer", "La Liga", start),
		oddsEvent("db-3", "p3", "soccer", "La Liga", start),
		oddsEvent("db-4", "p4", "golf", "PGA", "2026-02-14T18:00:00Z"),
	}
	candidates := []model.CandidatePick{
		oddsCandidate("p1", "spreads", start),
		oddsCandidate("p1", "totals", start),
		oddsCandidate("p1", "h2h", start),
		oddsCandidate("p3", "h2h", start),
		oddsCandidate("p3", "outrights", start),
	}
	featured := []model.FeaturedSelection{
		{EventID: "db-2", SportSlug: "soccer", League: model.StrPtr("la_liga"), Bucket: model.BucketToday},
		{EventID: "db-1", SportSlug: "soccer", League: model.StrPtr("la_liga"), Bucket: model.BucketToday},
		{EventID: "db-4", SportSlug: "golf", Bucket: model.BucketWeekRest},
		{EventID: "db-9", SportSlug: "soccer", Bucket: model.BucketTomorrow},
	}

	out, warnings := SelectCandidatesWithOdds(OddsRequest{
		Featured:           featured,
		Events:             events,
		Candidates:         candidates,
		Markets:            []string{"h2h", "totals", "spreads"},
		Seed:               "FEATURED|2026-02-10|r1",
		MaxMarketsPerEvent: 2,
		FeaturedDate:       featuredDate,
		Location:           loc,
	})

	var ids []string
	for _, c := range out {
		ids = append(ids, c.CandidateID)
	}
	assert.ElementsMatch(t, []string{"k:p1:h2h", "k:p1:totals", "k:p3:h2h"}, ids)
	assert.Equal(t, []string{
		"Replaced featured event db-2 with p3 due to missing odds.",
		"Featured event missing in events table: db-9",
		"No odds for featured event db-4 (PGA) and no replacement found.",
	}, warnings)
}

func TestMarketRank(t *testing.T) {
	assert.Less(t, MarketRank("h2h"), MarketRank("totals"))
	assert.Less(t, MarketRank("totals"), MarketRank("spreads"))
	assert.Equal(t, 9, MarketRank("outrights"))
}
