package sportsdata

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"PickForge/internal/anchoring"
	"PickForge/internal/config"
	"PickForge/internal/interfaces"
	"PickForge/internal/model"
	"PickForge/internal/sportsmap"
	"PickForge/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestProvider(t *testing.T) *Provider {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/v3/nba/scores/json/GamesByDate/2026-02-10":
			_, _ = w.Write([]byte(`[{"GameID": 1, "DateTimeUTC": "2026-02-10T20:00:00Z", "HomeTeam": "NYK", "AwayTeam": "BOS", "Status": "Scheduled"}]`))
		case "/v3/nba/odds/json/GameOddsByDate/2026-02-10":
			_, _ = w.Write([]byte(`[{"GameId": 1, "DateTime": "2026-02-10T20:00:00", "PregameOdds": [
				{"Sportsbook": "BookA", "HomeMoneyLine": -150, "AwayMoneyLine": 130}]}]`))
		case "/v3/nba/scores/json/GamesByDate/2026-02-11", "/v3/nba/odds/json/GameOddsByDate/2026-02-11":
			_, _ = w.Write([]byte(`[]`))
		default:
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte("nope"))
		}
	}))
	t.Cleanup(srv.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := &config.PlatformConfig{BaseURL: srv.URL + "/v3", AuthToken: "k"}
	client := NewClient(cfg, logger, httpclient.WithSleep(func(context.Context, time.Duration) error { return nil }))
	return NewProviderWithClient(client, logger)
}

func testSports() sportsmap.Map {
	return sportsmap.Map{Sports: map[string]sportsmap.Entry{
		"basketball_nba": {AppSlug: "basketball", League: "NBA", AllowDaily: true, AllowWeekly: true},
		"cricket_ipl":    {AppSlug: "cricket", League: "IPL", AllowDaily: true, AllowWeekly: true},
		"soccer_epl":     {AppSlug: "soccer", League: "Premier League", AllowDaily: true, AllowWeekly: true, ProviderSport: "soccer:EPL"},
	}}
}

func madrid(t *testing.T) *time.Location {
	t.Helper()
	loc, err := anchoring.LoadLocation("Europe/Madrid")
	require.NoError(t, err)
	return loc
}

func TestProviderFetchCandidates(t *testing.T) {
	p := newTestProvider(t)
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	candidates, warnings, err := p.FetchCandidates(context.Background(), interfaces.CandidateRequest{
		Mode:     model.ModeDaily,
		Sports:   testSports(),
		Markets:  []string{"h2h", "totals"},
		Window:   anchoring.WindowForMode(model.ModeDaily, now),
		Now:      now,
		Location: madrid(t),
	})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	c := candidates[0]
	assert.Equal(t, "basketball_nba:1:h2h", c.CandidateID)
	assert.Equal(t, "NBA", c.League)
	assert.Equal(t, "NYK vs BOS", c.Event)
	assert.Equal(t, "booka", c.Bookmaker)
	assert.Equal(t, []string{
		"Skipping sport_key=cricket_ipl: app_slug 'cricket' not allowed",
		"Skipping sportsdata soccer:EPL 2026-02-10: odds fetch failed (SportsData request failed: 404 nope)",
		"Skipping sportsdata soccer:EPL 2026-02-11: odds fetch failed (SportsData request failed: 404 nope)",
	}, warnings)
}

func TestProviderFetchCalendar(t *testing.T) {
	p := newTestProvider(t)

	res, err := p.FetchCalendar(context.Background(), interfaces.CalendarRequest{
		Sports:   testSports(),
		Now:      time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC),
		Location: madrid(t),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{
		"Skipping sport_key=cricket_ipl: no SportsData sport code mapping.",
		"Skipping sportsdata soccer:EPL 2026-02-10: scores fetch failed (SportsData request failed: 404 nope)",
		"Skipping sportsdata soccer:EPL 2026-02-11: scores fetch failed (SportsData request failed: 404 nope)",
	}, res.Warnings)
	require.Len(t, res.Events, 1)
	ev := res.Events[0]
	assert.Equal(t, model.ProviderSportsData, ev.Provider)
	assert.Equal(t, "1", ev.ProviderEventID)
	assert.Equal(t, "basketball", ev.SportSlug)
	assert.Equal(t, "NBA", ev.League)
	assert.Equal(t, "nba", ev.Metadata["provider_sport"])
}

// 计数服务：记录每个路径的请求次数，主队赔率可在两次运行之间修改
type countingServer struct {
	mu            sync.Mutex
	calls         map[string]int
	homeMoneyLine int
}

func (s *countingServer) handler(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.calls[r.URL.Path]++
	home := s.homeMoneyLine
	s.mu.Unlock()

	switch r.URL.Path {
	case "/v3/nba/scores/json/GamesByDate/2026-02-10":
		_, _ = w.Write([]byte(`[{"GameID": 1, "DateTimeUTC": "2026-02-10T20:00:00Z", "HomeTeam": "NYK", "AwayTeam": "BOS", "Status": "Scheduled"}]`))
	case "/v3/nba/odds/json/GameOddsByDate/2026-02-10":
		_, _ = fmt.Fprintf(w, `[{"GameId": 1, "DateTime": "2026-02-10T20:00:00", "PregameOdds": [
			{"Sportsbook": "BookA", "HomeMoneyLine": %d, "AwayMoneyLine": 130}]}]`, home)
	default:
		_, _ = w.Write([]byte(`[]`))
	}
}

func (s *countingServer) count(path string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[path]
}

func newCountingProvider(t *testing.T) (*Provider, *countingServer) {
	t.Helper()
	cs := &countingServer{calls: map[string]int{}, homeMoneyLine: -150}
	srv := httptest.NewServer(http.HandlerFunc(cs.handler))
	t.Cleanup(srv.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := &config.PlatformConfig{BaseURL: srv.URL + "/v3", AuthToken: "k"}
	client := NewClient(cfg, logger, httpclient.WithSleep(func(context.Context, time.Duration) error { return nil }))
	return NewProviderWithClient(client, logger), cs
}

func nbaRequest(t *testing.T, sports sportsmap.Map) interfaces.CandidateRequest {
	t.Helper()
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	return interfaces.CandidateRequest{
		Mode:     model.ModeDaily,
		Sports:   sports,
		Markets:  []string{"h2h"},
		Window:   anchoring.WindowForMode(model.ModeDaily, now),
		Now:      now,
		Location: madrid(t),
	}
}

func homeOdds(t *testing.T, candidates []model.CandidatePick) float64 {
	t.Helper()
	require.NotEmpty(t, candidates)
	for _, o := range candidates[0].Options {
		if o.Label == "NYK" {
			return o.Odds
		}
	}
	t.Fatalf("home option missing: %+v", candidates[0].Options)
	return 0
}

func TestProviderRunsDoNotShareResponses(t *testing.T) {
	p, cs := newCountingProvider(t)
	sports := sportsmap.Map{Sports: map[string]sportsmap.Entry{
		"basketball_nba": {AppSlug: "basketball", League: "NBA", AllowDaily: true, AllowWeekly: true},
	}}
	ctx := context.Background()

	first, _, err := p.FetchCandidates(ctx, nbaRequest(t, sports))
	require.NoError(t, err)
	assert.InDelta(t, 1.0+100.0/150.0, homeOdds(t, first), 1e-9)

	cs.mu.Lock()
	cs.homeMoneyLine = 200
	cs.mu.Unlock()

	second, _, err := p.FetchCandidates(ctx, nbaRequest(t, sports))
	require.NoError(t, err)
	assert.InDelta(t, 3.0, homeOdds(t, second), 1e-9)
	assert.Equal(t, 2, cs.count("/v3/nba/odds/json/GameOddsByDate/2026-02-10"))
	assert.Equal(t, 2, cs.count("/v3/nba/scores/json/GamesByDate/2026-02-10"))
}

func TestProviderReusesScoresWithinRun(t *testing.T) {
	p, cs := newCountingProvider(t)
	// 两个映射落到同一个 nba 目标
	sports := sportsmap.Map{Sports: map[string]sportsmap.Entry{
		"basketball_nba":           {AppSlug: "basketball", League: "NBA", AllowDaily: true, AllowWeekly: true},
		"basketball_nba_preseason": {AppSlug: "basketball", League: "NBA Preseason", AllowDaily: true, AllowWeekly: true, ProviderSport: "nba"},
	}}

	_, _, err := p.FetchCandidates(context.Background(), nbaRequest(t, sports))
	require.NoError(t, err)
	for _, day := range []string{"2026-02-10", "2026-02-11"} {
		assert.Equal(t, 1, cs.count("/v3/nba/scores/json/GamesByDate/"+day), day)
		assert.Equal(t, 1, cs.count("/v3/nba/odds/json/GameOddsByDate/"+day), day)
	}

	_, err = p.FetchCalendar(context.Background(), interfaces.CalendarRequest{
		Sports:   sports,
		Now:      time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC),
		SyncDays: 1,
		Location: madrid(t),
	})
	require.NoError(t, err)
	// 日历是新的一次运行，重新请求一次
	assert.Equal(t, 2, cs.count("/v3/nba/scores/json/GamesByDate/2026-02-10"))
}
