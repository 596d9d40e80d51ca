package theodds

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
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
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockArchiver struct {
	mock.Mock
}

func (m *mockArchiver) Archive(mode string, sportKey string, fetchedAt time.Time, response model.RawList, requestContext map[string]interface{}) (string, error) {
	args := m.Called(mode, sportKey, fetchedAt, response, requestContext)
	return args.String(0), args.Error(1)
}

const eplOdds = `[{"id": "e1", "commence_time": "2026-02-10T18:00:00Z", "home_team": "A", "away_team": "B",
	"sport_title": "EPL", "bookmakers": [{"key": "b1", "markets": [{"key": "h2h", "outcomes": [
	{"name": "A", "price": 2.1}, {"name": "B", "price": 3.4}, {"name": "Draw", "price": 3.1}]}]}]}]`

const eplEvents = `[
	{"id": "e1", "commence_time": "2026-02-10T18:00:00Z", "home_team": "A", "away_team": "B", "sport_title": "EPL"},
	{"id": "e2", "commence_time": "2026-02-16T18:00:00Z", "home_team": "C", "away_team": "D"},
	{"id": "e3", "commence_time": "2026-02-14T18:00:00Z", "teams": ["E", "F"], "completed": true}
]`

func testSports() sportsmap.Map {
	return sportsmap.Map{Sports: map[string]sportsmap.Entry{
		"basketball_nba": {AppSlug: "basketball", League: "NBA", AllowDaily: true, AllowWeekly: true},
		"cricket_ipl":    {AppSlug: "cricket", League: "IPL", AllowDaily: true, AllowWeekly: true},
		"golf_masters":   {AppSlug: "golf", League: "Masters", AllowDaily: false, AllowWeekly: true},
		"soccer_epl":     {AppSlug: "soccer", League: "Premier League", AllowDaily: true, AllowWeekly: true},
	}}
}

func newTestProvider(t *testing.T, archiver interfaces.SnapshotArchiver, requested *[]string) *Provider {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*requested = append(*requested, r.URL.Path)
		switch r.URL.Path {
		case "/v4/sports/soccer_epl/odds", "/v4/sports/golf_masters/odds":
			_, _ = w.Write([]byte(eplOdds))
		case "/v4/sports/soccer_epl/events":
			_, _ = w.Write([]byte(eplEvents))
		default:
			w.WriteHeader(http.StatusUnauthorized)
			_, _ = w.Write([]byte("bad key"))
		}
	}))
	t.Cleanup(srv.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := &config.PlatformConfig{BaseURL: srv.URL, AuthToken: "k"}
	client := NewClient(cfg, logger, httpclient.WithSleep(func(context.Context, time.Duration) error { return nil }))
	return NewProviderWithClient(client, archiver, logger)
}

func TestProviderFetchCandidates(t *testing.T) {
	var requested []string
	archiver := new(mockArchiver)
	p := newTestProvider(t, archiver, &requested)
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)
	archiver.On("Archive", "daily", "soccer_epl", now, mock.Anything, mock.MatchedBy(func(rc map[string]interface{}) bool {
		return rc["oddsFormat"] == "decimal" && rc["commenceTimeFrom"] == "2026-02-10T09:00:00Z"
	})).Return("/tmp/x.json", nil).Once()

	candidates, warnings, err := p.FetchCandidates(context.Background(), interfaces.CandidateRequest{
		Mode:    model.ModeDaily,
		Sports:  testSports(),
		Markets: []string{"h2h"},
		Regions: []string{"eu"},
		Window:  anchoring.WindowForMode(model.ModeDaily, now),
		Now:     now,
	})
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "soccer_epl:e1:h2h", candidates[0].CandidateID)
	assert.Equal(t, []string{
		"Skipping sport_key=basketball_nba: odds fetch failed (Odds API request failed: 401 bad key)",
		"Skipping sport_key=cricket_ipl: app_slug 'cricket' not allowed",
	}, warnings)
	assert.Equal(t, []string{"/v4/sports/basketball_nba/odds", "/v4/sports/soccer_epl/odds"}, requested)
	archiver.AssertExpectations(t)
}

func TestProviderFetchCandidatesAllowedOnly(t *testing.T) {
	var requested []string
	archiver := new(mockArchiver)
	archiver.On("Archive", "daily", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return("", nil)
	p := newTestProvider(t, archiver, &requested)
	now := time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC)

	candidates, warnings, err := p.FetchCandidates(context.Background(), interfaces.CandidateRequest{
		Mode:        model.ModeDaily,
		Sports:      testSports(),
		Markets:     []string{"h2h"},
		Regions:     []string{"eu"},
		Window:      anchoring.WindowForMode(model.ModeDaily, now),
		Now:         now,
		AllowedOnly: true,
	})
	require.NoError(t, err)
	// golf 不看 allow_daily；cricket 静默跳过
	assert.Len(t, candidates, 2)
	assert.Len(t, warnings, 1)
	assert.Equal(t, []string{"/v4/sports/basketball_nba/odds", "/v4/sports/golf_masters/odds", "/v4/sports/soccer_epl/odds"}, requested)
}

func TestProviderFetchCalendar(t *testing.T) {
	var requested []string
	p := newTestProvider(t, nil, &requested)
	loc, err := anchoring.LoadLocation("Europe/Madrid")
	require.NoError(t, err)
	sports := sportsmap.Map{Sports: map[string]sportsmap.Entry{
		"soccer_epl":  {AppSlug: "soccer", League: "Premier League"},
		"cricket_ipl": {AppSlug: "cricket", League: "IPL"},
	}}

	res, err := p.FetchCalendar(context.Background(), interfaces.CalendarRequest{
		Sports:   sports,
		Now:      time.Date(2026, 2, 10, 9, 0, 0, 0, time.UTC),
		Location: loc,
	})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, time.Date(2026, 2, 9, 23, 0, 0, 0, time.UTC), res.Start)
	assert.Equal(t, time.Date(2026, 2, 15, 22, 59, 59, 0, time.UTC), res.End)
	require.Len(t, res.Events, 2)

	first, second := res.Events[0], res.Events[1]
	assert.Equal(t, "e1", first.ProviderEventID)
	assert.Equal(t, "EPL", first.League)
	assert.Equal(t, []string{"A", "B"}, first.Participants)
	assert.Equal(t, "e3", second.ProviderEventID)
	assert.Equal(t, "Premier League", second.League)
	assert.Equal(t, model.StatusFinal, second.Status)
	assert.Equal(t, []string{"E", "F"}, second.Participants)
	assert.Equal(t, []string{"/v4/sports/soccer_epl/events"}, requested)
}
