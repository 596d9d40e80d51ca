package theodds

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"PickForge/internal/config"
	"PickForge/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	cfg := &config.PlatformConfig{BaseURL: srv.URL + "/", AuthToken: "k1"}
	return NewClient(cfg, logger, httpclient.WithSleep(func(context.Context, time.Duration) error { return nil }))
}

func TestGetOddsQuery(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/sports/soccer_epl/odds", r.URL.Path)
		q := r.URL.Query()
		assert.Equal(t, "k1", q.Get("apiKey"))
		assert.Equal(t, "eu,uk", q.Get("regions"))
		assert.Equal(t, "h2h,totals", q.Get("markets"))
		assert.Equal(t, "decimal", q.Get("oddsFormat"))
		assert.Equal(t, "iso", q.Get("dateFormat"))
		assert.Equal(t, "2026-02-10T10:00:00Z", q.Get("commenceTimeFrom"))
		assert.Equal(t, "2026-02-11T10:00:00Z", q.Get("commenceTimeTo"))
		assert.Equal(t, "", q.Get("bookmakers"))
		_, _ = w.Write([]byte(`[{"id":"a"},{"id":"b"}]`))
	})

	from := time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC)
	list, err := c.GetOdds(context.Background(), OddsQuery{
		SportKey: "soccer_epl",
		Regions:  []string{"eu", "uk"},
		Markets:  []string{"h2h", "totals"},
		From:     from,
		To:       from.Add(24 * time.Hour),
	})
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestGetEventsRejectsNonList(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "iso", r.URL.Query().Get("dateFormat"))
		_, _ = w.Write([]byte(`{"message":"nope"}`))
	})
	_, err := c.GetEvents(context.Background(), "basketball_nba")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrClient))
	assert.Equal(t, "Expected list response from /v4/sports/basketball_nba/events", err.Error())
}

func TestRequestErrors(t *testing.T) {
	calls := 0
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.WriteHeader(http.StatusUnprocessableEntity)
		_, _ = w.Write([]byte("bad markets"))
	})
	_, err := c.GetSports(context.Background())
	require.Error(t, err)
	assert.Equal(t, "Odds API request failed: 422 bad markets", err.Error())

	var ce *ClientError
	require.True(t, errors.As(err, &ce))
	assert.Equal(t, 422, ce.Code)
	assert.Equal(t, 3, calls)
}

func TestOddsQueryContext(t *testing.T) {
	from := time.Date(2026, 2, 10, 10, 0, 0, 0, time.UTC)
	ctx := OddsQuery{Regions: []string{"eu"}, Markets: []string{"h2h"}, From: from, To: from}.Context()
	assert.Equal(t, []string{}, ctx["bookmakers"])
	assert.Equal(t, "2026-02-10T10:00:00Z", ctx["commenceTimeFrom"])
	assert.Equal(t, "decimal", ctx["oddsFormat"])
}
