package httpclient

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync/atomic"
	"testing"
	"time"

	"PickForge/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestExecutor(t *testing.T, retries int, waits *[]time.Duration) *Executor {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewExecutor("test", &config.PlatformConfig{Timeout: 5}, logger,
		WithRetries(retries),
		WithSleep(func(_ context.Context, d time.Duration) error {
			*waits = append(*waits, d)
			return nil
		}),
	)
}

func TestExecutorRetriesOnServerErrors(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&calls, 1)
		switch n {
		case 1:
			w.WriteHeader(http.StatusTooManyRequests)
		case 2:
			w.WriteHeader(http.StatusBadGateway)
		default:
			assert.Equal(t, "v", r.URL.Query().Get("k"))
			assert.Equal(t, "1", r.URL.Query().Get("fixed"))
			_, _ = w.Write([]byte(`[1,2]`))
		}
	}))
	defer srv.Close()

	var waits []time.Duration
	e := newTestExecutor(t, 4, &waits)
	resp, err := e.Get(context.Background(), srv.URL+"/x?fixed=1", url.Values{"k": {"v"}}, nil)
	require.NoError(t, err)
	assert.Equal(t, `[1,2]`, string(resp.Body))
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, waits)
}

func TestExecutorStopsOnClientError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte("bad key"))
	}))
	defer srv.Close()

	var waits []time.Duration
	e := newTestExecutor(t, 4, &waits)
	_, err := e.Get(context.Background(), srv.URL, nil, nil)
	require.Error(t, err)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, 401, se.Code)
	assert.Equal(t, "bad key", se.Body)
	assert.False(t, se.Retryable())
	assert.Equal(t, int32(1), atomic.LoadInt32(&calls))
	assert.Empty(t, waits)
}

func TestExecutorExhaustsRetries(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte("down"))
	}))
	defer srv.Close()

	var waits []time.Duration
	e := newTestExecutor(t, 2, &waits)
	_, err := e.Get(context.Background(), srv.URL, nil, nil)

	var se *StatusError
	require.True(t, errors.As(err, &se))
	assert.Equal(t, "503 down", se.Error())
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, waits)
}

func TestExecutorBreakerOpens(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	var waits []time.Duration
	e := newTestExecutor(t, 0, &waits)
	for i := 0; i < 3; i++ {
		_, err := e.Get(context.Background(), srv.URL, nil, nil)
		require.Error(t, err)
	}
	assert.Equal(t, gobreaker.StateOpen, e.State())

	_, err := e.Get(context.Background(), srv.URL, nil, nil)
	assert.ErrorIs(t, err, gobreaker.ErrOpenState)
	assert.Equal(t, int32(3), atomic.LoadInt32(&calls))
}

func TestExecutorPostJSONAndGzip(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		assert.Equal(t, "Bearer t", r.Header.Get("Authorization"))
		assert.Equal(t, "gzip", r.Header.Get("Accept-Encoding"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, `{"a":1}`, string(body))

		var buf bytes.Buffer
		gz := gzip.NewWriter(&buf)
		_, _ = gz.Write([]byte(`{"ok":true}`))
		_ = gz.Close()
		w.Header().Set("Content-Encoding", "gzip")
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	var waits []time.Duration
	e := newTestExecutor(t, 0, &waits)
	resp, err := e.PostJSON(context.Background(), srv.URL, []byte(`{"a":1}`), http.Header{"Authorization": {"Bearer t"}})
	require.NoError(t, err)
	assert.Equal(t, `{"ok":true}`, string(resp.Body))
}

func TestNewHTTPClientProxy(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	c := NewHTTPClient("theodds", &config.PlatformConfig{Proxy: "http://127.0.0.1:8888"}, logger)
	assert.Equal(t, 30*time.Second, c.Timeout)
	ut, ok := c.Transport.(*upstreamTransport)
	require.True(t, ok)
	tr := ut.base.(*http.Transport)
	require.NotNil(t, tr.Proxy)
	assert.Equal(t, 30*time.Second, tr.ResponseHeaderTimeout)

	req, _ := http.NewRequest(http.MethodGet, "http://example.com", nil)
	proxyURL, err := tr.Proxy(req)
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:8888", proxyURL.Host)

	c = NewHTTPClient("theodds", &config.PlatformConfig{Proxy: "://bad", Timeout: 7}, logger)
	assert.Equal(t, 7*time.Second, c.Timeout)
	assert.Nil(t, c.Transport.(*upstreamTransport).base.(*http.Transport).Proxy)
}

func TestNewHTTPClientDefaultHeaders(t *testing.T) {
	var gotUA, gotAccept []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUA = append(gotUA, r.Header.Get("User-Agent"))
		gotAccept = append(gotAccept, r.Header.Get("Accept"))
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()

	logger := logrus.New()
	logger.SetOutput(io.Discard)
	c := NewHTTPClient("sportsdata", &config.PlatformConfig{}, logger)

	req, _ := http.NewRequest(http.MethodGet, srv.URL, nil)
	resp, err := c.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Empty(t, req.Header.Get("User-Agent"), "caller request must not be mutated")

	req, _ = http.NewRequest(http.MethodGet, srv.URL, nil)
	req.Header.Set("User-Agent", "custom")
	req.Header.Set("Accept", "text/plain")
	resp, err = c.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()

	assert.Equal(t, []string{"PickForge/1.0 (sportsdata)", "custom"}, gotUA)
	assert.Equal(t, []string{"application/json", "text/plain"}, gotAccept)
}
