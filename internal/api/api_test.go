package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"PickForge/internal/cache"
	"PickForge/internal/llm"
	"PickForge/internal/model"
	"PickForge/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockService struct {
	mock.Mock
}

func (m *mockService) RunPicks(ctx context.Context, req service.PicksRequest) ([]service.PackResult, error) {
	args := m.Called(ctx, req)
	results, _ := args.Get(0).([]service.PackResult)
	return results, args.Error(1)
}

func (m *mockService) LatestPack(ctx context.Context, mode string) (*cache.LatestPack, error) {
	args := m.Called(ctx, mode)
	latest, _ := args.Get(0).(*cache.LatestPack)
	return latest, args.Error(1)
}

func (m *mockService) ListPacks(ctx context.Context, roundID string, limit int) ([]model.PickPack, error) {
	args := m.Called(ctx, roundID, limit)
	packs, _ := args.Get(0).([]model.PickPack)
	return packs, args.Error(1)
}

func (m *mockService) RunFeatured(ctx context.Context, req service.FeaturedRequest) (service.FeaturedResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(service.FeaturedResult), args.Error(1)
}

func (m *mockService) ListFeatured(ctx context.Context, featuredDate string) ([]model.FeaturedSelection, error) {
	args := m.Called(ctx, featuredDate)
	rows, _ := args.Get(0).([]model.FeaturedSelection)
	return rows, args.Error(1)
}

func (m *mockService) BuildSportsMap(ctx context.Context, req service.SportsMapRequest) (service.SportsMapResult, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(service.SportsMapResult), args.Error(1)
}

func newRouter(svc *mockService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	r := gin.New()
	RegisterRoutes(r, NewPicksHandler(svc, logger), NewFeaturedHandler(svc, logger), NewSportsMapHandler(svc, logger))
	return r
}

func do(r *gin.Engine, method, path, body string) (*httptest.ResponseRecorder, map[string]interface{}) {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	var out map[string]interface{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestHealthz(t *testing.T) {
	w, body := do(newRouter(&mockService{}), http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", body["status"])
}

func TestRunPicks(t *testing.T) {
	useOpenAI := false
	tests := []struct {
		name       string
		body       string
		req        service.PicksRequest
		results    []service.PackResult
		err        error
		wantStatus int
	}{
		{
			name:       "ok",
			body:       `{"round_id":"r1","mode":"daily","use_openai":false}`,
			req:        service.PicksRequest{RoundID: "r1", Mode: "daily", UseOpenAI: &useOpenAI},
			results:    []service.PackResult{{Mode: model.ModeDaily, Selected: 3}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "empty body uses config",
			req:        service.PicksRequest{},
			results:    []service.PackResult{{Mode: model.ModeWeekly, Selected: 8}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "no selection",
			body:       `{"mode":"weekly"}`,
			req:        service.PicksRequest{Mode: "weekly"},
			err:        &service.NoSelectionError{Mode: model.ModeWeekly},
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "upstream failure",
			body:       `{"mode":"daily"}`,
			req:        service.PicksRequest{Mode: "daily"},
			err:        errors.New("拉取daily候选失败: context canceled"),
			wantStatus: http.StatusInternalServerError,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockService{}
			svc.On("RunPicks", mock.Anything, tt.req).Return(tt.results, tt.err)

			w, body := do(newRouter(svc), http.MethodPost, "/api/picks/run", tt.body)
			assert.Equal(t, tt.wantStatus, w.Code)
			assert.NotEmpty(t, body["run_id"])
			if tt.err != nil {
				assert.Equal(t, tt.err.Error(), body["error"])
			} else {
				assert.Len(t, body["results"], len(tt.results))
			}
			svc.AssertExpectations(t)
		})
	}
}

func TestRunPicksBadJSON(t *testing.T) {
	w, _ := do(newRouter(&mockService{}), http.MethodPost, "/api/picks/run", `{"mode":`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLatestPack(t *testing.T) {
	svc := &mockService{}
	svc.On("LatestPack", mock.Anything, "daily").Return(&cache.LatestPack{ID: "p1", PackType: "daily", AnchorDate: "2026-03-10"}, nil)
	svc.On("LatestPack", mock.Anything, "weekly").Return(nil, nil)
	svc.On("LatestPack", mock.Anything, "both").Return(nil, errors.New("invalid mode: both"))
	r := newRouter(svc)

	w, body := do(r, http.MethodGet, "/api/picks/packs/latest/daily", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "p1", body["id"])
	assert.Equal(t, "2026-03-10", body["anchor_date"])

	w, _ = do(r, http.MethodGet, "/api/picks/packs/latest/weekly", "")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, body = do(r, http.MethodGet, "/api/picks/packs/latest/both", "")
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.Equal(t, "invalid mode: both", body["error"])
}

func TestListPacks(t *testing.T) {
	svc := &mockService{}
	svc.On("ListPacks", mock.Anything, "r1", 5).Return([]model.PickPack{{ID: "p1", RoundID: "r1"}}, nil)
	r := newRouter(svc)

	w, body := do(r, http.MethodGet, "/api/picks/packs?round_id=r1&limit=5", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["packs"], 1)

	w, _ = do(r, http.MethodGet, "/api/picks/packs", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFeaturedRoutes(t *testing.T) {
	svc := &mockService{}
	req := service.FeaturedRequest{FeaturedDate: "2026-03-10", SyncCalendar: true, BuildFeatured: true}
	svc.On("RunFeatured", mock.Anything, req).Return(service.FeaturedResult{
		Mode:             "featured_pipeline",
		FeaturedDate:     "2026-03-10",
		FeaturedSelected: 4,
		Warnings:         []string{},
	}, nil)
	league := "NHL"
	svc.On("ListFeatured", mock.Anything, "2026-03-10").Return([]model.FeaturedSelection{
		{EventID: "e1", FeaturedDate: "2026-03-10", SportSlug: "hockey", League: &league, Bucket: model.BucketToday},
	}, nil)
	svc.On("ListFeatured", mock.Anything, "2026-03-11").Return(nil, nil)
	r := newRouter(svc)

	w, body := do(r, http.MethodPost, "/api/featured/run", `{"featured_date":"2026-03-10","sync_calendar":true,"build_featured":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	result := body["result"].(map[string]interface{})
	assert.Equal(t, "featured_pipeline", result["mode"])
	assert.Equal(t, float64(4), result["featured_selected"])

	w, body = do(r, http.MethodGet, "/api/featured/2026-03-10", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, body["events"], 1)

	w, body = do(r, http.MethodGet, "/api/featured/2026-03-11", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, []interface{}{}, body["events"])
	svc.AssertExpectations(t)
}

func TestBuildSportsMap(t *testing.T) {
	svc := &mockService{}
	svc.On("BuildSportsMap", mock.Anything, service.SportsMapRequest{Mode: "both"}).Return(service.SportsMapResult{
		Action:         "build_sports_map",
		Mode:           "both",
		GeneratedKeys:  []string{"basketball_nba"},
		GeneratedCount: 1,
	}, nil)
	useOpenAI := true
	svc.On("BuildSportsMap", mock.Anything, service.SportsMapRequest{UseOpenAI: &useOpenAI}).Return(service.SportsMapResult{}, llm.ErrMissingAPIKey)
	r := newRouter(svc)

	w, body := do(r, http.MethodPost, "/api/sports-map/build", `{"mode":"both"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, float64(1), body["generated_count"])

	w, body = do(r, http.MethodPost, "/api/sports-map/build", `{"use_openai":true}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "OPENAI_API_KEY is required when --use-openai=true", body["error"])
}
