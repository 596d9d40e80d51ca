package sportsdata

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"time"

	"PickForge/internal/config"
	"PickForge/internal/model"
	"PickForge/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

// ErrClient SportsData 不可恢复错误，可用 errors.Is 判断
var ErrClient = errors.New("sportsdata client error")

type ClientError struct {
	Code    int
	Message string
}

func (e *ClientError) Error() string { return e.Message }

func (e *ClientError) Is(target error) bool { return target == ErrClient }

const defaultRetries = 3

// Client SportsData.io 客户端，本身无状态；运行内复用见 session
type Client struct {
	cfg     *config.PlatformConfig
	exec    *httpclient.Executor
	logger  *logrus.Logger
	baseURL string
	origin  string
}

func NewClient(cfg *config.PlatformConfig, logger *logrus.Logger, opts ...httpclient.ExecutorOption) *Client {
	opts = append([]httpclient.ExecutorOption{httpclient.WithRetries(defaultRetries)}, opts...)
	base := strings.TrimRight(cfg.BaseURL, "/")
	origin := base
	if strings.HasSuffix(base, "/v3") || strings.HasSuffix(base, "/v4") {
		origin = base[:len(base)-3]
	}
	return &Client{
		cfg:     cfg,
		exec:    httpclient.NewExecutor(config.PlatformSportsData, cfg, logger, opts...),
		logger:  logger,
		baseURL: base,
		origin:  origin,
	}
}

// GetScoresByDate /{code}/scores/json/GamesByDate/{date}
func (c *Client) GetScoresByDate(ctx context.Context, code string, day time.Time) (model.RawList, error) {
	return c.request(ctx, fmt.Sprintf("/%s/scores/json/GamesByDate/%s", code, model.DateISO(day)), nil)
}

// GetGameOddsByDate /{code}/odds/json/GameOddsByDate/{date}
func (c *Client) GetGameOddsByDate(ctx context.Context, code string, day time.Time) (model.RawList, error) {
	return c.request(ctx, fmt.Sprintf("/%s/odds/json/GameOddsByDate/%s", code, model.DateISO(day)), nil)
}

// GetSoccerScoresByDate 足球走 v4 + 赛事代码
func (c *Client) GetSoccerScoresByDate(ctx context.Context, competition string, day time.Time) (model.RawList, error) {
	comp := strings.ToUpper(strings.TrimSpace(competition))
	return c.request(ctx, fmt.Sprintf("%s/v4/soccer/scores/json/GamesByDate/%s/%s", c.origin, comp, model.DateISO(day)), nil)
}

func (c *Client) GetSoccerGameOddsByDate(ctx context.Context, competition string, day time.Time) (model.RawList, error) {
	comp := strings.ToUpper(strings.TrimSpace(competition))
	return c.request(ctx, fmt.Sprintf("%s/v4/soccer/odds/json/GameOddsByDate/%s/%s", c.origin, comp, model.DateISO(day)), nil)
}

// Scores 按目标分派到足球或普通接口
func (c *Client) Scores(ctx context.Context, t Target, day time.Time) (model.RawList, error) {
	if t.Code == "soccer" && t.Competition != "" {
		return c.GetSoccerScoresByDate(ctx, t.Competition, day)
	}
	return c.GetScoresByDate(ctx, t.Code, day)
}

func (c *Client) Odds(ctx context.Context, t Target, day time.Time) (model.RawList, error) {
	if t.Code == "soccer" && t.Competition != "" {
		return c.GetSoccerGameOddsByDate(ctx, t.Competition, day)
	}
	return c.GetGameOddsByDate(ctx, t.Code, day)
}

func (c *Client) request(ctx context.Context, path string, params url.Values) (model.RawList, error) {
	// 足球走绝对地址，报错时只展示 /soccer/... 部分
	display := strings.TrimPrefix(path, c.origin+"/v4")
	endpoint := path
	if !strings.HasPrefix(path, "http://") && !strings.HasPrefix(path, "https://") {
		endpoint = c.baseURL + path
	}
	full := url.Values{"key": {c.cfg.AuthToken}}
	for k, vs := range params {
		full[k] = vs
	}

	resp, err := c.exec.Get(ctx, endpoint, full, nil)
	if err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) {
			return nil, &ClientError{Code: se.Code, Message: fmt.Sprintf("SportsData request failed: %d %s", se.Code, se.Body)}
		}
		return nil, &ClientError{Message: fmt.Sprintf("SportsData request failed: %v", err)}
	}

	var list model.RawList
	if err := json.Unmarshal(resp.Body, &list); err != nil || list == nil {
		return nil, &ClientError{Code: resp.Status, Message: fmt.Sprintf("Expected list response from %s", display)}
	}

	c.logger.WithFields(logrus.Fields{"path": display, "count": len(list)}).Debug("SportsData 请求完成")
	return list, nil
}
