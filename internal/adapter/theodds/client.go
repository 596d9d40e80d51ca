package theodds

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

// ErrClient The Odds API 不可恢复错误，可用 errors.Is 判断
var ErrClient = errors.New("odds api client error")

// ClientError 携带上游状态码（网络错误时为0）
type ClientError struct {
	Code    int
	Message string
}

func (e *ClientError) Error() string { return e.Message }

func (e *ClientError) Is(target error) bool { return target == ErrClient }

const defaultRetries = 4

// OddsQuery /odds 请求参数
type OddsQuery struct {
	SportKey   string
	Regions    []string
	Markets    []string
	From       time.Time
	To         time.Time
	Bookmakers []string
}

// Context 归档时记录的请求上下文
func (q OddsQuery) Context() map[string]interface{} {
	bookmakers := q.Bookmakers
	if bookmakers == nil {
		bookmakers = []string{}
	}
	return map[string]interface{}{
		"regions":          q.Regions,
		"markets":          q.Markets,
		"bookmakers":       bookmakers,
		"commenceTimeFrom": model.ToUTCZ(q.From),
		"commenceTimeTo":   model.ToUTCZ(q.To),
		"oddsFormat":       "decimal",
		"dateFormat":       "iso",
	}
}

type Client struct {
	cfg    *config.PlatformConfig
	exec   *httpclient.Executor
	logger *logrus.Logger
}

func NewClient(cfg *config.PlatformConfig, logger *logrus.Logger, opts ...httpclient.ExecutorOption) *Client {
	opts = append([]httpclient.ExecutorOption{httpclient.WithRetries(defaultRetries)}, opts...)
	return &Client{
		cfg:    cfg,
		exec:   httpclient.NewExecutor(config.PlatformTheOdds, cfg, logger, opts...),
		logger: logger,
	}
}

// GetSports 体育目录
func (c *Client) GetSports(ctx context.Context) (model.RawList, error) {
	return c.request(ctx, "/v4/sports", url.Values{})
}

// GetOdds 某个 sport_key 在时间窗内的赔率
func (c *Client) GetOdds(ctx context.Context, q OddsQuery) (model.RawList, error) {
	params := url.Values{
		"regions":          {strings.Join(q.Regions, ",")},
		"markets":          {strings.Join(q.Markets, ",")},
		"oddsFormat":       {"decimal"},
		"dateFormat":       {"iso"},
		"commenceTimeFrom": {model.ToUTCZ(q.From)},
		"commenceTimeTo":   {model.ToUTCZ(q.To)},
	}
	if len(q.Bookmakers) > 0 {
		params.Set("bookmakers", strings.Join(q.Bookmakers, ","))
	}
	return c.request(ctx, fmt.Sprintf("/v4/sports/%s/odds", q.SportKey), params)
}

// GetEvents 某个 sport_key 的赛程（不含赔率）
func (c *Client) GetEvents(ctx context.Context, sportKey string) (model.RawList, error) {
	return c.request(ctx, fmt.Sprintf("/v4/sports/%s/events", sportKey), url.Values{"dateFormat": {"iso"}})
}

func (c *Client) request(ctx context.Context, path string, params url.Values) (model.RawList, error) {
	params.Set("apiKey", c.cfg.AuthToken)
	endpoint := strings.TrimRight(c.cfg.BaseURL, "/") + path

	resp, err := c.exec.Get(ctx, endpoint, params, nil)
	if err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) {
			return nil, &ClientError{Code: se.Code, Message: fmt.Sprintf("Odds API request failed: %d %s", se.Code, se.Body)}
		}
		return nil, &ClientError{Message: fmt.Sprintf("Odds API request failed: %v", err)}
	}

	var list model.RawList
	if err := json.Unmarshal(resp.Body, &list); err != nil || list == nil {
		return nil, &ClientError{Code: resp.Status, Message: fmt.Sprintf("Expected list response from %s", path)}
	}
	c.logger.WithFields(logrus.Fields{
		"path":      path,
		"count":     len(list),
		"remaining": resp.Header.Get("x-requests-remaining"),
	}).Debug("Odds API 请求完成")
	return list, nil
}
