package httpclient

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"PickForge/internal/config"

	"github.com/sirupsen/logrus"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

// StatusError 上游返回 >=400
type StatusError struct {
	Code int
	Body string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("%d %s", e.Code, e.Body)
}

// Retryable 429 与 5xx 可重试
func (e *StatusError) Retryable() bool {
	return e.Code == http.StatusTooManyRequests || e.Code >= 500
}

// Response 已读完的响应
type Response struct {
	Status int
	Header http.Header
	Body   []byte
}

// Executor 单个上游的请求执行器：熔断包住整次调用，每次尝试前限速，失败按指数退避重试
type Executor struct {
	name    string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	limiter *rate.Limiter
	retries int
	backoff time.Duration
	logger  *logrus.Logger
	sleep   func(ctx context.Context, d time.Duration) error
}

type ExecutorOption func(*Executor)

// WithRetries 配置中 retry_count>0 时以配置为准
func WithRetries(n int) ExecutorOption {
	return func(e *Executor) { e.retries = n }
}

func WithBackoff(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.backoff = d }
}

// WithSleep 替换退避等待，测试用
func WithSleep(fn func(ctx context.Context, d time.Duration) error) ExecutorOption {
	return func(e *Executor) { e.sleep = fn }
}

// WithClient 替换底层 http.Client
func WithClient(c *http.Client) ExecutorOption {
	return func(e *Executor) { e.client = c }
}

func NewExecutor(name string, cfg *config.PlatformConfig, logger *logrus.Logger, opts ...ExecutorOption) *Executor {
	e := &Executor{
		name:    name,
		retries: 3,
		backoff: time.Second,
		logger:  logger,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.client == nil {
		e.client = NewHTTPClient(name, cfg, logger)
	}
	if cfg.RetryCount > 0 {
		e.retries = cfg.RetryCount
	}
	if cfg.BackoffMS > 0 {
		e.backoff = time.Duration(cfg.BackoffMS) * time.Millisecond
	}
	if cfg.RatePerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(cfg.RatePerSecond), 1)
	}
	e.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.Requests >= 3 && failureRatio >= 0.6
		},
		// 4xx 是调用方问题，不计入熔断
		IsSuccessful: func(err error) bool {
			var se *StatusError
			if errors.As(err, &se) {
				return !se.Retryable()
			}
			return err == nil
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.WithFields(logrus.Fields{
				"component": "circuit_breaker",
				"service":   name,
				"from":      from.String(),
				"to":        to.String(),
			}).Info("熔断器状态变化")
		},
	})
	return e
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Name 上游名
func (e *Executor) Name() string { return e.name }

// Get 发送 GET，query 合并到 URL 已有参数之后
func (e *Executor) Get(ctx context.Context, rawURL string, query url.Values, header http.Header) (*Response, error) {
	return e.Do(ctx, http.MethodGet, rawURL, query, nil, header)
}

// PostJSON 发送 JSON 请求体
func (e *Executor) PostJSON(ctx context.Context, rawURL string, body []byte, header http.Header) (*Response, error) {
	h := header.Clone()
	if h == nil {
		h = http.Header{}
	}
	h.Set("Content-Type", "application/json")
	return e.Do(ctx, http.MethodPost, rawURL, nil, body, h)
}

// Do 429/5xx 与网络错误按 backoff·2^attempt 退避，最多重试 retries 次；其余 >=400 立即返回 StatusError。
// 熔断器按整次调用计数。
func (e *Executor) Do(ctx context.Context, method, rawURL string, query url.Values, body []byte, header http.Header) (*Response, error) {
	target, err := buildURL(rawURL, query)
	if err != nil {
		return nil, err
	}

	out, err := e.breaker.Execute(func() (interface{}, error) {
		return e.withRetry(ctx, method, target, body, header)
	})
	if err != nil {
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return nil, fmt.Errorf("%s 熔断中: %w", e.name, err)
		}
		return nil, err
	}
	return out.(*Response), nil
}

func (e *Executor) withRetry(ctx context.Context, method, target string, body []byte, header http.Header) (*Response, error) {
	var lastErr error
	for attempt := 0; attempt <= e.retries; attempt++ {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return nil, fmt.Errorf("等待限速失败: %w", err)
			}
		}

		resp, err := e.once(ctx, method, target, body, header)
		if err == nil {
			return resp, nil
		}
		lastErr = err

		var se *StatusError
		if errors.As(err, &se) && !se.Retryable() {
			return nil, err
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if attempt == e.retries {
			break
		}

		wait := e.backoff * time.Duration(1<<attempt)
		e.logger.WithFields(logrus.Fields{
			"service": e.name,
			"attempt": attempt + 1,
			"wait":    wait.String(),
		}).WithError(err).Warn("请求失败，退避后重试")
		if err := e.sleep(ctx, wait); err != nil {
			return nil, err
		}
	}
	return nil, lastErr
}

// State 熔断器当前状态
func (e *Executor) State() gobreaker.State {
	return e.breaker.State()
}

func (e *Executor) once(ctx context.Context, method, target string, body []byte, header http.Header) (*Response, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, reader)
	if err != nil {
		return nil, fmt.Errorf("构建请求失败: %w", err)
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	resp, err := e.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("请求 %s 失败: %w", e.name, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("读取 %s 响应失败: %w", e.name, err)
	}
	if resp.StatusCode >= 400 {
		return nil, &StatusError{Code: resp.StatusCode, Body: string(data)}
	}
	return &Response{Status: resp.StatusCode, Header: resp.Header, Body: data}, nil
}

func buildURL(rawURL string, query url.Values) (string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", fmt.Errorf("非法URL %q: %w", rawURL, err)
	}
	if len(query) > 0 {
		q := u.Query()
		for k, vs := range query {
			for _, v := range vs {
				q.Add(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}
	return u.String(), nil
}
