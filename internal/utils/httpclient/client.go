package httpclient

import (
	"compress/gzip"
	"io"
	"net/http"
	"net/url"
	"time"

	"PickForge/internal/config"

	"github.com/sirupsen/logrus"
)

const (
	// defaultTimeout 配置未给超时时的兜底（秒）
	defaultTimeout = 30
	userAgentBase  = "PickForge/1.0"
)

// NewHTTPClient 为单个上游构建 http.Client：每个上游一个连接池，带代理、超时、User-Agent 与 gzip 解压
func NewHTTPClient(service string, cfg *config.PlatformConfig, logger *logrus.Logger) *http.Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	// 每个 client 只打一个 host，空闲连接按 host 上限放宽
	base := &http.Transport{
		MaxIdleConns:          16,
		MaxIdleConnsPerHost:   8,
		IdleConnTimeout:       90 * time.Second,
		TLSHandshakeTimeout:   10 * time.Second,
		ResponseHeaderTimeout: time.Duration(timeout) * time.Second,
	}
	if cfg.Proxy != "" {
		proxyURL, err := url.Parse(cfg.Proxy)
		if err != nil {
			logger.WithError(err).WithFields(logrus.Fields{"service": service, "proxy": cfg.Proxy}).
				Warn("代理地址解析失败，将不使用代理")
		} else {
			base.Proxy = http.ProxyURL(proxyURL)
			logger.WithFields(logrus.Fields{"service": service, "proxy": cfg.Proxy}).Info("HTTP客户端已配置代理")
		}
	}

	return &http.Client{
		Timeout: time.Duration(timeout) * time.Second,
		Transport: &upstreamTransport{
			base:      base,
			userAgent: userAgentBase + " (" + service + ")",
			logger:    logger.WithField("service", service),
		},
	}
}

// upstreamTransport 补默认请求头；显式声明 gzip 后 Transport 不再自动解压，这里自行处理
type upstreamTransport struct {
	base      http.RoundTripper
	userAgent string
	logger    *logrus.Entry
}

func (t *upstreamTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	// RoundTrip 不得修改调用方的请求
	req = req.Clone(req.Context())
	if req.Header.Get("User-Agent") == "" {
		req.Header.Set("User-Agent", t.userAgent)
	}
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	req.Header.Set("Accept-Encoding", "gzip")

	resp, err := t.base.RoundTrip(req)
	if err != nil {
		return nil, err
	}
	if resp.Header.Get("Content-Encoding") != "gzip" {
		return resp, nil
	}

	gz, err := gzip.NewReader(resp.Body)
	if err != nil {
		t.logger.WithError(err).Warn("gzip解压失败，返回原始响应")
		return resp, nil
	}
	resp.Body = &gzipBody{Reader: gz, raw: resp.Body}
	resp.Header.Del("Content-Encoding")
	resp.ContentLength = -1
	return resp, nil
}

// gzipBody 关闭时同时关闭解压reader与原始响应体
type gzipBody struct {
	*gzip.Reader
	raw io.ReadCloser
}

func (g *gzipBody) Close() error {
	gzErr := g.Reader.Close()
	if err := g.raw.Close(); err != nil {
		return err
	}
	return gzErr
}
