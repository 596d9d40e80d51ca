package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"PickForge/internal/config"
	"PickForge/internal/utils/httpclient"

	"github.com/sirupsen/logrus"
)

// ErrMissingAPIKey 开启 LLM 但未配置密钥
var ErrMissingAPIKey = errors.New("OPENAI_API_KEY is required when --use-openai=true")

const defaultModel = "gpt-4o-mini"

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatRequest struct {
	Model          string         `json:"model"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
	Messages       []message      `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Client OpenAI chat/completions 客户端，只用 JSON 输出模式
type Client struct {
	baseURL string
	apiKey  string
	model   string
	exec    *httpclient.Executor
	logger  *logrus.Logger
}

// NewClient 未配置 auth_token 时返回 ErrMissingAPIKey
func NewClient(cfg *config.PlatformConfig, logger *logrus.Logger, opts ...httpclient.ExecutorOption) (*Client, error) {
	if strings.TrimSpace(cfg.AuthToken) == "" {
		return nil, ErrMissingAPIKey
	}
	model := cfg.Model
	if model == "" {
		model = defaultModel
	}
	opts = append([]httpclient.ExecutorOption{httpclient.WithRetries(1)}, opts...)
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.AuthToken,
		model:   model,
		exec:    httpclient.NewExecutor(config.PlatformOpenAI, cfg, logger, opts...),
		logger:  logger,
	}, nil
}

// CompleteJSON 发送一次对话并把回复内容解析为 JSON 对象；task 用于错误信息
func (c *Client) CompleteJSON(ctx context.Context, task, system, user string, temperature float64) (map[string]json.RawMessage, error) {
	body, err := json.Marshal(chatRequest{
		Model:          c.model,
		Temperature:    temperature,
		ResponseFormat: responseFormat{Type: "json_object"},
		Messages: []message{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("序列化请求失败: %w", err)
	}

	header := http.Header{}
	header.Set("Authorization", "Bearer "+c.apiKey)
	resp, err := c.exec.PostJSON(ctx, c.baseURL+"/chat/completions", body, header)
	if err != nil {
		var se *httpclient.StatusError
		if errors.As(err, &se) {
			return nil, fmt.Errorf("OpenAI %s failed: %d %s", task, se.Code, se.Body)
		}
		return nil, fmt.Errorf("OpenAI %s failed: %w", task, err)
	}

	var parsed chatResponse
	if err := json.Unmarshal(resp.Body, &parsed); err != nil {
		return nil, fmt.Errorf("解析 OpenAI 响应失败: %w", err)
	}
	content := "{}"
	if len(parsed.Choices) > 0 && parsed.Choices[0].Message.Content != "" {
		content = parsed.Choices[0].Message.Content
	}

	var out map[string]json.RawMessage
	if err := json.Unmarshal([]byte(content), &out); err != nil {
		return nil, fmt.Errorf("OpenAI %s returned invalid JSON: %w", task, err)
	}
	if out == nil {
		out = map[string]json.RawMessage{}
	}
	c.logger.WithFields(logrus.Fields{"task": task, "model": c.model}).Debug("OpenAI 响应已解析")
	return out, nil
}

// compactJSON 无空白的 JSON 文本
func compactJSON(v interface{}) (string, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("序列化提示内容失败: %w", err)
	}
	return string(data), nil
}

// stringField 非字符串视为空
func stringField(obj map[string]json.RawMessage, key string) string {
	raw, ok := obj[key]
	if !ok {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return ""
	}
	return s
}

// stringList 只保留数组中的字符串元素
func stringList(raw json.RawMessage) []string {
	var items []interface{}
	if err := json.Unmarshal(raw, &items); err != nil {
		return nil
	}
	var out []string
	for _, item := range items {
		if s, ok := item.(string); ok {
			out = append(out, s)
		}
	}
	return out
}
