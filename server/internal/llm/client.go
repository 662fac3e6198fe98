package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"rootjourney/server/internal/config"
)

// Client 协作方 LLM 客户端接口。
// 文本生成与信息抽取都通过它调用；调用方必须对返回内容做防御性解析，
// 并把任何错误降级为确定性兜底，不得让错误穿透对话引擎。
type Client interface {
	// Complete 完成一次文本生成任务。
	Complete(ctx context.Context, messages []Message, opts Options) (string, error)
}

// Message 消息结构
type Message struct {
	Role    string `json:"role"` // "system", "user", "assistant"
	Content string `json:"content"`
}

// Options 单次调用的参数。
type Options struct {
	// Temperature 采样温度：候选问题/软澄清用 0.8，抽取用 0。
	Temperature float64
	// JSONOnly 要求提供商返回纯 JSON（支持 response_format 的提供商生效）。
	JSONOnly bool
}

// NewClient 按配置创建 LLM 客户端。
func NewClient(cfg *config.Config) (Client, error) {
	switch cfg.LLM.Provider {
	case "deepseek":
		// DeepSeek 走 OpenAI 兼容协议，只是换了网关地址与路径前缀。
		return newOpenAIWireClient(cfg.LLM.DeepSeek, "/chat/completions"), nil
	case "openai":
		return newOpenAIWireClient(cfg.LLM.OpenAI, "/v1/chat/completions"), nil
	case "anthropic":
		return NewAnthropicClient(cfg.LLM.Anthropic), nil
	default:
		return nil, fmt.Errorf("unsupported LLM provider: %s", cfg.LLM.Provider)
	}
}

// OpenAIWireClient 按 OpenAI ChatCompletions 协议调用的客户端（OpenAI/DeepSeek 共用）。
type OpenAIWireClient struct {
	config     config.LLMProviderConfig
	path       string
	httpClient *http.Client
}

func newOpenAIWireClient(cfg config.LLMProviderConfig, path string) *OpenAIWireClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &OpenAIWireClient{
		config: cfg,
		path:   path,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Complete 完成文本生成（OpenAI 协议）。
func (c *OpenAIWireClient) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	reqBody := map[string]any{
		"model":       c.config.Model,
		"messages":    messages,
		"temperature": opts.Temperature,
	}
	if c.config.MaxTokens > 0 {
		reqBody["max_tokens"] = c.config.MaxTokens
	}
	if opts.JSONOnly {
		reqBody["response_format"] = map[string]any{"type": "json_object"}
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.config.APIURL+c.path, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.config.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}

	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if len(result.Choices) == 0 {
		return "", fmt.Errorf("no choices in response")
	}

	content := result.Choices[0].Message.Content
	if content == "" {
		return "", fmt.Errorf("empty content in response")
	}

	return content, nil
}

// AnthropicClient Anthropic 客户端
type AnthropicClient struct {
	config     config.LLMProviderConfig
	httpClient *http.Client
}

// NewAnthropicClient 创建 Anthropic 客户端
func NewAnthropicClient(cfg config.LLMProviderConfig) *AnthropicClient {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 30 * time.Second
	}
	return &AnthropicClient{
		config: cfg,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Complete 完成文本生成（Anthropic）。
// Anthropic 没有 JSON mode，JSONOnly 由提示词约束，调用方照常防御性解析。
func (c *AnthropicClient) Complete(ctx context.Context, messages []Message, opts Options) (string, error) {
	// Anthropic 需要分离 system message
	var systemMsg string
	var userMessages []map[string]string

	for _, msg := range messages {
		if msg.Role == "system" {
			systemMsg = msg.Content
		} else {
			userMessages = append(userMessages, map[string]string{
				"role":    msg.Role,
				"content": msg.Content,
			})
		}
	}

	maxTokens := c.config.MaxTokens
	if maxTokens == 0 {
		maxTokens = 1024
	}

	reqBody := map[string]any{
		"model":       c.config.Model,
		"messages":    userMessages,
		"max_tokens":  maxTokens,
		"temperature": opts.Temperature,
	}
	if systemMsg != "" {
		reqBody["system"] = systemMsg
	}

	body, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.config.APIURL+"/v1/messages", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", c.config.APIKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("API error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Content []struct {
			Text string `json:"text"`
			Type string `json:"type"`
		} `json:"content"`
	}

	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if len(result.Content) == 0 {
		return "", fmt.Errorf("no content in response")
	}

	return result.Content[0].Text, nil
}
