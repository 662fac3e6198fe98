package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"rootjourney/server/internal/config"
)

func TestOpenAIWireClientComplete(t *testing.T) {
	var captured map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("Authorization = %q", auth)
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"choices":[{"message":{"content":"您的老家是哪里的呢？"}}]}`))
	}))
	defer ts.Close()

	client := newOpenAIWireClient(config.LLMProviderConfig{
		APIKey:    "test-key",
		APIURL:    ts.URL,
		Model:     "deepseek-chat",
		MaxTokens: 512,
	}, "/chat/completions")

	got, err := client.Complete(context.Background(), []Message{
		{Role: "system", Content: "你是家族记忆引导者"},
		{Role: "user", Content: "生成问题"},
	}, Options{Temperature: 0.8, JSONOnly: true})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "您的老家是哪里的呢？" {
		t.Errorf("content = %q", got)
	}

	if captured["model"] != "deepseek-chat" {
		t.Errorf("model = %v", captured["model"])
	}
	if captured["temperature"] != 0.8 {
		t.Errorf("temperature = %v", captured["temperature"])
	}
	rf, ok := captured["response_format"].(map[string]any)
	if !ok || rf["type"] != "json_object" {
		t.Errorf("JSONOnly 未带上 response_format: %v", captured["response_format"])
	}
}

func TestOpenAIWireClientAPIError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":"rate limited"}`))
	}))
	defer ts.Close()

	client := newOpenAIWireClient(config.LLMProviderConfig{APIURL: ts.URL}, "/chat/completions")
	_, err := client.Complete(context.Background(), []Message{{Role: "user", Content: "hi"}}, Options{})
	if err == nil {
		t.Fatal("非 200 应报错")
	}
	if !strings.Contains(err.Error(), "429") {
		t.Errorf("错误应包含状态码: %v", err)
	}
}

func TestOpenAIWireClientEmptyChoices(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer ts.Close()

	client := newOpenAIWireClient(config.LLMProviderConfig{APIURL: ts.URL}, "/chat/completions")
	if _, err := client.Complete(context.Background(), nil, Options{}); err == nil {
		t.Fatal("空 choices 应报错")
	}
}

func TestAnthropicClientComplete(t *testing.T) {
	var captured map[string]any
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/messages" {
			t.Errorf("path = %s", r.URL.Path)
		}
		if key := r.Header.Get("x-api-key"); key != "test-key" {
			t.Errorf("x-api-key = %q", key)
		}
		_ = json.NewDecoder(r.Body).Decode(&captured)
		_, _ = w.Write([]byte(`{"content":[{"type":"text","text":"{}"}]}`))
	}))
	defer ts.Close()

	client := NewAnthropicClient(config.LLMProviderConfig{
		APIKey: "test-key",
		APIURL: ts.URL,
		Model:  "claude-3-5-haiku-latest",
	})

	got, err := client.Complete(context.Background(), []Message{
		{Role: "system", Content: "只返回 JSON"},
		{Role: "user", Content: "抽取信息"},
	}, Options{Temperature: 0})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if got != "{}" {
		t.Errorf("content = %q", got)
	}

	// system 消息必须拆到顶层字段
	if captured["system"] != "只返回 JSON" {
		t.Errorf("system = %v", captured["system"])
	}
	msgs, _ := captured["messages"].([]any)
	if len(msgs) != 1 {
		t.Errorf("messages = %v", captured["messages"])
	}
	t.Logf("✓ Anthropic 协议分离 system 消息")
}

func TestNewClientProviderSelection(t *testing.T) {
	cfg := &config.Config{}
	cfg.LLM.Provider = "deepseek"
	if _, err := NewClient(cfg); err != nil {
		t.Errorf("deepseek: %v", err)
	}
	cfg.LLM.Provider = "anthropic"
	if _, err := NewClient(cfg); err != nil {
		t.Errorf("anthropic: %v", err)
	}
	cfg.LLM.Provider = "azure"
	if _, err := NewClient(cfg); err == nil {
		t.Error("未知提供商应报错")
	}
}
