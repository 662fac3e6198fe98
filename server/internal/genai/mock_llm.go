package genai

import (
	"context"

	"rootjourney/server/internal/llm"
)

// MockLLMClient 用于测试的 Mock LLM 客户端。
type MockLLMClient struct {
	// Responses 按调用顺序出队的返回内容；耗尽后重复最后一条。
	Responses []string
	// Err 非空时每次调用都返回该错误。
	Err error

	CallCount   int
	LastPrompt  string
	LastOptions llm.Options
}

// NewMockLLMClient 创建 Mock LLM 客户端。
func NewMockLLMClient(responses ...string) *MockLLMClient {
	return &MockLLMClient{Responses: responses}
}

// Complete 模拟 LLM Complete 方法。
func (m *MockLLMClient) Complete(_ context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	m.CallCount++
	if len(messages) > 0 {
		m.LastPrompt = messages[len(messages)-1].Content
	}
	m.LastOptions = opts

	if m.Err != nil {
		return "", m.Err
	}
	if len(m.Responses) == 0 {
		return "", context.DeadlineExceeded
	}

	idx := m.CallCount - 1
	if idx >= len(m.Responses) {
		idx = len(m.Responses) - 1
	}
	return m.Responses[idx], nil
}
