// Package classify 对用户回答做确定性分类：结束请求 / 跳过 / 实质回答。
// 分类不依赖任何生成或抽取服务，必须可独立单测。
package classify

import "strings"

// Kind 是回答的分类结果。
type Kind string

const (
	// EndRequest 表示用户想结束对话。
	EndRequest Kind = "end_request"
	// Skip 表示"不知道"类非回答：记录但不视为错误。
	Skip Kind = "skip"
	// Substantive 表示值得送去抽取的实质回答。
	Substantive Kind = "substantive"
)

// Classifier 是可插拔的回答分类策略。
// 关键词表按语言/场景可替换，引擎只依赖这个接口。
type Classifier interface {
	Classify(answer string) Kind
}

// KeywordClassifier 用固定关键词表做子串匹配，大小写与首尾空白不敏感。
type KeywordClassifier struct {
	endMarkers  []string
	skipMarkers []string
}

// 默认关键词表沿用线上对话的语料：中文为主，补充常见英文说法。
var (
	defaultEndMarkers = []string{
		"结束", "完成", "可以了", "不聊了", "就到这", "不想说了",
		"finish", "done", "stop", "that's all",
	}
	defaultSkipMarkers = []string{
		"不知道", "不清楚", "不记得", "没有", "没印象", "想不起", "跳过", "不了解",
		"don't know", "not sure", "no idea", "skip",
	}
)

// NewKeywordClassifier 创建默认关键词分类器。
func NewKeywordClassifier() *KeywordClassifier {
	return &KeywordClassifier{
		endMarkers:  defaultEndMarkers,
		skipMarkers: defaultSkipMarkers,
	}
}

// NewKeywordClassifierWith 用自定义关键词表创建分类器（空表退回默认表）。
func NewKeywordClassifierWith(endMarkers, skipMarkers []string) *KeywordClassifier {
	c := NewKeywordClassifier()
	if len(endMarkers) > 0 {
		c.endMarkers = endMarkers
	}
	if len(skipMarkers) > 0 {
		c.skipMarkers = skipMarkers
	}
	return c
}

// Classify 按 结束 > 跳过 > 实质 的优先级给回答打标签。
// 空回答归入 Skip：沉默也是有效信息，不是错误。
func (c *KeywordClassifier) Classify(answer string) Kind {
	s := strings.ToLower(strings.TrimSpace(answer))
	if s == "" {
		return Skip
	}
	for _, m := range c.endMarkers {
		if strings.Contains(s, m) {
			return EndRequest
		}
	}
	for _, m := range c.skipMarkers {
		if strings.Contains(s, m) {
			return Skip
		}
	}
	return Substantive
}
