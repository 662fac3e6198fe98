package facts

import "rootjourney/server/internal/model"

// UnparsedRecord 是一条抽取失败的原始问答记录。
// 字段名沿用存量数据的短键：q=问题、a=回答。
type UnparsedRecord struct {
	Step     string `json:"step"`
	Question string `json:"q"`
	Answer   string `json:"a"`
}

// RecordUnknown 把一条"不知道"类回答记到 _unknown[step]。
// 空回答按 "unknown" 记录，保证后续可追溯。
func RecordUnknown(t Tree, step, rawAnswer string) {
	if rawAnswer == "" {
		rawAnswer = "unknown"
	}
	m, ok := t[model.KeyUnknown].(map[string]any)
	if !ok {
		m = map[string]any{}
		t[model.KeyUnknown] = m
	}
	m[step] = rawAnswer
}

// UnknownFor 读取 _unknown[step] 中记录的原始回答，不存在时返回空串。
func UnknownFor(t Tree, step string) string {
	m, ok := t[model.KeyUnknown].(map[string]any)
	if !ok {
		return ""
	}
	s, _ := m[step].(string)
	return s
}

// AppendUnparsed 把一条抽取失败的问答追加到 _unparsed 列表。
func AppendUnparsed(t Tree, rec UnparsedRecord) {
	list, _ := t[model.KeyUnparsed].([]any)
	t[model.KeyUnparsed] = append(list, map[string]any{
		"step": rec.Step,
		"q":    rec.Question,
		"a":    rec.Answer,
	})
}

// UnparsedLen 返回 _unparsed 列表长度。
func UnparsedLen(t Tree) int {
	list, _ := t[model.KeyUnparsed].([]any)
	return len(list)
}
