// Package topic 定义引导式追问的话题序列：固定、有序、数据驱动。
// 序列在进程启动时确定，之后不可变；下一步的选取是纯函数，不涉及 AI。
package topic

import (
	"encoding/json"
	"fmt"
	"os"

	"rootjourney/server/internal/facts"
)

// Step 是话题序列中的一个引导步骤，启动后不可变。
type Step struct {
	// StepID 在序列内唯一，顺序即提问顺序。
	StepID string `json:"step_id"`
	// TopicHint 是传给问题合成器的语义描述。
	TopicHint string `json:"topic_hint"`
	// FallbackQuestion 是生成不可用或全部撞车时的兜底问题。
	FallbackQuestion string `json:"fallback_question"`
	// TargetFieldPath 是该步骤要填的事实点路径（如 father.origin）。
	// 为空表示叙事型步骤：走到就问一次，不看已收集数据。
	TargetFieldPath string `json:"target_field_path,omitempty"`
}

// Sequence 是不可变的话题序列。
type Sequence []Step

// Load 从 JSON 文件加载话题序列，用于替换内置序列。
func Load(path string) (Sequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read topics: %w", err)
	}

	var seq Sequence
	if err := json.Unmarshal(data, &seq); err != nil {
		return nil, fmt.Errorf("parse topics: %w", err)
	}
	if err := seq.Validate(); err != nil {
		return nil, err
	}

	return seq, nil
}

// Validate 检查步骤 id 非空且唯一。
func (s Sequence) Validate() error {
	seen := make(map[string]bool, len(s))
	for i, st := range s {
		if st.StepID == "" {
			return fmt.Errorf("topic step %d: empty step_id", i)
		}
		if seen[st.StepID] {
			return fmt.Errorf("topic step %d: duplicate step_id %q", i, st.StepID)
		}
		if st.FallbackQuestion == "" {
			return fmt.Errorf("topic step %q: empty fallback_question", st.StepID)
		}
		seen[st.StepID] = true
	}
	return nil
}

// Index 返回步骤在序列中的位置，不存在时返回 -1。
func (s Sequence) Index(stepID string) int {
	for i, st := range s {
		if st.StepID == stepID {
			return i
		}
	}
	return -1
}

// ByID 按 id 查找步骤。
func (s Sequence) ByID(stepID string) (Step, bool) {
	if i := s.Index(stepID); i >= 0 {
		return s[i], true
	}
	return Step{}, false
}

// NextEligible 从 after 步骤之后严格向前扫描，返回第一个可问的步骤。
// 有目标路径且已被填充的步骤跳过；无目标路径的步骤走到即可问。
// 没有剩余步骤时返回 ok=false，表示会话应进入终态。
// after 为空表示从序列头开始（会话首问）。
func (s Sequence) NextEligible(after string, collected facts.Tree) (Step, bool) {
	start := 0
	if after != "" {
		start = s.Index(after) + 1
	}
	if start > len(s) {
		start = len(s)
	}
	for _, st := range s[start:] {
		if st.TargetFieldPath != "" && facts.IsFilled(collected, st.TargetFieldPath) {
			continue
		}
		return st, true
	}
	return Step{}, false
}

// Default 返回内置的寻根话题序列。
// 顺序从"最容易开口"到"最依赖记忆"，目标路径与抽取规则表一一对应。
func Default() Sequence {
	return Sequence{
		{
			StepID:           "self_origin",
			TopicHint:        "用户自己的祖籍/籍贯与家乡印象（允许模糊）",
			FallbackQuestion: "你的祖籍大概在哪里？说个省份或者大概方位也可以。",
			TargetFieldPath:  "self.origin",
		},
		{
			StepID:           "self_surname",
			TopicHint:        "用户的姓氏与姓氏来历的家族说法",
			FallbackQuestion: "你姓什么？家里有没有人提过这个姓的来历？",
			TargetFieldPath:  "self.surname",
		},
		{
			StepID:           "generation_name",
			TopicHint:        "家族的辈分字/字辈排行",
			FallbackQuestion: "你们家有辈分字吗？比如名字中间那个字是按族谱排的。",
			TargetFieldPath:  "self.generation_name",
		},
		{
			StepID:           "father_origin",
			TopicHint:        "父亲的老家与籍贯（允许只记得大概）",
			FallbackQuestion: "你爸爸常提起过他的老家吗？你印象里大概在哪个省市？",
			TargetFieldPath:  "father.origin",
		},
		{
			StepID:           "grandfather_name",
			TopicHint:        "祖父的姓名或称呼",
			FallbackQuestion: "你爷爷叫什么名字？记不全的话，说说家里人怎么称呼他也行。",
			TargetFieldPath:  "grandfather.name",
		},
		{
			StepID:           "grandfather_origin",
			TopicHint:        "祖父一辈生活过的地方与迁徙",
			FallbackQuestion: "你爷爷那一辈是在哪里生活的？有没有听说过搬家、闯关东这类事？",
			TargetFieldPath:  "grandfather.origin",
		},
		{
			StepID:           "family_story",
			TopicHint:        "家里口口相传的故事、传说或老物件",
			FallbackQuestion: "家里有没有流传下来的老故事、老照片或者老物件？随便聊聊。",
		},
		{
			StepID:           "family_gathering",
			TopicHint:        "祭祖、修谱、祠堂等家族活动的记忆",
			FallbackQuestion: "你们家过年祭祖或者上坟的时候，有没有什么特别的讲究？",
		},
	}
}
