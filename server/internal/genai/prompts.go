package genai

import (
	"encoding/json"
	"fmt"
	"strings"

	"rootjourney/server/internal/facts"
)

// narrativeStyle 是所有提问类提示词共用的人设前缀。
// 语气约束是产品底线：陪伴式寻根，不是查户口填表。
const narrativeStyle = `你是一位"家族记忆引导者"，不是信息采集器。
你在做的是"陪伴式寻根与家族叙事"，而不是查户口填表。

风格要求：
- 温和、尊重、带一点陪伴感
- 接受信息不完整、模糊或"不知道"
- 鼓励叙述（"你印象里…/你听谁提过…/大概也行"）
- 不要使用"请提供/请填写/必须回答"等表单语气
- 不要责备、不要审问、不要让用户觉得答错了`

// buildCandidatePrompt 构建候选问题生成提示词。
func buildCandidatePrompt(topicHint string, collected facts.Tree, avoid []string, n int) string {
	collectedJSON := mustJSON(collected)
	avoidJSON := mustJSON(avoid)

	return fmt.Sprintf(`%s

基于已收集的家族数据，生成%d个候选问题来丰富家族信息。

**重要：所有问题必须围绕寻根、寻祖、寻家族这三个核心主题**

主题：%s

已收集数据：%s

已问过的问题（避免重复）：
%s

要求：
1. 避免重复已问过的问题
2. 围绕主题"%s"，逐步深入询问家族信息
3. 问题要自然、友好、温暖，像在陪伴用户寻根
4. 鼓励用户分享任何与寻根、寻祖、寻家族相关的线索
5. 返回JSON数组格式，例如：["问题1", "问题2", "问题3", "问题4"]
6. 只返回JSON数组，不要其他文字`,
		narrativeStyle, n, topicHint, collectedJSON, avoidJSON, topicHint)
}

// buildExtractPrompt 构建信息抽取提示词。
// 字段映射规则表与存量数据的点路径一一对应，改动要同步话题序列。
func buildExtractPrompt(answer, currentQuestion string, existing facts.Tree) string {
	existingJSON := mustJSON(existing)

	return fmt.Sprintf(`你是"家族信息抽取器"。请结合【当前问题】与【用户回答】抽取结构化信息并输出 JSON。

【当前问题】：
%s

【用户回答】：
%s

【已有数据】：
%s

抽取规则：
- 只输出 JSON，不要 markdown，不要解释
- 如果是爸爸籍贯 -> father.origin
- 如果是爷爷籍贯 -> grandfather.origin
- 如果是爷爷姓名 -> grandfather.name
- 如果是我自己的籍贯/祖籍 -> self.origin
- 辈分字 -> self.generation_name
- 姓氏 -> self.surname
- 其他家族线索放到最贴切的嵌套路径下
- 如果无法判断或没有新信息 -> 输出空 JSON：{}

示例：
{"father": {"origin": "山东枣庄"}}`,
		currentQuestion, answer, existingJSON)
}

// buildClarifyPrompt 构建软澄清提示词：同一话题换个更好答的问法。
func buildClarifyPrompt(currentQuestion, userAnswer, topicHint string, avoid []string) string {
	if topicHint == "" {
		topicHint = "围绕上一问的家族线索（允许模糊、不确定也可以）"
	}

	var avoidBlock string
	if len(avoid) > 0 {
		avoidBlock = fmt.Sprintf("\n不要重复下面这些已经问过的问题：\n%s\n", mustJSON(avoid))
	}

	return fmt.Sprintf(`%s

用户刚才的回答可能没有提供到我们需要的线索，但不要责备用户。
请用"换个角度聊聊"的方式，给出一个更温柔、更容易回答的追问。

我们想了解的方向：
%s

上一问：
%s

用户回答：
%s
%s
请返回一个更温柔、更容易回答的追问问题。
只返回问题文本，不要其他文字。`,
		narrativeStyle, topicHint, currentQuestion, userAnswer, avoidBlock)
}

// stripFences 去掉模型偶尔包上的 markdown 代码块围栏。
func stripFences(content string) string {
	s := strings.TrimSpace(content)
	if !strings.HasPrefix(s, "```") {
		return s
	}
	s = strings.Trim(s, "`")
	s = strings.TrimPrefix(s, "json")
	return strings.TrimSpace(s)
}

func mustJSON(v any) string {
	data, err := json.Marshal(v)
	if err != nil {
		return "{}"
	}
	return string(data)
}
