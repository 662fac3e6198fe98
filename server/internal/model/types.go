package model

import "time"

// 步骤状态的保留值。
const (
	// StepComplete 表示会话已走完全部话题，进入终态。
	StepComplete = "complete"
)

// 答复状态，返回给调用方（Web 层 / WebSocket 层）。
const (
	StatusContinue = "continue"
	StatusComplete = "complete"
)

// collected_data 中的保留键。
const (
	// KeyUnknown 存放"不知道"类回答：step_id -> 原始回答文本。
	KeyUnknown = "_unknown"
	// KeyUnparsed 存放抽取失败的原始问答记录列表。
	KeyUnparsed = "_unparsed"
	// KeyUserProfile 存放会话创建时用户提交的基础信息。
	KeyUserProfile = "user_profile"
)

// UserProfile 是用户开启会话时提交的基础信息表单。
type UserProfile struct {
	Name            string `json:"name"`
	BirthDate       string `json:"birth_date,omitempty"`
	BirthPlace      string `json:"birth_place,omitempty"`
	CurrentLocation string `json:"current_location,omitempty"`
}

// Profile 保存一个对话会话的全部可变状态。
//
// 所有权约定：Profile 由 Session Store 持有，Dialogue Controller 是唯一写入方；
// 其他组件只读。
type Profile struct {
	// 唯一标识一个会话。
	SessionID string `json:"session_id"`
	// 当前步骤 id；走完序列后为 StepComplete。
	Step string `json:"step"`
	// 上一次呈现给用户的问题；终态时清空。
	CurrentQuestion string `json:"current_question,omitempty"`

	// 已问过的问题（按原文去重），只用于避免重复提问，不用于回放。
	AskedQuestions []string `json:"asked_questions"`
	// 已收集的嵌套家族事实，只增不减（深合并）。
	CollectedData map[string]any `json:"collected_data"`

	// 已消耗的问答轮数，单调不减。
	QuestionCount int `json:"question_count"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Completed 报告会话是否已进入终态。
func (p *Profile) Completed() bool {
	return p.Step == StepComplete
}

// TurnResult 是一轮问答的对外结果。
type TurnResult struct {
	Status   string `json:"status"`
	Question string `json:"question,omitempty"`
	Step     string `json:"step"`
}

// TurnEvent 表示会话时间线中的一个事实事件。
type TurnEvent struct {
	// Seq 由后端分配的单调序号，用于回放与审计。
	Seq int64 `json:"seq,omitempty"`
	// SessionID 由时间线补齐，调用方可不传。
	SessionID string `json:"session_id,omitempty"`

	// Type 表示事件类型（question_asked/answer_received/facts_merged/
	// clarify_issued/session_complete/...）。
	Type string `json:"type"`
	// Step 是事件发生时的步骤 id。
	Step string `json:"step,omitempty"`
	// Question/Answer 承载问答内容。
	Question string `json:"question,omitempty"`
	Answer   string `json:"answer,omitempty"`
	// Class 是回答的分类结果（end_request/skip/substantive）。
	Class string `json:"class,omitempty"`
	// Facts 是该轮抽取并合并的事实树（可为空）。
	Facts map[string]any `json:"facts,omitempty"`

	ServerTS time.Time `json:"server_ts,omitempty"`
}

// 时间线事件类型。
const (
	EventQuestionAsked   = "question_asked"
	EventAnswerReceived  = "answer_received"
	EventFactsMerged     = "facts_merged"
	EventClarifyIssued   = "clarify_issued"
	EventSessionComplete = "session_complete"
)
