package dialogue

import (
	"context"
	"time"

	"github.com/google/uuid"

	"rootjourney/server/internal/classify"
	"rootjourney/server/internal/config"
	"rootjourney/server/internal/facts"
	"rootjourney/server/internal/genai"
	"rootjourney/server/internal/logger"
	"rootjourney/server/internal/model"
	"rootjourney/server/internal/session"
	"rootjourney/server/internal/timeline"
	"rootjourney/server/internal/topic"
)

// endRefusedNudge 在轮数不足时温和挽留用户，不改变会话状态。
const endRefusedNudge = "咱们才聊了没几句，再陪我多聊几个问题好吗？"

// Generator 是问题生成与事实抽取的依赖面，由 genai.Service 实现。
// 契约：三个方法都不返回 error——生成失败退化为 nil/空树/兜底问题，
// 调用方只需处理退化结果。
type Generator interface {
	Synthesize(ctx context.Context, topicHint string, collected facts.Tree, avoid []string, n int) []string
	Extract(ctx context.Context, answer, currentQuestion string, existing facts.Tree) facts.Tree
	Clarify(ctx context.Context, currentQuestion, userAnswer, topicHint string, asked []string) string
}

// Archiver 在会话终结时保存最终资料快照。失败只记日志，不阻塞终结。
type Archiver interface {
	Archive(ctx context.Context, p *model.Profile, title string) error
}

// Controller 负责推进问答轮次的编排逻辑。
//
// 职责与契约：
// - 同一 session 的轮次严格串行，靠 keyedLocks 排队。
// - collected_data 只增不减：每轮抽取结果深合并进已有事实。
// - 协作方（LLM、时间线、归档）失败不终止轮次；只有会话不存在
//   与持久化失败会作为 error 返回。
type Controller struct {
	sessions   session.Store
	sequence   topic.Sequence
	classifier classify.Classifier
	gen        Generator
	events     timeline.Store
	archiver   Archiver
	cfg        config.DialogueConfig
	log        *logger.Logger

	locks *keyedLocks
	now   func() time.Time
	newID func() string
}

func New(sessions session.Store, sequence topic.Sequence, classifier classify.Classifier,
	gen Generator, events timeline.Store, archiver Archiver,
	cfg config.DialogueConfig, log *logger.Logger) *Controller {
	return &Controller{
		sessions:   sessions,
		sequence:   sequence,
		classifier: classifier,
		gen:        gen,
		events:     events,
		archiver:   archiver,
		cfg:        cfg,
		log:        log.With("component", "dialogue"),
		locks:      newKeyedLocks(),
		now:        time.Now,
		newID:      uuid.NewString,
	}
}

// StartSession 创建新会话：落盘用户基础信息，生成并返回首个问题。
func (c *Controller) StartSession(ctx context.Context, up model.UserProfile) (*model.Profile, error) {
	collected := facts.Tree{}
	if profileMap := userProfileTree(up); len(profileMap) > 0 {
		collected[model.KeyUserProfile] = profileMap
	}

	first, ok := c.sequence.NextEligible("", collected)
	if !ok {
		// 空话题序列在配置校验阶段就该被拦下，这里兜底直接进终态。
		first = topic.Step{StepID: model.StepComplete}
	}

	now := c.now()
	p := &model.Profile{
		SessionID:     c.newID(),
		Step:          first.StepID,
		CollectedData: collected,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if first.StepID != model.StepComplete {
		q := c.nextQuestion(ctx, first, p)
		p.CurrentQuestion = q
		c.appendAsked(p, q)
	}

	if err := c.sessions.Save(ctx, p); err != nil {
		return nil, err
	}
	c.record(ctx, p.SessionID, &model.TurnEvent{
		Type:     model.EventQuestionAsked,
		Step:     p.Step,
		Question: p.CurrentQuestion,
	})
	c.log.Info("session started", "session_id", p.SessionID, "step", p.Step)
	return p, nil
}

// SubmitAnswer 消费一条用户回答并推进会话，返回下一步动作。
//
// 副作用说明：
// - 更新并保存会话快照（一轮最多保存一次）。
// - 追加时间线事件（尽力而为，失败只记日志）。
// - 会话终结时触发自动归档（同样尽力而为）。
func (c *Controller) SubmitAnswer(ctx context.Context, sessionID, answer string) (*model.TurnResult, error) {
	unlock := c.locks.acquire(sessionID)
	defer unlock()

	p, err := c.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if p.Completed() {
		return &model.TurnResult{Status: model.StatusComplete, Step: model.StepComplete}, nil
	}

	kind := c.classifier.Classify(answer)
	c.record(ctx, sessionID, &model.TurnEvent{
		Type:   model.EventAnswerReceived,
		Step:   p.Step,
		Answer: answer,
		Class:  string(kind),
	})

	switch kind {
	case classify.EndRequest:
		if p.QuestionCount < c.cfg.MinQuestions {
			// 轮数不足：温和挽留，步骤与当前问题保持不变。
			p.QuestionCount++
			p.UpdatedAt = c.now()
			if err := c.sessions.Save(ctx, p); err != nil {
				return nil, err
			}
			return &model.TurnResult{
				Status:   model.StatusContinue,
				Question: endRefusedNudge + p.CurrentQuestion,
				Step:     p.Step,
			}, nil
		}
		return c.finish(ctx, p)

	case classify.Skip:
		facts.RecordUnknown(p.CollectedData, p.Step, answer)
		p.QuestionCount++
		return c.advance(ctx, p)

	default: // classify.Substantive
		extracted := c.gen.Extract(ctx, answer, p.CurrentQuestion, p.CollectedData)
		if len(extracted) == 0 {
			return c.clarify(ctx, p, answer)
		}
		p.CollectedData = facts.Merge(p.CollectedData, extracted)
		p.QuestionCount++
		c.record(ctx, sessionID, &model.TurnEvent{
			Type:  model.EventFactsMerged,
			Step:  p.Step,
			Facts: extracted,
		})
		return c.advance(ctx, p)
	}
}

// CurrentQuestion 返回会话当前待回答的问题；会话已终结时返回终态结果。
func (c *Controller) CurrentQuestion(ctx context.Context, sessionID string) (*model.TurnResult, error) {
	p, err := c.sessions.Load(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	if p.Completed() {
		return &model.TurnResult{Status: model.StatusComplete, Step: model.StepComplete}, nil
	}
	q := p.CurrentQuestion
	if q == "" {
		// 历史数据兜底：快照里没存问题就用当前步骤的保底问法。
		if step, ok := c.sequence.ByID(p.Step); ok {
			q = step.FallbackQuestion
		}
	}
	return &model.TurnResult{Status: model.StatusContinue, Question: q, Step: p.Step}, nil
}

// Session 返回会话快照，供查询接口使用。
func (c *Controller) Session(ctx context.Context, sessionID string) (*model.Profile, error) {
	return c.sessions.Load(ctx, sessionID)
}

// Events 返回会话的全量时间线事件。
func (c *Controller) Events(ctx context.Context, sessionID string) ([]model.TurnEvent, error) {
	return c.events.List(ctx, sessionID)
}

// advance 把会话推进到下一个待问步骤；序列耗尽则终结会话。
func (c *Controller) advance(ctx context.Context, p *model.Profile) (*model.TurnResult, error) {
	next, ok := c.sequence.NextEligible(p.Step, p.CollectedData)
	if !ok {
		return c.finish(ctx, p)
	}

	p.Step = next.StepID
	q := c.nextQuestion(ctx, next, p)
	p.CurrentQuestion = q
	c.appendAsked(p, q)
	p.UpdatedAt = c.now()
	if err := c.sessions.Save(ctx, p); err != nil {
		return nil, err
	}
	c.record(ctx, p.SessionID, &model.TurnEvent{
		Type:     model.EventQuestionAsked,
		Step:     p.Step,
		Question: q,
	})
	return &model.TurnResult{Status: model.StatusContinue, Question: q, Step: p.Step}, nil
}

// clarify 处理抽取失败：原始问答进 _unparsed 留痕，换个问法再问一次，
// 步骤不推进。
func (c *Controller) clarify(ctx context.Context, p *model.Profile, answer string) (*model.TurnResult, error) {
	facts.AppendUnparsed(p.CollectedData, facts.UnparsedRecord{
		Step:     p.Step,
		Question: p.CurrentQuestion,
		Answer:   answer,
	})
	p.QuestionCount++

	hint := ""
	if step, ok := c.sequence.ByID(p.Step); ok {
		hint = step.TopicHint
	}
	q := c.gen.Clarify(ctx, p.CurrentQuestion, answer, hint, p.AskedQuestions)
	p.CurrentQuestion = q
	c.appendAsked(p, q)
	p.UpdatedAt = c.now()
	if err := c.sessions.Save(ctx, p); err != nil {
		return nil, err
	}
	c.record(ctx, p.SessionID, &model.TurnEvent{
		Type:     model.EventClarifyIssued,
		Step:     p.Step,
		Question: q,
		Answer:   answer,
	})
	return &model.TurnResult{Status: model.StatusContinue, Question: q, Step: p.Step}, nil
}

// finish 把会话置为终态并触发自动归档。
func (c *Controller) finish(ctx context.Context, p *model.Profile) (*model.TurnResult, error) {
	p.Step = model.StepComplete
	p.CurrentQuestion = ""
	p.UpdatedAt = c.now()
	if err := c.sessions.Save(ctx, p); err != nil {
		return nil, err
	}
	c.record(ctx, p.SessionID, &model.TurnEvent{Type: model.EventSessionComplete, Step: model.StepComplete})

	if c.archiver != nil {
		if err := c.archiver.Archive(ctx, p, ""); err != nil {
			c.log.Warn("auto archive failed", "session_id", p.SessionID, "error", err)
		}
	}
	c.log.Info("session complete", "session_id", p.SessionID, "question_count", p.QuestionCount)
	return &model.TurnResult{Status: model.StatusComplete, Step: model.StepComplete}, nil
}

// nextQuestion 为步骤生成提问：候选问题优先，全部问过或生成失败则用保底问法。
func (c *Controller) nextQuestion(ctx context.Context, step topic.Step, p *model.Profile) string {
	candidates := c.gen.Synthesize(ctx, step.TopicHint, p.CollectedData, p.AskedQuestions, c.cfg.CandidateCount)
	return genai.Pick(candidates, step.FallbackQuestion, p.AskedQuestions)
}

// appendAsked 记录已问问题，历史超限时丢弃最早的条目。
func (c *Controller) appendAsked(p *model.Profile, q string) {
	if q == "" {
		return
	}
	for _, prev := range p.AskedQuestions {
		if prev == q {
			return
		}
	}
	p.AskedQuestions = append(p.AskedQuestions, q)
	if limit := c.cfg.AskedHistoryLimit; limit > 0 && len(p.AskedQuestions) > limit {
		p.AskedQuestions = p.AskedQuestions[len(p.AskedQuestions)-limit:]
	}
}

// record 尽力写入时间线事件；失败不影响轮次结果。
func (c *Controller) record(ctx context.Context, sessionID string, evt *model.TurnEvent) {
	evt.ServerTS = c.now()
	if _, err := c.events.Append(ctx, sessionID, evt); err != nil {
		c.log.Warn("timeline append failed", "session_id", sessionID, "type", evt.Type, "error", err)
	}
}

// userProfileTree 把非空的基础信息字段转成事实树节点。
func userProfileTree(up model.UserProfile) map[string]any {
	m := map[string]any{}
	if up.Name != "" {
		m["name"] = up.Name
	}
	if up.BirthDate != "" {
		m["birth_date"] = up.BirthDate
	}
	if up.BirthPlace != "" {
		m["birth_place"] = up.BirthPlace
	}
	if up.CurrentLocation != "" {
		m["current_location"] = up.CurrentLocation
	}
	return m
}
