// Package genai 是对话引擎与概率性协作方之间的防波堤：
// 问题合成、信息抽取、软澄清都在这里调用 LLM 并做防御性解析。
// 约定：本包的任何方法都不向上传播协作方错误——失败一律降级为
// 空结果或空串，由控制器落到确定性兜底。
package genai

import (
	"context"
	"encoding/json"
	"strings"

	"rootjourney/server/internal/facts"
	"rootjourney/server/internal/llm"
	"rootjourney/server/internal/logger"
)

// 生成类调用与抽取类调用的采样温度，沿用线上取值。
const (
	generateTemperature = 0.8
	extractTemperature  = 0.0
)

// VariationSuffix 是兜底问题也已问过时追加的变体标记，
// 保证返回的问题永远不会与历史逐字重复。
const VariationSuffix = "（说个大概也行）"

// Service 封装问题合成、信息抽取与软澄清。
type Service struct {
	client llm.Client
	log    *logger.Logger
}

// New 创建 genai 服务。
func New(client llm.Client, log *logger.Logger) *Service {
	return &Service{
		client: client,
		log:    log.With("service", "genai"),
	}
}

// Synthesize 为话题生成 n 个候选问题。
// 生成失败（超时、输出不是 JSON 数组）返回空切片，调用方回退兜底问题。
func (s *Service) Synthesize(ctx context.Context, topicHint string, collected facts.Tree, avoid []string, n int) []string {
	if n <= 0 {
		n = 4
	}
	prompt := buildCandidatePrompt(topicHint, collected, avoid, n)

	content, err := s.client.Complete(ctx, []llm.Message{
		{Role: "user", Content: prompt},
	}, llm.Options{Temperature: generateTemperature})
	if err != nil {
		s.log.Warn("candidate synthesis degraded", "topic", topicHint, "err", err)
		return nil
	}

	var raw []any
	if err := json.Unmarshal([]byte(stripFences(content)), &raw); err != nil {
		s.log.Warn("candidate synthesis unparseable", "topic", topicHint, "err", err)
		return nil
	}

	questions := make([]string, 0, len(raw))
	for _, item := range raw {
		q, ok := item.(string)
		if !ok {
			continue
		}
		if q = strings.TrimSpace(q); q != "" {
			questions = append(questions, q)
		}
	}
	if len(questions) > n {
		questions = questions[:n]
	}
	return questions
}

// Pick 从候选中选出第一个没有逐字问过的问题。
// 候选全部撞车时回退 fallback；连 fallback 都问过时追加变体标记。
func Pick(candidates []string, fallback string, asked []string) string {
	askedSet := make(map[string]bool, len(asked))
	for _, q := range asked {
		askedSet[q] = true
	}
	for _, q := range candidates {
		if !askedSet[q] {
			return q
		}
	}
	if !askedSet[fallback] {
		return fallback
	}
	return fallback + VariationSuffix
}

// Extract 把实质回答抽取成事实树。
// 任何失败——调用错误、输出不是 JSON 对象——都返回空树；空树对控制器
// 而言等同于"没有新信息"，不是协议错误。
func (s *Service) Extract(ctx context.Context, answer, currentQuestion string, existing facts.Tree) facts.Tree {
	prompt := buildExtractPrompt(answer, currentQuestion, existing)

	content, err := s.client.Complete(ctx, []llm.Message{
		{Role: "user", Content: prompt},
	}, llm.Options{Temperature: extractTemperature, JSONOnly: true})
	if err != nil {
		s.log.Warn("extraction degraded", "err", err)
		return facts.Tree{}
	}

	var tree map[string]any
	if err := json.Unmarshal([]byte(stripFences(content)), &tree); err != nil {
		s.log.Warn("extraction unparseable", "err", err)
		return facts.Tree{}
	}
	if tree == nil {
		return facts.Tree{}
	}
	return tree
}

// Clarify 为抽取失败的回合生成软澄清问题。
// 第一次不带避免列表；结果为空或与历史撞车时带避免列表再生成一次；
// 仍然失败则返回原问题加变体标记——确定性、永不逐字重复。
func (s *Service) Clarify(ctx context.Context, currentQuestion, userAnswer, topicHint string, asked []string) string {
	askedSet := make(map[string]bool, len(asked))
	for _, q := range asked {
		askedSet[q] = true
	}

	q := s.clarifyOnce(ctx, currentQuestion, userAnswer, topicHint, nil)
	if q != "" && !askedSet[q] {
		return q
	}

	q = s.clarifyOnce(ctx, currentQuestion, userAnswer, topicHint, asked)
	if q != "" && !askedSet[q] {
		return q
	}

	fallback := currentQuestion + VariationSuffix
	if askedSet[fallback] {
		// 同一话题反复澄清时继续叠加标记，保持可追问且不重复。
		fallback += VariationSuffix
	}
	return fallback
}

func (s *Service) clarifyOnce(ctx context.Context, currentQuestion, userAnswer, topicHint string, avoid []string) string {
	prompt := buildClarifyPrompt(currentQuestion, userAnswer, topicHint, avoid)

	content, err := s.client.Complete(ctx, []llm.Message{
		{Role: "user", Content: prompt},
	}, llm.Options{Temperature: generateTemperature})
	if err != nil {
		s.log.Warn("soft clarify degraded", "err", err)
		return ""
	}
	return strings.TrimSpace(stripFences(content))
}
