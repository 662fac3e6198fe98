package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config 全局配置
type Config struct {
	Server   ServerConfig   `yaml:"server"`
	LLM      LLMConfig      `yaml:"llm"`
	Dialogue DialogueConfig `yaml:"dialogue"`
	Session  SessionConfig  `yaml:"session"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Topics   TopicsConfig   `yaml:"topics"`
	Logging  LoggingConfig  `yaml:"logging"`
}

type ServerConfig struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

// LLMConfig 协作方服务配置（文本生成 + 信息抽取共用一个客户端）
type LLMConfig struct {
	Provider  string            `yaml:"provider"` // "deepseek", "openai" or "anthropic"
	DeepSeek  LLMProviderConfig `yaml:"deepseek"`
	OpenAI    LLMProviderConfig `yaml:"openai"`
	Anthropic LLMProviderConfig `yaml:"anthropic"`
}

// LLMProviderConfig LLM 提供商配置
type LLMProviderConfig struct {
	APIKey    string        `yaml:"api_key"`
	APIURL    string        `yaml:"api_url"`
	Model     string        `yaml:"model"`
	MaxTokens int           `yaml:"max_tokens"`
	Timeout   time.Duration `yaml:"timeout"`
}

// DialogueConfig 对话引擎配置
type DialogueConfig struct {
	// MinQuestions 最少问答轮数：不满该轮数时用户要求结束会被温和拒绝。
	MinQuestions int `yaml:"min_questions"`
	// CandidateCount 每个话题请求的候选问题数。
	CandidateCount int `yaml:"candidate_count"`
	// AskedHistoryLimit 已问问题去重历史的上限。
	AskedHistoryLimit int `yaml:"asked_history_limit"`
}

// SessionConfig 会话存储配置
type SessionConfig struct {
	// Backend 决定存储实现：inmem | redis
	Backend   string        `yaml:"backend"`
	RedisAddr string        `yaml:"redis_addr"`
	RedisDB   int           `yaml:"redis_db"`
	// TTL 会话过期时间；过期由存储层负责，不是引擎逻辑。
	TTL time.Duration `yaml:"ttl"`
}

// ArchiveConfig 档案库配置
type ArchiveConfig struct {
	// Driver 决定档案库实现：sqlite | postgres
	Driver string `yaml:"driver"`
	DSN    string `yaml:"dsn"`
}

type TopicsConfig struct {
	// Path 指向话题序列 JSON 文件；为空时使用内置寻根序列。
	Path string `yaml:"path"`
}

type LoggingConfig struct {
	Mode string `yaml:"mode"` // "dev" or "prod"
}

// Load 从文件加载配置，并用环境变量覆盖敏感信息。
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return &cfg, nil
}

// applyEnv 从环境变量覆盖敏感信息，密钥不进配置文件。
func (c *Config) applyEnv() {
	if key := os.Getenv("DEEPSEEK_API_KEY"); key != "" {
		c.LLM.DeepSeek.APIKey = key
	}
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.OpenAI.APIKey = key
	}
	if key := os.Getenv("ANTHROPIC_API_KEY"); key != "" {
		c.LLM.Anthropic.APIKey = key
	}
	if key := os.Getenv("LLM_API_KEY"); key != "" {
		switch c.LLM.Provider {
		case "deepseek":
			c.LLM.DeepSeek.APIKey = key
		case "openai":
			c.LLM.OpenAI.APIKey = key
		case "anthropic":
			c.LLM.Anthropic.APIKey = key
		}
	}
	if addr := os.Getenv("REDIS_ADDR"); addr != "" {
		c.Session.RedisAddr = addr
	}
	if dsn := os.Getenv("ARCHIVE_DSN"); dsn != "" {
		c.Archive.DSN = dsn
	}
}

func (c *Config) applyDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8000
	}
	if c.LLM.Provider == "" {
		c.LLM.Provider = "deepseek"
	}
	if c.LLM.DeepSeek.APIURL == "" {
		c.LLM.DeepSeek.APIURL = "https://api.deepseek.com"
	}
	if c.LLM.DeepSeek.Model == "" {
		c.LLM.DeepSeek.Model = "deepseek-chat"
	}
	if c.Dialogue.MinQuestions == 0 {
		c.Dialogue.MinQuestions = 5
	}
	if c.Dialogue.CandidateCount == 0 {
		c.Dialogue.CandidateCount = 4
	}
	if c.Dialogue.AskedHistoryLimit == 0 {
		c.Dialogue.AskedHistoryLimit = 30
	}
	if c.Session.Backend == "" {
		c.Session.Backend = "inmem"
	}
	if c.Session.TTL == 0 {
		c.Session.TTL = time.Hour
	}
	if c.Archive.Driver == "" {
		c.Archive.Driver = "sqlite"
	}
	if c.Archive.DSN == "" && c.Archive.Driver == "sqlite" {
		c.Archive.DSN = "rootjourney.db"
	}
}

// Validate 验证配置
func (c *Config) Validate() error {
	switch c.LLM.Provider {
	case "deepseek", "openai", "anthropic":
	default:
		return fmt.Errorf("unsupported LLM provider: %s", c.LLM.Provider)
	}
	switch c.Session.Backend {
	case "inmem":
	case "redis":
		if c.Session.RedisAddr == "" {
			return fmt.Errorf("session backend redis requires redis_addr (or REDIS_ADDR env)")
		}
	default:
		return fmt.Errorf("unsupported session backend: %s", c.Session.Backend)
	}
	switch c.Archive.Driver {
	case "sqlite", "postgres":
		if c.Archive.DSN == "" {
			return fmt.Errorf("archive driver %s requires dsn", c.Archive.Driver)
		}
	default:
		return fmt.Errorf("unsupported archive driver: %s", c.Archive.Driver)
	}
	return nil
}

// Provider 返回当前选中的 LLM 提供商配置。
func (c *Config) Provider() LLMProviderConfig {
	switch c.LLM.Provider {
	case "openai":
		return c.LLM.OpenAI
	case "anthropic":
		return c.LLM.Anthropic
	default:
		return c.LLM.DeepSeek
	}
}
