package archive

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"rootjourney/server/internal/config"
	"rootjourney/server/internal/logger"
	"rootjourney/server/internal/model"
)

var ErrNotFound = errors.New("archived session not found")

// defaultTitle 在调用方没给标题时生成一个：优先用受访者姓名。
func defaultTitle(p *model.Profile) string {
	if up, ok := p.CollectedData[model.KeyUserProfile].(map[string]any); ok {
		if name, ok := up["name"].(string); ok && name != "" {
			return name + "的家族历史档案"
		}
	}
	return "寻根访谈 " + time.Now().Format("2006-01-02")
}

// ArchivedSession 是会话归档的持久化形态：对话结束后的资料快照。
type ArchivedSession struct {
	SessionID     string            `gorm:"primaryKey;size:64" json:"session_id"`
	Title         string            `gorm:"size:256" json:"title"`
	Notes         string            `gorm:"size:1024" json:"notes,omitempty"`
	Step          string            `gorm:"size:64" json:"step"`
	QuestionCount int               `json:"question_count"`
	CollectedData datatypes.JSONMap `json:"collected_data"`
	CreatedAt     time.Time         `json:"created_at"`
	ArchivedAt    time.Time         `json:"archived_at"`
}

type Store struct {
	db  *gorm.DB
	log *logger.Logger
}

// Open 按配置选择驱动打开归档库，并完成建表迁移。
func Open(cfg config.ArchiveConfig, log *logger.Logger) (*Store, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "postgres":
		dialector = postgres.Open(cfg.DSN)
	case "sqlite", "":
		dialector = sqlite.Open(cfg.DSN)
	default:
		return nil, fmt.Errorf("unsupported archive driver: %s", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open archive db: %w", err)
	}
	if err := db.AutoMigrate(&ArchivedSession{}); err != nil {
		return nil, fmt.Errorf("migrate archive db: %w", err)
	}
	return &Store{db: db, log: log.With("component", "archive")}, nil
}

// Archive 把一份会话资料写入归档库。重复归档同一会话会覆盖旧快照。
func (s *Store) Archive(ctx context.Context, p *model.Profile, title, notes string) (*ArchivedSession, error) {
	if title == "" {
		title = defaultTitle(p)
	}
	rec := &ArchivedSession{
		SessionID:     p.SessionID,
		Title:         title,
		Notes:         notes,
		Step:          p.Step,
		QuestionCount: p.QuestionCount,
		CollectedData: datatypes.JSONMap(p.CollectedData),
		CreatedAt:     p.CreatedAt,
		ArchivedAt:    time.Now(),
	}
	if err := s.db.WithContext(ctx).Save(rec).Error; err != nil {
		return nil, fmt.Errorf("archive session %s: %w", p.SessionID, err)
	}
	s.log.Info("session archived", "session_id", p.SessionID, "question_count", p.QuestionCount)
	return rec, nil
}

func (s *Store) Get(ctx context.Context, sessionID string) (*ArchivedSession, error) {
	var rec ArchivedSession
	err := s.db.WithContext(ctx).First(&rec, "session_id = ?", sessionID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load archived session %s: %w", sessionID, err)
	}
	return &rec, nil
}

// List 按归档时间倒序返回全部归档记录。
func (s *Store) List(ctx context.Context) ([]ArchivedSession, error) {
	var recs []ArchivedSession
	if err := s.db.WithContext(ctx).Order("archived_at desc").Find(&recs).Error; err != nil {
		return nil, fmt.Errorf("list archived sessions: %w", err)
	}
	return recs, nil
}
