package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"

	"rootjourney/server/internal/api"
	"rootjourney/server/internal/archive"
	"rootjourney/server/internal/classify"
	"rootjourney/server/internal/config"
	"rootjourney/server/internal/dialogue"
	"rootjourney/server/internal/genai"
	"rootjourney/server/internal/llm"
	"rootjourney/server/internal/logger"
	"rootjourney/server/internal/model"
	"rootjourney/server/internal/session"
	"rootjourney/server/internal/timeline"
	"rootjourney/server/internal/topic"
)

// archiveAdapter 让对话控制器只依赖"归档成功与否"，不关心归档记录本身。
type archiveAdapter struct {
	store *archive.Store
}

func (a archiveAdapter) Archive(ctx context.Context, p *model.Profile, title string) error {
	_, err := a.store.Archive(ctx, p, title, "")
	return err
}

func main() {
	// 敏感信息（API Key、Redis 地址）走环境变量覆盖，文件里只放非敏感默认值。
	configPath := flag.String("config", "server/configs/config.yaml", "config file path")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		panic(fmt.Sprintf("load config: %v", err))
	}

	log, err := logger.New(cfg.Logging.Mode)
	if err != nil {
		panic(fmt.Sprintf("init logger: %v", err))
	}
	defer log.Sync()

	seq := topic.Default()
	if cfg.Topics.Path != "" {
		seq, err = topic.Load(cfg.Topics.Path)
		if err != nil {
			log.Fatal("load topic sequence", "path", cfg.Topics.Path, "error", err)
		}
	}
	if err := seq.Validate(); err != nil {
		log.Fatal("invalid topic sequence", "error", err)
	}

	client, err := llm.NewClient(cfg)
	if err != nil {
		log.Fatal("init llm client", "error", err)
	}

	var sessions session.Store
	switch cfg.Session.Backend {
	case "redis":
		rs, err := session.NewRedisStore(cfg.Session.RedisAddr, cfg.Session.RedisDB, cfg.Session.TTL)
		if err != nil {
			log.Fatal("connect redis", "addr", cfg.Session.RedisAddr, "error", err)
		}
		defer rs.Close()
		sessions = rs
	default:
		sessions = session.NewInMemoryStore(cfg.Session.TTL)
	}

	archives, err := archive.Open(cfg.Archive, log)
	if err != nil {
		log.Fatal("open archive store", "driver", cfg.Archive.Driver, "error", err)
	}

	controller := dialogue.New(
		sessions,
		seq,
		classify.NewKeywordClassifier(),
		genai.New(client, log),
		timeline.NewInMemoryStore(),
		archiveAdapter{store: archives},
		cfg.Dialogue,
		log,
	)

	srv := api.NewServer(controller, archives, log)
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	httpServer := &http.Server{
		Addr:         addr,
		Handler:      srv.Routes(),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	log.Info("rootjourney server listening", "addr", addr, "provider", cfg.LLM.Provider, "session_backend", cfg.Session.Backend)
	if err := httpServer.ListenAndServe(); err != nil {
		log.Fatal("serve", "error", err)
	}
}
