package session

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"rootjourney/server/internal/model"
)

// RedisStore 是 Redis 会话存储实现，TTL 由 Redis 过期机制承担。
type RedisStore struct {
	rdb *goredis.Client
	ttl time.Duration
}

// NewRedisStore 连接 Redis 并创建会话存储。
func NewRedisStore(addr string, db int, ttl time.Duration) (*RedisStore, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DB:          db,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &RedisStore{rdb: rdb, ttl: ttl}, nil
}

func sessionKey(id string) string {
	return "rootjourney:session:" + id
}

// Load 根据会话 id 读取档案；键不存在或已过期返回 ErrNotFound。
func (s *RedisStore) Load(ctx context.Context, id string) (*model.Profile, error) {
	raw, err := s.rdb.Get(ctx, sessionKey(id)).Bytes()
	if err == goredis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("redis get: %w", err)
	}

	var p model.Profile
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("decode session %s: %w", id, err)
	}
	return &p, nil
}

// Save 保存会话档案并刷新 TTL。
func (s *RedisStore) Save(ctx context.Context, p *model.Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("encode session %s: %w", p.SessionID, err)
	}
	if err := s.rdb.Set(ctx, sessionKey(p.SessionID), raw, s.ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}

// Close 关闭底层连接。
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
