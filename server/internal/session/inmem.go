package session

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"rootjourney/server/internal/model"
)

// InMemoryStore 是基于内存的会话存储实现。
// 单机开发/测试用；多实例部署换 RedisStore。
type InMemoryStore struct {
	mu   sync.RWMutex
	data map[string]entry
	ttl  time.Duration
	now  func() time.Time
}

type entry struct {
	raw       []byte
	expiresAt time.Time
}

// NewInMemoryStore 创建内存会话存储。ttl <= 0 表示不过期。
func NewInMemoryStore(ttl time.Duration) *InMemoryStore {
	return &InMemoryStore{
		data: make(map[string]entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

// Load 根据会话 id 读取档案。
// 存储层持有 JSON 快照而非指针：读出的是副本，与 Redis 实现行为一致，
// 调用方改了副本但没 Save 不会影响存储内容。
func (s *InMemoryStore) Load(_ context.Context, id string) (*model.Profile, error) {
	s.mu.RLock()
	e, ok := s.data[id]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrNotFound
	}
	if !e.expiresAt.IsZero() && s.now().After(e.expiresAt) {
		s.mu.Lock()
		delete(s.data, id)
		s.mu.Unlock()
		return nil, ErrNotFound
	}

	var p model.Profile
	if err := json.Unmarshal(e.raw, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// Save 保存或更新会话档案，并刷新过期时间。
func (s *InMemoryStore) Save(_ context.Context, p *model.Profile) error {
	raw, err := json.Marshal(p)
	if err != nil {
		return err
	}

	var expiresAt time.Time
	if s.ttl > 0 {
		expiresAt = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	s.data[p.SessionID] = entry{raw: raw, expiresAt: expiresAt}
	s.mu.Unlock()
	return nil
}
