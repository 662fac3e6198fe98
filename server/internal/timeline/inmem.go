package timeline

import (
	"context"
	"sync"
	"time"

	"rootjourney/server/internal/model"
)

// InMemoryStore 是一个基于内存的事件流存储实现。
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[string][]model.TurnEvent
	seq    map[string]int64
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		events: make(map[string][]model.TurnEvent),
		seq:    make(map[string]int64),
	}
}

// Append 追加事件，并为该 session 分配单调递增 seq。
// 副作用：会补全 Seq、SessionID 与 ServerTS。
func (s *InMemoryStore) Append(_ context.Context, sessionID string, evt *model.TurnEvent) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq[sessionID]++
	seq := s.seq[sessionID]

	eventCopy := *evt
	eventCopy.Seq = seq
	eventCopy.SessionID = sessionID
	if eventCopy.ServerTS.IsZero() {
		eventCopy.ServerTS = time.Now()
	}
	s.events[sessionID] = append(s.events[sessionID], eventCopy)

	return seq, nil
}

// List 返回某个 session 的全部事件（按 seq 顺序）。
// 兼容性：返回切片副本，避免调用方修改内部数据。
func (s *InMemoryStore) List(_ context.Context, sessionID string) ([]model.TurnEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := s.events[sessionID]
	out := make([]model.TurnEvent, len(events))
	copy(out, events)
	return out, nil
}
