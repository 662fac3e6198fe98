package dialogue

import "sync"

// keyedLocks 按 session 串行化轮次处理：同一 session 的并发提交必须排队，
// 否则读改写会互相覆盖。
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{locks: make(map[string]*sync.Mutex)}
}

// acquire 锁住指定 key，返回解锁函数。
func (k *keyedLocks) acquire(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &sync.Mutex{}
		k.locks[key] = l
	}
	k.mu.Unlock()

	l.Lock()
	return l.Unlock
}
