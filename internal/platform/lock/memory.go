package lock

import (
	"context"
	"sync"
	"time"
)

// MemoryLocker is an in-process keyed lock. Entries are dropped once nobody
// holds or waits for them.
type MemoryLocker struct {
	mu    sync.Mutex
	locks map[string]*memEntry
}

type memEntry struct {
	slot chan struct{}
	refs int
}

// NewMemoryLocker creates an empty in-process locker.
func NewMemoryLocker() *MemoryLocker {
	return &MemoryLocker{locks: make(map[string]*memEntry)}
}

var _ Locker = (*MemoryLocker)(nil)

// Acquire implements Locker.
func (m *MemoryLocker) Acquire(ctx context.Context, key string, wait time.Duration) (func(), error) {
	e := m.ref(key)

	if wait <= 0 {
		select {
		case e.slot <- struct{}{}:
			return m.releaser(key, e), nil
		default:
			m.unref(key, e)
			return nil, ErrNotAcquired
		}
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()
	select {
	case e.slot <- struct{}{}:
		return m.releaser(key, e), nil
	case <-timer.C:
		m.unref(key, e)
		return nil, ErrNotAcquired
	case <-ctx.Done():
		m.unref(key, e)
		return nil, ctx.Err()
	}
}

// Held reports how many keys currently have holders or waiters.
func (m *MemoryLocker) Held() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.locks)
}

func (m *MemoryLocker) ref(key string) *memEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	e, ok := m.locks[key]
	if !ok {
		e = &memEntry{slot: make(chan struct{}, 1)}
		m.locks[key] = e
	}
	e.refs++
	return e
}

func (m *MemoryLocker) unref(key string, e *memEntry) {
	m.mu.Lock()
	defer m.mu.Unlock()
	e.refs--
	if e.refs == 0 {
		delete(m.locks, key)
	}
}

func (m *MemoryLocker) releaser(key string, e *memEntry) func() {
	var once sync.Once
	return func() {
		once.Do(func() {
			<-e.slot
			m.unref(key, e)
		})
	}
}
