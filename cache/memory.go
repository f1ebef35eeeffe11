package cache

import (
	"container/list"
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	key       string
	value     []byte
	pinned    bool
	expiresAt time.Time     // zero for pinned entries
	elem      *list.Element // position in the LRU list, nil when pinned
}

// Memory is an in-process Cache bounded by the total size of cached values.
// Volatile entries live on an LRU list and are reclaimed from the cold end
// when the bound is exceeded; pinned entries are never auto-evicted.
type Memory struct {
	mu         sync.Mutex
	maxMemory  int64
	defaultTTL time.Duration
	used       int64
	entries    map[string]*memoryEntry
	lru        *list.List // front = most recently used volatile entry
}

var _ Cache = (*Memory)(nil)

func NewMemory(maxMemory int64, defaultTTL time.Duration) *Memory {
	return &Memory{
		maxMemory:  maxMemory,
		defaultTTL: defaultTTL,
		entries:    make(map[string]*memoryEntry),
		lru:        list.New(),
	}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, ErrMiss
	}
	if !e.pinned && !e.expiresAt.IsZero() && time.Now().After(e.expiresAt) {
		m.remove(e)
		return nil, ErrMiss
	}
	if e.elem != nil {
		m.lru.MoveToFront(e.elem)
	}
	// Hand out a copy; a caller mutating the result must not corrupt the
	// entry under concurrent readers.
	out := make([]byte, len(e.value))
	copy(out, e.value)
	return out, nil
}

func (m *Memory) Put(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if int64(len(value)) > m.maxMemory {
		// A value the cache cannot hold is simply not cached; the cold tier
		// remains the source of truth.
		return nil
	}
	if ttl <= 0 {
		ttl = m.defaultTTL
	}

	// Copy before taking the lock so a caller mutating its buffer can never
	// expose partially written bytes to concurrent readers.
	stored := make([]byte, len(value))
	copy(stored, value)

	m.mu.Lock()
	defer m.mu.Unlock()

	if old, ok := m.entries[key]; ok {
		m.remove(old)
	}

	e := &memoryEntry{
		key:       key,
		value:     stored,
		expiresAt: time.Now().Add(ttl),
	}
	e.elem = m.lru.PushFront(e)
	m.entries[key] = e
	m.used += int64(len(stored))

	m.evictLocked()
	return nil
}

func (m *Memory) Pin(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[key]
	if !ok {
		return ErrMiss
	}
	if e.pinned {
		return nil
	}
	e.pinned = true
	e.expiresAt = time.Time{}
	if e.elem != nil {
		m.lru.Remove(e.elem)
		e.elem = nil
	}
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if e, ok := m.entries[key]; ok {
		m.remove(e)
	}
	return nil
}

// Used reports the current total size of cached values in bytes.
func (m *Memory) Used() int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.used
}

// evictLocked reclaims least-recently-used volatile entries until the cache
// is back under its memory bound. Pinned entries are not on the LRU list and
// therefore survive any amount of pressure.
func (m *Memory) evictLocked() {
	for m.used > m.maxMemory {
		back := m.lru.Back()
		if back == nil {
			return
		}
		m.remove(back.Value.(*memoryEntry))
	}
}

func (m *Memory) remove(e *memoryEntry) {
	if e.elem != nil {
		m.lru.Remove(e.elem)
		e.elem = nil
	}
	delete(m.entries, e.key)
	m.used -= int64(len(e.value))
}
