package cache

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	value     []byte
	expiresAt time.Time
}

// Memory is an in-process TTL store. Expired entries are dropped lazily on
// read and swept opportunistically on write.
type Memory struct {
	mu      sync.RWMutex
	entries map[string]memoryEntry

	// nowFunc allows test injection of time.
	nowFunc func() time.Time
}

// NewMemory creates an empty in-memory store.
func NewMemory() *Memory {
	return &Memory{
		entries: make(map[string]memoryEntry),
		nowFunc: time.Now,
	}
}

// Get returns the stored value, or a miss for absent or expired keys.
func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	m.mu.RLock()
	entry, ok := m.entries[key]
	m.mu.RUnlock()

	if !ok {
		return nil, false, nil
	}
	if m.nowFunc().After(entry.expiresAt) {
		m.mu.Lock()
		delete(m.entries, key)
		m.mu.Unlock()
		return nil, false, nil
	}
	return entry.value, true, nil
}

// Set stores value under key for the given TTL.
func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	now := m.nowFunc()

	m.mu.Lock()
	defer m.mu.Unlock()

	// Sweep a handful of expired entries so the map does not grow
	// unbounded under write-heavy load.
	swept := 0
	for k, e := range m.entries {
		if now.After(e.expiresAt) {
			delete(m.entries, k)
			swept++
			if swept >= 16 {
				break
			}
		}
	}

	m.entries[key] = memoryEntry{
		value:     append([]byte(nil), value...),
		expiresAt: now.Add(ttl),
	}
	return nil
}

// Len returns the number of live entries, counting not-yet-swept expired
// ones.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
