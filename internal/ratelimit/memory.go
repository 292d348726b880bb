package ratelimit

import (
	"context"
	"sync"
	"time"
)

type memoryEntry struct {
	count   int
	resetAt time.Time
}

// MemoryCounter is the process-local default: a map of fixed windows with
// lazy expiry and no background sweeper. It is a soft limiter with no
// cross-instance guarantee.
type MemoryCounter struct {
	mu      sync.Mutex
	entries map[string]*memoryEntry
	window  time.Duration
	now     func() time.Time
}

func NewMemoryCounter(window time.Duration) *MemoryCounter {
	return &MemoryCounter{
		entries: make(map[string]*memoryEntry),
		window:  window,
		now:     time.Now,
	}
}

func (m *MemoryCounter) Increment(_ context.Context, key string) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	m.sweepLocked(now)

	entry, ok := m.entries[key]
	if !ok || now.After(entry.resetAt) {
		m.entries[key] = &memoryEntry{count: 1, resetAt: now.Add(m.window)}
		return 1, nil
	}
	entry.count++
	return entry.count, nil
}

func (m *MemoryCounter) Reset(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, key)
	return nil
}

// sweepLocked drops expired windows. Called on every increment so the map
// stays bounded by the number of distinct clients per window.
func (m *MemoryCounter) sweepLocked(now time.Time) {
	for key, entry := range m.entries {
		if now.After(entry.resetAt) {
			delete(m.entries, key)
		}
	}
}
