// Package cache provides simplecms.TreeCache implementations. Both keep a
// generation counter that Purge advances. The memory cache also clears its
// map; the Redis cache leaves older keys unreachable until they expire.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/tendant/simple-cms/pkg/simplecms"
)

// Memory is a single-process TreeCache.
type Memory struct {
	mu      sync.RWMutex
	ttl     time.Duration
	gen     int64
	entries map[simplecms.TreeKey]memoryEntry
	now     func() time.Time
}

type memoryEntry struct {
	view      *simplecms.PageView
	expiresAt time.Time
}

// NewMemory creates an in-process cache. A zero ttl keeps entries until the
// next purge.
func NewMemory(ttl time.Duration) *Memory {
	return &Memory{
		ttl:     ttl,
		entries: make(map[simplecms.TreeKey]memoryEntry),
		now:     time.Now,
	}
}

func (m *Memory) Generation(ctx context.Context) (int64, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.gen, nil
}

func (m *Memory) Get(ctx context.Context, key simplecms.TreeKey) (*simplecms.PageView, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	e, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !e.expiresAt.IsZero() && m.now().After(e.expiresAt) {
		return nil, false, nil
	}
	return e.view, true, nil
}

// Set drops the view when a purge happened after gen was read.
func (m *Memory) Set(ctx context.Context, gen int64, key simplecms.TreeKey, view *simplecms.PageView) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if gen != m.gen {
		return nil
	}
	e := memoryEntry{view: view}
	if m.ttl > 0 {
		e.expiresAt = m.now().Add(m.ttl)
	}
	m.entries[key] = e
	return nil
}

func (m *Memory) Purge(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.gen++
	m.entries = make(map[simplecms.TreeKey]memoryEntry)
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}
