// FILE: internal/cache/cache.go
package cache

import (
	"context"
	"sync"
	"time"
)

// DefaultTTL bounds how long a decoded share is kept
const DefaultTTL = 24 * time.Hour

// Entry is the side-independent result of replaying a share token
type Entry struct {
	Moves     []string `json:"moves"`
	Board     []string `json:"board"`
	Black     int      `json:"black"`
	White     int      `json:"white"`
	Winner    string   `json:"winner"`
	EndReason string   `json:"endReason,omitempty"`
}

// ReplayCache stores replay results keyed by token
type ReplayCache interface {
	Get(ctx context.Context, token string) (Entry, bool, error)
	Set(ctx context.Context, token string, entry Entry) error
	Close() error
}

type memoryItem struct {
	entry   Entry
	expires time.Time
}

// Memory is the in-process cache used when no redis is configured
type Memory struct {
	mu    sync.RWMutex
	items map[string]memoryItem
	ttl   time.Duration
	max   int
}

func NewMemory(ttl time.Duration, max int) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{
		items: make(map[string]memoryItem),
		ttl:   ttl,
		max:   max,
	}
}

func (m *Memory) Get(_ context.Context, token string) (Entry, bool, error) {
	m.mu.RLock()
	item, ok := m.items[token]
	m.mu.RUnlock()

	if !ok || time.Now().After(item.expires) {
		return Entry{}, false, nil
	}
	return item.entry, true, nil
}

func (m *Memory) Set(_ context.Context, token string, entry Entry) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	if m.max > 0 && len(m.items) >= m.max {
		for k, v := range m.items {
			if now.After(v.expires) {
				delete(m.items, k)
			}
		}
		// Still full, evict an arbitrary entry
		for k := range m.items {
			if len(m.items) < m.max {
				break
			}
			delete(m.items, k)
		}
	}

	m.items[token] = memoryItem{entry: entry, expires: now.Add(m.ttl)}
	return nil
}

func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.items)
}

func (m *Memory) Close() error {
	return nil
}
