// Package cache holds the public menu between writes so the customer-facing
// ordering page does not hit the store on every load.
package cache

import (
	"context"
	"sync"
	"time"

	"github.com/momohouse/pos/internal/model"
)

// DefaultTTL is how long a cached menu is served before it is reloaded.
const DefaultTTL = 5 * time.Minute

// MenuCache stores the full menu list. Get reports false on a miss.
type MenuCache interface {
	Get(ctx context.Context) ([]model.MenuItem, bool, error)
	Set(ctx context.Context, items []model.MenuItem) error
	Invalidate(ctx context.Context) error
}

// Memory is a process-local MenuCache.
type Memory struct {
	mu      sync.RWMutex
	items   []model.MenuItem
	expires time.Time
	ttl     time.Duration
	now     func() time.Time
}

func NewMemory(ttl time.Duration) *Memory {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Memory{ttl: ttl, now: time.Now}
}

func (m *Memory) Get(ctx context.Context) ([]model.MenuItem, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.items == nil || !m.now().Before(m.expires) {
		return nil, false, nil
	}
	out := make([]model.MenuItem, len(m.items))
	copy(out, m.items)
	return out, true, nil
}

func (m *Memory) Set(ctx context.Context, items []model.MenuItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.items = make([]model.MenuItem, len(items))
	copy(m.items, items)
	m.expires = m.now().Add(m.ttl)
	return nil
}

func (m *Memory) Invalidate(ctx context.Context) error {
	m.mu.Lock()
	m.items = nil
	m.mu.Unlock()
	return nil
}
