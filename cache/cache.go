// Package cache keeps rendered pages between revalidations.
package cache

import (
	"context"
	"sync"
	"time"
)

// Page is a rendered page together with the time it was generated. ETag is
// set when the backend versions its content.
type Page struct {
	Status    int       `json:"status"`
	Body      []byte    `json:"body"`
	ETag      string    `json:"etag,omitempty"`
	Generated time.Time `json:"generated"`
}

// Store holds rendered pages by key. Get returns a nil page on a miss.
type Store interface {
	Get(ctx context.Context, key string) (*Page, error)
	Set(ctx context.Context, key string, p *Page) error
	Delete(ctx context.Context, key string) error
}

// minSweep is the store size below which Memory does not look for expired
// pages.
const minSweep = 64

// Memory keeps pages in process. Like Redis, pages are dropped once they are
// older than retention; a retention of zero keeps them forever.
type Memory struct {
	retention time.Duration
	now       func() time.Time

	mu        sync.RWMutex
	pages     map[string]memEntry
	sweepAt   int
	nextSweep time.Time
}

type memEntry struct {
	page    *Page
	expires time.Time
}

func NewMemory(retention time.Duration) *Memory {
	return &Memory{
		retention: retention,
		now:       time.Now,
		pages:     make(map[string]memEntry),
		sweepAt:   minSweep,
	}
}

func (m *Memory) expired(e memEntry, now time.Time) bool {
	return m.retention > 0 && !now.Before(e.expires)
}

func (m *Memory) Get(ctx context.Context, key string) (*Page, error) {
	m.mu.RLock()
	e, ok := m.pages[key]
	m.mu.RUnlock()
	if !ok {
		return nil, nil
	}
	if m.expired(e, m.now()) {
		m.mu.Lock()
		if cur, ok := m.pages[key]; ok && cur == e {
			delete(m.pages, key)
		}
		m.mu.Unlock()
		return nil, nil
	}
	return e.page, nil
}

func (m *Memory) Set(ctx context.Context, key string, p *Page) error {
	now := m.now()
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pages[key] = memEntry{page: p, expires: now.Add(m.retention)}
	if m.retention > 0 && (len(m.pages) >= m.sweepAt || !now.Before(m.nextSweep)) {
		m.sweep(now)
	}
	return nil
}

// sweep drops expired pages. The next sweep happens once the store has
// doubled or after another retention period, whichever comes first.
func (m *Memory) sweep(now time.Time) {
	for k, e := range m.pages {
		if m.expired(e, now) {
			delete(m.pages, k)
		}
	}
	m.sweepAt = 2 * len(m.pages)
	if m.sweepAt < minSweep {
		m.sweepAt = minSweep
	}
	m.nextSweep = now.Add(m.retention)
}

func (m *Memory) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	delete(m.pages, key)
	m.mu.Unlock()
	return nil
}

// Len returns the number of stored pages, expired ones included until they
// are swept.
func (m *Memory) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.pages)
}
