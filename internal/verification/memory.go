package verification

import (
	"context"
	"sync"
	"time"
)

// MemoryStore is an in-process Store for tests and local tooling.
type MemoryStore struct {
	mu    sync.Mutex
	codes map[string]*Code
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{codes: make(map[string]*Code)}
}

func (m *MemoryStore) Replace(_ context.Context, c *Code) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for id, existing := range m.codes {
		if existing.Scope == c.Scope && existing.Purpose == c.Purpose {
			delete(m.codes, id)
		}
	}
	cp := *c
	m.codes[c.ID] = &cp
	return nil
}

func (m *MemoryStore) Find(_ context.Context, scope Scope, purpose Purpose, value string, includeUsed bool, now time.Time) (*Code, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.match(scope, purpose, value, includeUsed, now)
	if c == nil {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

// match must be called with mu held.
func (m *MemoryStore) match(scope Scope, purpose Purpose, value string, includeUsed bool, now time.Time) *Code {
	var best *Code
	for _, c := range m.codes {
		if c.Scope != scope || c.Purpose != purpose || c.Value != value || !c.ExpiresAt.After(now) {
			continue
		}
		if c.Used && !includeUsed {
			continue
		}
		if best == nil || c.CreatedAt.After(best.CreatedAt) {
			best = c
		}
	}
	return best
}

func (m *MemoryStore) MarkUsed(_ context.Context, id string, expiresAt, now time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.codes[id]
	if !ok || c.Used || !c.ExpiresAt.After(now) {
		return false, nil
	}
	c.Used = true
	c.ExpiresAt = expiresAt
	return true, nil
}

func (m *MemoryStore) Take(_ context.Context, scope Scope, purpose Purpose, value string, includeUsed bool, now time.Time) (*Code, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.match(scope, purpose, value, includeUsed, now)
	if c == nil {
		return nil, nil
	}
	delete(m.codes, c.ID)
	cp := *c
	return &cp, nil
}

// Active returns the codes currently held for scope and purpose, expired ones included.
func (m *MemoryStore) Active(scope Scope, purpose Purpose) []Code {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []Code
	for _, c := range m.codes {
		if c.Scope == scope && c.Purpose == purpose {
			out = append(out, *c)
		}
	}
	return out
}
