package session

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-process Store for tests and local tooling.
type MemoryStore struct {
	mu      sync.Mutex
	records map[string]Record
	now     func() time.Time
}

// NewMemoryStore returns an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: map[string]Record{}, now: time.Now}
}

func (m *MemoryStore) Create(_ context.Context, rec *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	rec.CreatedAt = m.now()
	m.records[hashToken(rec.Token)] = *rec
	return nil
}

func (m *MemoryStore) Lookup(_ context.Context, token string) (*Record, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.live(token)
	if !ok {
		return nil, ErrNotFound
	}
	return &rec, nil
}

func (m *MemoryStore) Rotate(_ context.Context, oldToken string, next *Record) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	rec, ok := m.live(oldToken)
	if !ok {
		return ErrNotFound
	}
	delete(m.records, hashToken(oldToken))
	next.ID, next.UserID, next.CreatedAt = rec.ID, rec.UserID, rec.CreatedAt
	m.records[hashToken(next.Token)] = *next
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, token string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.records, hashToken(token))
	return nil
}

func (m *MemoryStore) DeleteForUser(_ context.Context, userID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for k, rec := range m.records {
		if rec.UserID == userID {
			delete(m.records, k)
		}
	}
	return nil
}

// Count returns the number of live records of the user.
func (m *MemoryStore) Count(userID string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, rec := range m.records {
		if rec.UserID == userID && rec.ExpiresAt.After(m.now()) {
			n++
		}
	}
	return n
}

func (m *MemoryStore) live(token string) (Record, bool) {
	rec, ok := m.records[hashToken(token)]
	if !ok || !rec.ExpiresAt.After(m.now()) {
		return Record{}, false
	}
	return rec, true
}
