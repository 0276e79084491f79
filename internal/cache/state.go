package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// ErrMiss is returned when a key is absent or has expired.
var ErrMiss = errors.New("cache: miss")

// StateStore keeps short-lived, single-use JSON records, such as OAuth login state.
type StateStore struct {
	rdb    redis.Cmdable
	prefix string
	ttl    time.Duration
}

// NewStateStore stores records under prefix+key for ttl.
func NewStateStore(rdb redis.Cmdable, prefix string, ttl time.Duration) *StateStore {
	return &StateStore{rdb: rdb, prefix: prefix, ttl: ttl}
}

// Put stores v as JSON under key.
func (s *StateStore) Put(ctx context.Context, key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}
	if err := s.rdb.Set(ctx, s.prefix+key, b, s.ttl).Err(); err != nil {
		return fmt.Errorf("store state: %w", err)
	}
	return nil
}

// Take loads the record under key into v and deletes it in the same round trip, so a
// record can be taken at most once.
func (s *StateStore) Take(ctx context.Context, key string, v any) error {
	b, err := s.rdb.GetDel(ctx, s.prefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ErrMiss
	}
	if err != nil {
		return fmt.Errorf("load state: %w", err)
	}
	if err := json.Unmarshal(b, v); err != nil {
		return fmt.Errorf("decode state: %w", err)
	}
	return nil
}
