package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeRedis implements the two commands StateStore uses.
type fakeRedis struct {
	redis.Cmdable
	data map[string]string
	ttls map[string]time.Duration
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}, ttls: map[string]time.Duration{}}
}

func (f *fakeRedis) Set(_ context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd {
	f.data[key] = string(value.([]byte))
	f.ttls[key] = expiration
	return redis.NewStatusResult("OK", nil)
}

func (f *fakeRedis) GetDel(_ context.Context, key string) *redis.StringCmd {
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	delete(f.data, key)
	return redis.NewStringResult(v, nil)
}

type record struct {
	Provider string `json:"provider"`
	Verifier string `json:"verifier"`
}

func TestStateStorePutTake(t *testing.T) {
	ctx := context.Background()
	rdb := newFakeRedis()
	store := NewStateStore(rdb, "oauth:state:", 5*time.Minute)

	require.NoError(t, store.Put(ctx, "abc", record{Provider: "google", Verifier: "v"}))
	assert.Contains(t, rdb.data, "oauth:state:abc")
	assert.Equal(t, 5*time.Minute, rdb.ttls["oauth:state:abc"])

	var got record
	require.NoError(t, store.Take(ctx, "abc", &got))
	assert.Equal(t, record{Provider: "google", Verifier: "v"}, got)

	assert.ErrorIs(t, store.Take(ctx, "abc", &got), ErrMiss, "records are single use")
	assert.ErrorIs(t, store.Take(ctx, "never", &got), ErrMiss)
}
