package session

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryStoreRotate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	exp := time.Now().Add(time.Hour)

	require.NoError(t, store.Create(ctx, &Record{UserID: "u1", Token: "t1", ExpiresAt: exp}))

	next := &Record{Token: "t2", ExpiresAt: exp}
	require.NoError(t, store.Rotate(ctx, "t1", next))
	assert.Equal(t, "u1", next.UserID)

	_, err := store.Lookup(ctx, "t1")
	assert.ErrorIs(t, err, ErrNotFound)
	rec, err := store.Lookup(ctx, "t2")
	require.NoError(t, err)
	assert.Equal(t, "u1", rec.UserID)

	assert.ErrorIs(t, store.Rotate(ctx, "t1", &Record{Token: "t3", ExpiresAt: exp}), ErrNotFound)
}

func TestMemoryStoreConcurrentRotateHasOneWinner(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	exp := time.Now().Add(time.Hour)
	require.NoError(t, store.Create(ctx, &Record{UserID: "u1", Token: "old", ExpiresAt: exp}))

	const n = 8
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := range n {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			errs[i] = store.Rotate(ctx, "old", &Record{Token: string(rune('a' + i)), ExpiresAt: exp})
		}(i)
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
		}
	}
	assert.Equal(t, 1, wins)
	assert.Equal(t, 1, store.Count("u1"))
}

func TestMemoryStoreExpiredAndDeletes(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()

	require.NoError(t, store.Create(ctx, &Record{UserID: "u1", Token: "gone", ExpiresAt: time.Now().Add(-time.Second)}))
	_, err := store.Lookup(ctx, "gone")
	assert.ErrorIs(t, err, ErrNotFound)

	exp := time.Now().Add(time.Hour)
	require.NoError(t, store.Create(ctx, &Record{UserID: "u1", Token: "a", ExpiresAt: exp}))
	require.NoError(t, store.Create(ctx, &Record{UserID: "u1", Token: "b", ExpiresAt: exp}))
	require.NoError(t, store.Create(ctx, &Record{UserID: "u2", Token: "c", ExpiresAt: exp}))

	require.NoError(t, store.Delete(ctx, "a"))
	require.NoError(t, store.Delete(ctx, "a"))
	assert.Equal(t, 1, store.Count("u1"))

	require.NoError(t, store.DeleteForUser(ctx, "u1"))
	assert.Equal(t, 0, store.Count("u1"))
	assert.Equal(t, 1, store.Count("u2"))
}
