package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clockedStore returns a store whose clock only moves when advance is called
func clockedStore(t *testing.T) (*InMemoryIdempotencyStore, func(time.Duration)) {
	t.Helper()
	store := newInMemoryIdempotencyStore(time.Hour)
	t.Cleanup(func() { _ = store.Close() })

	var mu sync.Mutex
	now := time.Date(2025, 1, 10, 9, 0, 0, 0, time.UTC)
	store.now = func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		return now
	}
	return store, func(d time.Duration) {
		mu.Lock()
		now = now.Add(d)
		mu.Unlock()
	}
}

func TestInMemoryIdempotencyStore_GuardLifecycle(t *testing.T) {
	store, advance := clockedStore(t)
	ctx := context.Background()
	const key = "rate-sync:2025-01-10"

	claimed, err := store.MarkProcessed(ctx, key, 10*time.Minute)
	require.NoError(t, err)
	assert.True(t, claimed)

	held, err := store.IsProcessed(ctx, key)
	require.NoError(t, err)
	assert.True(t, held)

	claimed, err = store.MarkProcessed(ctx, key, 10*time.Minute)
	require.NoError(t, err)
	assert.False(t, claimed, "a held guard cannot be taken by a second run")

	other, err := store.MarkProcessed(ctx, "rate-sync:2025-01-11", time.Minute)
	require.NoError(t, err)
	assert.True(t, other, "guards are per business date")

	advance(10 * time.Minute)
	held, _ = store.IsProcessed(ctx, key)
	assert.False(t, held, "the claim expires at its ttl")
	claimed, _ = store.MarkProcessed(ctx, key, time.Minute)
	assert.True(t, claimed, "an expired guard can be taken again")

	require.NoError(t, store.Release(ctx, key))
	held, _ = store.IsProcessed(ctx, key)
	assert.False(t, held)
	require.NoError(t, store.Release(ctx, "never-claimed"))
}

func TestInMemoryIdempotencyStore_SweepDropsExpired(t *testing.T) {
	store, advance := clockedStore(t)
	ctx := context.Background()

	_, _ = store.MarkProcessed(ctx, "event:audit:a", time.Minute)
	_, _ = store.MarkProcessed(ctx, "event:audit:b", time.Hour)
	require.Equal(t, 2, store.Size())

	advance(2 * time.Minute)
	store.sweep()

	assert.Equal(t, 1, store.Size())
	held, _ := store.IsProcessed(ctx, "event:audit:b")
	assert.True(t, held)
}

func TestInMemoryIdempotencyStore_SingleWinnerUnderContention(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	defer store.Close()

	var winners atomic.Int32
	var wg sync.WaitGroup
	for range 50 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, err := store.MarkProcessed(context.Background(), "rate-sync:2025-01-10", time.Minute)
			if err == nil && ok {
				winners.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.EqualValues(t, 1, winners.Load())
}

func TestInMemoryIdempotencyStore_BackgroundSweeper(t *testing.T) {
	store := newInMemoryIdempotencyStore(10 * time.Millisecond)
	defer store.Close()

	_, err := store.MarkProcessed(context.Background(), "rate-sync:2025-01-10", time.Millisecond)
	require.NoError(t, err)

	assert.Eventually(t, func() bool { return store.Size() == 0 }, time.Second, 10*time.Millisecond)
}

func TestInMemoryIdempotencyStore_CloseTwice(t *testing.T) {
	store := NewInMemoryIdempotencyStore()
	require.NoError(t, store.Close())
	require.NoError(t, store.Close())
}
