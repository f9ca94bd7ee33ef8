package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

// fakeClock lets tests move time forward deterministically.
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time { return c.now }

func (c *fakeClock) Advance(d time.Duration) { c.now = c.now.Add(d) }

func newTestCache(t *testing.T, opts Options) (*Cache, *fakeClock) {
	t.Helper()

	clock := &fakeClock{now: time.Date(2026, 8, 1, 10, 0, 0, 0, time.UTC)}
	opts.Now = clock.Now
	return New(NewMemoryStore(), opts), clock
}

func TestSetGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, Options{})

	require.NoError(t, c.SetJSON(ctx, "services:all", []string{"cut", "shave"}, 0))

	value, ok, err := GetAs[[]string](ctx, c, "services:all")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []string{"cut", "shave"}, value)
}

func TestGetMissingKey(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, Options{})

	_, ok, err := GetAs[string](ctx, c, "absent")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestTTLBoundary(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(t, Options{})

	require.NoError(t, c.SetJSON(ctx, "key", "value", time.Minute))

	// Any read strictly before the deadline sees the value.
	clock.Advance(59 * time.Second)
	value, ok, err := GetAs[string](ctx, c, "key")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "value", value)

	// A read at exactly the deadline misses: expiry is t >= expiresAt.
	clock.Advance(time.Second)
	_, ok, err = GetAs[string](ctx, c, "key")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestExpiredEntryDeletedOnRead(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	clock := &fakeClock{now: time.Now()}
	c := New(store, Options{Now: clock.Now})

	require.NoError(t, c.SetJSON(ctx, "key", 1, time.Second))
	clock.Advance(2 * time.Second)

	_, ok, err := c.GetJSON(ctx, "key")
	require.NoError(t, err)
	require.False(t, ok)

	// Lazy expiry removed the raw item from the store.
	_, err = store.GetItem(ctx, "key")
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestDefaultTTLApplied(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(t, Options{DefaultTTL: 5 * time.Minute})

	require.NoError(t, c.SetJSON(ctx, "key", "value", 0))

	clock.Advance(5*time.Minute - time.Second)
	ok, err := c.Has(ctx, "key")
	require.NoError(t, err)
	require.True(t, ok)

	clock.Advance(time.Second)
	ok, err = c.Has(ctx, "key")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestOverwriteSilently(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, Options{})

	require.NoError(t, c.SetJSON(ctx, "key", "first", time.Minute))
	require.NoError(t, c.SetJSON(ctx, "key", "second", time.Minute))

	value, ok, err := GetAs[string](ctx, c, "key")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "second", value)
}

func TestDeleteAndClear(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, Options{})

	require.NoError(t, c.SetJSON(ctx, "a", 1, time.Minute))
	require.NoError(t, c.SetJSON(ctx, "b", 2, time.Minute))

	require.NoError(t, c.Delete(ctx, "a"))
	ok, err := c.Has(ctx, "a")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, c.Clear(ctx))
	ok, err = c.Has(ctx, "b")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCorruptEntryTreatedAsMiss(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	c := New(store, Options{})

	require.NoError(t, store.SetItem(ctx, "key", []byte("not json")))

	_, ok, err := c.GetJSON(ctx, "key")
	require.NoError(t, err)
	require.False(t, ok)

	_, err = store.GetItem(ctx, "key")
	require.ErrorIs(t, err, ErrItemNotFound)
}

func TestFetchWithCachesResult(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(t, Options{DefaultTTL: 5 * time.Minute})

	calls := 0
	fetch := func(context.Context) ([]string, error) {
		calls++
		return []string{"fade", "trim"}, nil
	}

	value, err := FetchWith(ctx, c, "services:{}", fetch, FetchOptions{})
	require.NoError(t, err)
	require.Equal(t, []string{"fade", "trim"}, value)
	require.Equal(t, 1, calls)

	// Second call within the TTL does not invoke fetch again.
	clock.Advance(4 * time.Minute)
	value, err = FetchWith(ctx, c, "services:{}", fetch, FetchOptions{})
	require.NoError(t, err)
	require.Equal(t, []string{"fade", "trim"}, value)
	require.Equal(t, 1, calls)

	// After the TTL it fetches again.
	clock.Advance(2 * time.Minute)
	_, err = FetchWith(ctx, c, "services:{}", fetch, FetchOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}

func TestFetchWithForceRefresh(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, Options{})

	calls := 0
	fetch := func(context.Context) (int, error) {
		calls++
		return calls, nil
	}

	_, err := FetchWith(ctx, c, "key", fetch, FetchOptions{})
	require.NoError(t, err)

	value, err := FetchWith(ctx, c, "key", fetch, FetchOptions{ForceRefresh: true})
	require.NoError(t, err)
	require.Equal(t, 2, value)
	require.Equal(t, 2, calls)
}

func TestFetchWithErrorPropagatesAndNothingCached(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, Options{})

	fetchErr := errors.New("backend down")
	_, err := FetchWith(ctx, c, "key", func(context.Context) (string, error) {
		return "", fetchErr
	}, FetchOptions{})
	require.ErrorIs(t, err, fetchErr)

	ok, err := c.Has(ctx, "key")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCleanupSweepsExpiredFirst(t *testing.T) {
	ctx := context.Background()
	c, clock := newTestCache(t, Options{})

	require.NoError(t, c.SetJSON(ctx, "old", "x", time.Second))
	require.NoError(t, c.SetJSON(ctx, "fresh", "y", time.Hour))
	clock.Advance(time.Minute)

	require.NoError(t, c.Cleanup(ctx))

	ok, err := c.Has(ctx, "fresh")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.Has(ctx, "old")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestCleanupEvictsSmallestFirstUnderCap(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	clock := &fakeClock{now: time.Now()}

	small := "s"
	medium := "mmmmmmmmmmmmmmmmmmmmmmmmmmmmmm"
	large := medium + medium + medium + medium

	c := New(store, Options{Now: clock.Now, MaxBytes: 1})
	require.NoError(t, c.SetJSON(ctx, "small", small, time.Hour))
	require.NoError(t, c.SetJSON(ctx, "medium", medium, time.Hour))
	require.NoError(t, c.SetJSON(ctx, "large", large, time.Hour))

	// Cap of one byte forces eviction of everything, smallest entries going
	// first. With a cap that fits only the largest entry, it must survive.
	sizeOf := func(key string) int64 {
		buf, err := store.GetItem(ctx, key)
		require.NoError(t, err)
		return int64(len(buf))
	}
	capBytes := sizeOf("large")

	c = New(store, Options{Now: clock.Now, MaxBytes: capBytes})
	require.NoError(t, c.Cleanup(ctx))

	ok, err := c.Has(ctx, "large")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.Has(ctx, "small")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = c.Has(ctx, "medium")
	require.NoError(t, err)
	require.False(t, ok)
}

type countingStats struct {
	hits, misses, evictions int
}

func (s *countingStats) Hit()      { s.hits++ }
func (s *countingStats) Miss()     { s.misses++ }
func (s *countingStats) Eviction() { s.evictions++ }

func TestStatsReporting(t *testing.T) {
	ctx := context.Background()
	stats := &countingStats{}
	clock := &fakeClock{now: time.Now()}
	c := New(NewMemoryStore(), Options{Now: clock.Now, Stats: stats})

	require.NoError(t, c.SetJSON(ctx, "key", 1, time.Minute))

	_, _, err := c.GetJSON(ctx, "key")
	require.NoError(t, err)
	_, _, err = c.GetJSON(ctx, "absent")
	require.NoError(t, err)

	require.Equal(t, 1, stats.hits)
	require.Equal(t, 1, stats.misses)
}
