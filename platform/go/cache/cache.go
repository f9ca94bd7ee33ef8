package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"
)

// DefaultTTL applies when a write does not specify its own TTL.
const DefaultTTL = 5 * time.Minute

// Stats receives cache activity notifications. Implemented by the Prometheus
// collectors in platform/go/metrics; a nil Stats disables reporting.
type Stats interface {
	Hit()
	Miss()
	Eviction()
}

// Options configures a Cache.
type Options struct {
	// DefaultTTL applies to writes with no explicit TTL. Zero means DefaultTTL.
	DefaultTTL time.Duration
	// MaxBytes caps the total serialized size of live entries. Zero disables
	// size-based eviction.
	MaxBytes int64
	// Stats receives hit/miss/eviction notifications. May be nil.
	Stats Stats
	// Now overrides the clock, for tests. Nil means time.Now.
	Now func() time.Time
}

// Cache layers TTL semantics over a raw Store. Expiry is lazy: expired
// entries are deleted when read, plus a best-effort periodic sweep when the
// janitor is running. Writes overwrite silently.
type Cache struct {
	store      Store
	defaultTTL time.Duration
	maxBytes   int64
	stats      Stats
	now        func() time.Time
}

// envelope is the stored shape of every entry: the payload plus its absolute
// expiry. Expiry travels with the value so all Store backends age identically.
type envelope struct {
	Data      json.RawMessage `json:"data"`
	ExpiresAt time.Time       `json:"expiresAt"`
}

// New constructs a Cache over the given store.
func New(store Store, opts Options) *Cache {
	if store == nil {
		panic("cache store is required")
	}

	ttl := opts.DefaultTTL
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	return &Cache{
		store:      store,
		defaultTTL: ttl,
		maxBytes:   opts.MaxBytes,
		stats:      opts.Stats,
		now:        now,
	}
}

// SetJSON stores value under key with an absolute expiry of now+ttl.
// A non-positive ttl falls back to the cache default.
func (c *Cache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = c.defaultTTL
	}

	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("marshal cache value for %q: %w", key, err)
	}

	buf, err := json.Marshal(envelope{Data: data, ExpiresAt: c.now().Add(ttl)})
	if err != nil {
		return fmt.Errorf("marshal cache envelope for %q: %w", key, err)
	}

	return c.store.SetItem(ctx, key, buf)
}

// GetJSON returns the raw payload for key, or ok=false when the key is absent
// or expired. Expired entries are deleted on read.
func (c *Cache) GetJSON(ctx context.Context, key string) (json.RawMessage, bool, error) {
	buf, err := c.store.GetItem(ctx, key)
	if err != nil {
		if errors.Is(err, ErrItemNotFound) {
			c.miss()
			return nil, false, nil
		}
		return nil, false, err
	}

	var entry envelope
	if err := json.Unmarshal(buf, &entry); err != nil {
		// Corrupt entry: drop it and report a miss.
		_ = c.store.RemoveItem(ctx, key)
		c.miss()
		return nil, false, nil
	}

	if !c.now().Before(entry.ExpiresAt) {
		if err := c.store.RemoveItem(ctx, key); err != nil {
			return nil, false, err
		}
		c.miss()
		return nil, false, nil
	}

	c.hit()
	return entry.Data, true, nil
}

// Has reports whether key holds a live entry, with the same expiry semantics
// as GetJSON but without materializing the value for the caller.
func (c *Cache) Has(ctx context.Context, key string) (bool, error) {
	_, ok, err := c.GetJSON(ctx, key)
	return ok, err
}

// Delete removes a single key. Removing an absent key is not an error.
func (c *Cache) Delete(ctx context.Context, key string) error {
	return c.store.RemoveItem(ctx, key)
}

// Clear removes every entry in the underlying store. Tenant-scoped callers
// must use TenantCache.Clear instead, which only touches their namespace.
func (c *Cache) Clear(ctx context.Context) error {
	return c.store.Clear(ctx)
}

// DeletePrefix removes every key under the given prefix.
func (c *Cache) DeletePrefix(ctx context.Context, prefix string) error {
	keys, err := c.store.Keys(ctx)
	if err != nil {
		return err
	}

	for _, key := range keys {
		if !strings.HasPrefix(key, prefix) {
			continue
		}
		if err := c.store.RemoveItem(ctx, key); err != nil {
			return err
		}
	}
	return nil
}

// Cleanup sweeps expired entries, then, when a size cap is configured,
// evicts smallest-first until the total serialized size fits the cap.
// Smallest-first is sufficient here; strict LRU order is not tracked.
func (c *Cache) Cleanup(ctx context.Context) error {
	keys, err := c.store.Keys(ctx)
	if err != nil {
		return err
	}

	type liveEntry struct {
		key  string
		size int64
	}

	var (
		live  []liveEntry
		total int64
	)

	now := c.now()
	for _, key := range keys {
		buf, err := c.store.GetItem(ctx, key)
		if err != nil {
			if errors.Is(err, ErrItemNotFound) {
				continue
			}
			return err
		}

		var entry envelope
		if err := json.Unmarshal(buf, &entry); err != nil || !now.Before(entry.ExpiresAt) {
			if err := c.store.RemoveItem(ctx, key); err != nil {
				return err
			}
			c.eviction()
			continue
		}

		size := int64(len(buf))
		live = append(live, liveEntry{key: key, size: size})
		total += size
	}

	if c.maxBytes <= 0 || total <= c.maxBytes {
		return nil
	}

	sort.Slice(live, func(i, j int) bool { return live[i].size < live[j].size })
	for _, entry := range live {
		if total <= c.maxBytes {
			break
		}
		if err := c.store.RemoveItem(ctx, entry.key); err != nil {
			return err
		}
		c.eviction()
		total -= entry.size
	}

	return nil
}

// StartJanitor runs Cleanup on the given interval until ctx is cancelled.
// Sweep failures are best-effort and do not stop the janitor.
func (c *Cache) StartJanitor(ctx context.Context, interval time.Duration, onError func(error)) {
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if err := c.Cleanup(ctx); err != nil && onError != nil {
					onError(err)
				}
			}
		}
	}()
}

func (c *Cache) hit() {
	if c.stats != nil {
		c.stats.Hit()
	}
}

func (c *Cache) miss() {
	if c.stats != nil {
		c.stats.Miss()
	}
}

func (c *Cache) eviction() {
	if c.stats != nil {
		c.stats.Eviction()
	}
}
