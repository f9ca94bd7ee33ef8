package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"
)

// Bucket is any JSON key/value surface with TTL semantics: the shared Cache
// or a tenant-scoped view of it.
type Bucket interface {
	SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error
	GetJSON(ctx context.Context, key string) (json.RawMessage, bool, error)
}

// FetchOptions tunes FetchWith behavior.
type FetchOptions struct {
	// ForceRefresh bypasses the cached value and always invokes fetch.
	ForceRefresh bool
	// TTL for the stored result. Zero uses the bucket default.
	TTL time.Duration
}

// GetAs returns the cached value for key decoded as T, with ok=false on miss.
func GetAs[T any](ctx context.Context, b Bucket, key string) (T, bool, error) {
	var zero T

	raw, ok, err := b.GetJSON(ctx, key)
	if err != nil || !ok {
		return zero, false, err
	}

	var value T
	if err := json.Unmarshal(raw, &value); err != nil {
		return zero, false, fmt.Errorf("decode cached value for %q: %w", key, err)
	}
	return value, true, nil
}

// FetchWith returns the cached value for key unless it is missing, expired,
// or ForceRefresh is set, in which case fetch runs and its result is stored.
// A fetch error propagates unchanged and nothing is cached; callers wanting
// stale-on-error behavior must implement it themselves.
func FetchWith[T any](ctx context.Context, b Bucket, key string, fetch func(context.Context) (T, error), opts FetchOptions) (T, error) {
	if !opts.ForceRefresh {
		value, ok, err := GetAs[T](ctx, b, key)
		if err != nil {
			var zero T
			return zero, err
		}
		if ok {
			return value, nil
		}
	}

	value, err := fetch(ctx)
	if err != nil {
		var zero T
		return zero, err
	}

	// A store failure must not lose a successfully fetched value; the next
	// read simply misses again.
	_ = b.SetJSON(ctx, key, value, opts.TTL)

	return value, nil
}
