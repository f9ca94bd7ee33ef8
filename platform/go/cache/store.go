package cache

import (
	"context"
	"errors"
)

// ErrItemNotFound indicates the requested key is absent from the store.
var ErrItemNotFound = errors.New("cache item not found")

// Store is the raw key/value primitive beneath the TTL cache. Implementations
// may be in-process memory or a shared server like Redis; the cache layer is
// agnostic to which. Expiry is handled above the store so all backends behave
// identically.
type Store interface {
	SetItem(ctx context.Context, key string, value []byte) error
	GetItem(ctx context.Context, key string) ([]byte, error)
	RemoveItem(ctx context.Context, key string) error
	Clear(ctx context.Context) error
	Keys(ctx context.Context) ([]string, error)
}
