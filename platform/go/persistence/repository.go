package persistence

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrRecordNotFound covers both "record does not exist" and "record belongs
// to another tenant". The two are deliberately indistinguishable so that raw
// ID probing cannot reveal whether another tenant's record exists.
var ErrRecordNotFound = errors.New("record not found")

// Filters narrows FindAll/Count/Search results by field value.
type Filters map[string]any

// With returns a copy of the filters with one entry added or replaced.
// The receiver is never mutated; callers may reuse their filter maps.
func (f Filters) With(key string, value any) Filters {
	merged := make(Filters, len(f)+1)
	for k, v := range f {
		merged[k] = v
	}
	merged[key] = value
	return merged
}

// SearchOptions tunes Search calls.
type SearchOptions struct {
	Filters Filters
	Limit   int
	Offset  int
}

// Repository is the generic CRUD contract over one record type. Backends
// (Postgres, in-memory) implement it without any tenant awareness; scoping is
// layered on by TenantRepository.
type Repository[T Record] interface {
	FindAll(ctx context.Context, filters Filters) ([]T, error)
	FindByID(ctx context.Context, id uuid.UUID) (T, error)
	Create(ctx context.Context, data T) (T, error)
	Update(ctx context.Context, id uuid.UUID, data T) (T, error)
	Delete(ctx context.Context, id uuid.UUID) error
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
	Search(ctx context.Context, query string, opts SearchOptions) ([]T, error)
	Count(ctx context.Context, filters Filters) (int64, error)
}
