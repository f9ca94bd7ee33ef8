package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// MemoryRepository is a generic in-memory Repository implementation suitable
// for tests and early development. Records are returned in insertion order.
//
// Filter matching goes through the record's JSON encoding: a filter entry
// matches when the same-named JSON field stringifies to the same value. That
// is loose on purpose; the Postgres repositories are the typed source of
// truth and this backend only needs to honor the same filter keys.
type MemoryRepository[T OwnedRecord[T]] struct {
	mu      sync.RWMutex
	records map[uuid.UUID]T
	order   []uuid.UUID

	// searchText extracts the text Search matches against. When nil, Search
	// matches against the record's JSON encoding.
	searchText func(T) string
}

// NewMemoryRepository constructs an empty MemoryRepository. searchText may be
// nil.
func NewMemoryRepository[T OwnedRecord[T]](searchText func(T) string) *MemoryRepository[T] {
	return &MemoryRepository[T]{
		records:    make(map[uuid.UUID]T),
		searchText: searchText,
	}
}

func (r *MemoryRepository[T]) FindAll(_ context.Context, filters Filters) ([]T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []T
	for _, id := range r.order {
		record := r.records[id]
		ok, err := matchesFilters(record, filters)
		if err != nil {
			return nil, err
		}
		if ok {
			results = append(results, record)
		}
	}
	return results, nil
}

func (r *MemoryRepository[T]) FindByID(_ context.Context, id uuid.UUID) (T, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	record, ok := r.records[id]
	if !ok {
		var zero T
		return zero, ErrRecordNotFound
	}
	return record, nil
}

func (r *MemoryRepository[T]) Create(_ context.Context, data T) (T, error) {
	var zero T

	id := data.RecordID()
	if id == uuid.Nil {
		return zero, errors.New("record id is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.records[id]; exists {
		return zero, fmt.Errorf("record %s already exists", id)
	}

	r.records[id] = data
	r.order = append(r.order, id)
	return data, nil
}

// Update replaces the stored record with data. Callers provide the complete
// new state, identity fields included.
func (r *MemoryRepository[T]) Update(_ context.Context, id uuid.UUID, data T) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[id]; !ok {
		var zero T
		return zero, ErrRecordNotFound
	}

	r.records[id] = data
	return data, nil
}

func (r *MemoryRepository[T]) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[id]; !ok {
		return ErrRecordNotFound
	}

	delete(r.records, id)
	for i, ordered := range r.order {
		if ordered == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *MemoryRepository[T]) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.records[id]
	return ok, nil
}

func (r *MemoryRepository[T]) Search(ctx context.Context, query string, opts SearchOptions) ([]T, error) {
	filtered, err := r.FindAll(ctx, opts.Filters)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(strings.TrimSpace(query))

	var results []T
	for _, record := range filtered {
		if needle != "" {
			haystack := ""
			if r.searchText != nil {
				haystack = r.searchText(record)
			} else {
				buf, err := json.Marshal(record)
				if err != nil {
					return nil, err
				}
				haystack = string(buf)
			}
			if !strings.Contains(strings.ToLower(haystack), needle) {
				continue
			}
		}
		results = append(results, record)
	}

	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}
	if offset > len(results) {
		offset = len(results)
	}
	results = results[offset:]

	if opts.Limit > 0 && opts.Limit < len(results) {
		results = results[:opts.Limit]
	}

	return results, nil
}

func (r *MemoryRepository[T]) Count(ctx context.Context, filters Filters) (int64, error) {
	results, err := r.FindAll(ctx, filters)
	if err != nil {
		return 0, err
	}
	return int64(len(results)), nil
}

func matchesFilters[T any](record T, filters Filters) (bool, error) {
	if len(filters) == 0 {
		return true, nil
	}

	buf, err := json.Marshal(record)
	if err != nil {
		return false, fmt.Errorf("marshal record for filter match: %w", err)
	}

	var fields map[string]any
	if err := json.Unmarshal(buf, &fields); err != nil {
		return false, fmt.Errorf("unmarshal record for filter match: %w", err)
	}

	for key, want := range filters {
		got, ok := fields[key]
		if !ok {
			return false, nil
		}
		if fmt.Sprint(got) != fmt.Sprint(want) {
			return false, nil
		}
	}
	return true, nil
}
