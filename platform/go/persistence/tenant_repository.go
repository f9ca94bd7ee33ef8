package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/trimly-app/trimly-saas/platform/go/tenant"
)

// FilterTenantID is the filter key every backend honors for tenant scoping.
const FilterTenantID = "tenantId"

// TenantRepository wraps a generic Repository and scopes every operation to
// the tenant carried on the context. It is a drop-in replacement for the
// wrapped repository.
//
// FindAll trusts the backend to honor the tenant filter; FindByID re-checks
// ownership on the returned record because a raw ID lookup bypasses filtered
// queries. Update and Delete re-use that check before mutating, trading one
// extra read per mutation for an auditable isolation guarantee against
// guessable IDs.
type TenantRepository[T OwnedRecord[T]] struct {
	base Repository[T]
}

// NewTenantScoped wraps base with tenant scoping. The tenant is resolved from
// the context on every call, so a tenant switch never leaves a wrapper bound
// to a stale tenant id.
func NewTenantScoped[T OwnedRecord[T]](base Repository[T]) *TenantRepository[T] {
	if base == nil {
		panic("base repository is required")
	}
	return &TenantRepository[T]{base: base}
}

// FindAll merges the tenant id into the filters and delegates.
func (r *TenantRepository[T]) FindAll(ctx context.Context, filters Filters) ([]T, error) {
	space, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	return r.base.FindAll(ctx, filters.With(FilterTenantID, space.TenantID))
}

// FindByID delegates, then verifies the record belongs to the active tenant.
// A record owned by another tenant is reported as ErrRecordNotFound, never
// surfaced.
func (r *TenantRepository[T]) FindByID(ctx context.Context, id uuid.UUID) (T, error) {
	var zero T

	space, err := tenant.Require(ctx)
	if err != nil {
		return zero, err
	}

	record, err := r.base.FindByID(ctx, id)
	if err != nil {
		return zero, err
	}

	if record.RecordTenantID() != space.TenantID {
		return zero, ErrRecordNotFound
	}

	return record, nil
}

// Create stamps the active tenant into the payload before delegating.
func (r *TenantRepository[T]) Create(ctx context.Context, data T) (T, error) {
	var zero T

	space, err := tenant.Require(ctx)
	if err != nil {
		return zero, err
	}

	return r.base.Create(ctx, data.WithTenant(space.TenantID))
}

// Update verifies ownership via FindByID before mutating. The ownership
// failure is indistinguishable from "not found".
func (r *TenantRepository[T]) Update(ctx context.Context, id uuid.UUID, data T) (T, error) {
	var zero T

	space, err := tenant.Require(ctx)
	if err != nil {
		return zero, err
	}

	if _, err := r.FindByID(ctx, id); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return zero, ErrRecordNotFound
		}
		return zero, fmt.Errorf("verify ownership before update: %w", err)
	}

	return r.base.Update(ctx, id, data.WithTenant(space.TenantID))
}

// Delete verifies ownership via FindByID before deleting.
func (r *TenantRepository[T]) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := r.FindByID(ctx, id); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return ErrRecordNotFound
		}
		return fmt.Errorf("verify ownership before delete: %w", err)
	}

	return r.base.Delete(ctx, id)
}

// Exists reuses the FindByID ownership check.
func (r *TenantRepository[T]) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	if _, err := r.FindByID(ctx, id); err != nil {
		if errors.Is(err, ErrRecordNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Search merges the tenant id into the search filters and delegates.
func (r *TenantRepository[T]) Search(ctx context.Context, query string, opts SearchOptions) ([]T, error) {
	space, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}

	opts.Filters = opts.Filters.With(FilterTenantID, space.TenantID)
	return r.base.Search(ctx, query, opts)
}

// Count merges the tenant id into the filters and delegates.
func (r *TenantRepository[T]) Count(ctx context.Context, filters Filters) (int64, error) {
	space, err := tenant.Require(ctx)
	if err != nil {
		return 0, err
	}
	return r.base.Count(ctx, filters.With(FilterTenantID, space.TenantID))
}
