package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/trimly-app/trimly-saas/platform/go/plan"
)

// inMemoryRepo is a minimal in-memory impl of Repository for tests.
type inMemoryRepo struct {
	mu   sync.Mutex
	data map[uuid.UUID]Tenant
}

func newInMemoryRepo() *inMemoryRepo {
	return &inMemoryRepo{data: make(map[uuid.UUID]Tenant)}
}

func (r *inMemoryRepo) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	return ListResult{}, errors.New("not implemented")
}

func (r *inMemoryRepo) Create(ctx context.Context, t Tenant) (Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.data {
		if existing.Slug == t.Slug {
			return Tenant{}, ErrConflictSlug
		}
	}
	r.data[t.ID] = t
	return t, nil
}

func (r *inMemoryRepo) Get(ctx context.Context, id uuid.UUID) (Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.data[id]
	if !ok {
		return Tenant{}, ErrNotFound
	}
	return t, nil
}

func (r *inMemoryRepo) Update(ctx context.Context, t Tenant) (Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.data[t.ID]; !ok {
		return Tenant{}, ErrNotFound
	}
	r.data[t.ID] = t
	return t, nil
}

func (r *inMemoryRepo) FindBySlug(ctx context.Context, slug string) (Tenant, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, t := range r.data {
		if t.Slug == slug {
			return t, nil
		}
	}
	return Tenant{}, ErrNotFound
}

func TestCreateDerivesFields(t *testing.T) {
	svc := New(newInMemoryRepo())

	created, err := svc.Create(context.Background(), CreateInput{Slug: "  Shop-A "})
	require.NoError(t, err)
	require.Equal(t, "shop-a", created.Slug)
	require.Equal(t, plan.PlanFree, created.PlanType)
	require.Equal(t, StatusActive, created.Status)
	require.Len(t, created.ShortTenantID, 8)
	require.NotEqual(t, uuid.Nil, created.ID)
}

func TestCreateRejectsInvalidSlug(t *testing.T) {
	svc := New(newInMemoryRepo())

	_, err := svc.Create(context.Background(), CreateInput{Slug: "shop_a"})
	require.ErrorIs(t, err, ErrInvalidSlug)
}

func TestCreateRejectsDuplicateSlug(t *testing.T) {
	svc := New(newInMemoryRepo())

	_, err := svc.Create(context.Background(), CreateInput{Slug: "shop-a"})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), CreateInput{Slug: "shop-a"})
	require.ErrorIs(t, err, ErrConflictSlug)
}

func TestUpdateChangesPlan(t *testing.T) {
	svc := New(newInMemoryRepo())

	created, err := svc.Create(context.Background(), CreateInput{Slug: "shop-a"})
	require.NoError(t, err)

	pro := plan.PlanPro
	updated, err := svc.Update(context.Background(), created.ID, UpdateInput{PlanType: &pro})
	require.NoError(t, err)
	require.Equal(t, plan.PlanPro, updated.PlanType)
	require.True(t, updated.UpdatedAt.After(created.UpdatedAt) || updated.UpdatedAt.Equal(created.UpdatedAt))
}

func TestResolveSpace(t *testing.T) {
	svc := New(newInMemoryRepo())

	created, err := svc.Create(context.Background(), CreateInput{Slug: "shop-a"})
	require.NoError(t, err)

	space, err := svc.ResolveSpace(context.Background(), created.ID)
	require.NoError(t, err)
	require.Equal(t, created.ID, space.TenantID)
	require.Equal(t, "shop-a", space.Slug)
	require.Equal(t, created.ShortTenantID, space.ShortTenantID)
}

func TestResolveSpaceDisabledTenant(t *testing.T) {
	svc := New(newInMemoryRepo())

	created, err := svc.Create(context.Background(), CreateInput{Slug: "shop-a"})
	require.NoError(t, err)

	disabled := StatusDisabled
	_, err = svc.Update(context.Background(), created.ID, UpdateInput{Status: &disabled})
	require.NoError(t, err)

	_, err = svc.ResolveSpace(context.Background(), created.ID)
	require.ErrorIs(t, err, ErrDisabled)
}

func TestPlanLookupBySlug(t *testing.T) {
	svc := New(newInMemoryRepo())

	_, err := svc.Create(context.Background(), CreateInput{Slug: "shop-b", PlanType: plan.PlanPro})
	require.NoError(t, err)

	info, err := svc.Plan(context.Background(), "shop-b")
	require.NoError(t, err)
	require.Equal(t, plan.PlanPro, info.PlanType)

	_, err = svc.Plan(context.Background(), "unknown-shop")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestNormalizeSlug(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		input       string
		expectSlug  string
		expectError bool
	}{
		{name: "already normalized", input: "shop-a", expectSlug: "shop-a"},
		{name: "trims whitespace and lowercases", input: "  Fade-Factory ", expectSlug: "fade-factory"},
		{name: "empty string", input: "   ", expectError: true},
		{name: "invalid characters", input: "shop_a", expectError: true},
		{name: "leading hyphen", input: "-bad-slug", expectError: true},
		{name: "trailing hyphen", input: "bad-slug-", expectError: true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			slug, err := NormalizeSlug(tt.input)
			if tt.expectError {
				require.ErrorIs(t, err, ErrInvalidSlug)
				return
			}

			require.NoError(t, err)
			require.Equal(t, tt.expectSlug, slug)
		})
	}
}
