package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/trimly-app/trimly-saas/platform/go/cache"
	"github.com/trimly-app/trimly-saas/platform/go/persistence"
	"github.com/trimly-app/trimly-saas/platform/go/tenant"
)

func ctxFor(tenantID uuid.UUID) context.Context {
	return tenant.WithSpace(context.Background(), tenant.Space{TenantID: tenantID, Slug: "shop-a"})
}

func newService() *Service {
	return New(Config{
		Repo: persistence.NewMemoryRepository[Offering](func(o Offering) string {
			text := o.Name
			if o.Description != nil {
				text += " " + *o.Description
			}
			return text
		}),
	})
}

func TestCreateValidation(t *testing.T) {
	svc := newService()
	ctx := ctxFor(uuid.New())

	_, err := svc.Create(ctx, CreateInput{Name: " ", DurationMinutes: 30})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, CreateInput{Name: "Fade", DurationMinutes: 0})
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.Create(ctx, CreateInput{Name: "Fade", DurationMinutes: 30, PriceCents: -1})
	require.ErrorIs(t, err, ErrInvalidInput)

	created, err := svc.Create(ctx, CreateInput{Name: " Fade ", DurationMinutes: 30, PriceCents: 2500})
	require.NoError(t, err)
	require.Equal(t, "Fade", created.Name)
	require.True(t, created.Active)
}

func TestListIsTenantScoped(t *testing.T) {
	svc := newService()
	tenantA := uuid.New()
	tenantB := uuid.New()

	_, err := svc.Create(ctxFor(tenantA), CreateInput{Name: "Fade", DurationMinutes: 30})
	require.NoError(t, err)
	_, err = svc.Create(ctxFor(tenantB), CreateInput{Name: "Shave", DurationMinutes: 20})
	require.NoError(t, err)

	listA, err := svc.List(ctxFor(tenantA))
	require.NoError(t, err)
	require.Len(t, listA, 1)
	require.Equal(t, "Fade", listA[0].Name)
}

func TestListRequiresTenant(t *testing.T) {
	svc := newService()

	_, err := svc.List(context.Background())
	require.ErrorIs(t, err, tenant.ErrTenantRequired)
}

func TestSearchMatchesNameAndDescription(t *testing.T) {
	svc := newService()
	ctx := ctxFor(uuid.New())

	desc := "hot towel treatment"
	_, err := svc.Create(ctx, CreateInput{Name: "Shave", Description: &desc, DurationMinutes: 20})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateInput{Name: "Fade", DurationMinutes: 30})
	require.NoError(t, err)

	found, err := svc.Search(ctx, "towel", 10)
	require.NoError(t, err)
	require.Len(t, found, 1)
	require.Equal(t, "Shave", found[0].Name)
}

func TestUpdateForeignTenantIsNotFound(t *testing.T) {
	svc := newService()

	created, err := svc.Create(ctxFor(uuid.New()), CreateInput{Name: "Fade", DurationMinutes: 30})
	require.NoError(t, err)

	name := "Taper"
	_, err = svc.Update(ctxFor(uuid.New()), created.ID, UpdateInput{Name: &name})
	require.ErrorIs(t, err, persistence.ErrRecordNotFound)
}

func TestMutationsInvalidateListCache(t *testing.T) {
	c := cache.New(cache.NewMemoryStore(), cache.Options{})
	svc := New(Config{Repo: persistence.NewMemoryRepository[Offering](nil), Cache: c})
	ctx := ctxFor(uuid.New())

	_, err := svc.Create(ctx, CreateInput{Name: "Fade", DurationMinutes: 30})
	require.NoError(t, err)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	// Second create invalidates the cached snapshot.
	_, err = svc.Create(ctx, CreateInput{Name: "Shave", DurationMinutes: 20})
	require.NoError(t, err)

	list, err = svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
}
