package cache

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/trimly-app/trimly-saas/platform/go/tenant"
)

func TestNamespaceFor(t *testing.T) {
	id := uuid.MustParse("6b4a32a0-7b7e-4f3c-9be1-1f6f9a6e2c11")
	require.Equal(t, "tenant:6b4a32a0-7b7e-4f3c-9be1-1f6f9a6e2c11:", NamespaceFor(id))
}

func TestTenantKeyPrefixing(t *testing.T) {
	c, _ := newTestCache(t, Options{})
	id := uuid.New()
	tc := ForTenant(c, id)

	require.Equal(t, "tenant:"+id.String()+":barbers:all", tc.Key("barbers:all"))
}

func TestCrossTenantIsolation(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, Options{})

	cacheA := ForTenant(c, uuid.New())
	cacheB := ForTenant(c, uuid.New())

	require.NoError(t, cacheA.SetJSON(ctx, "barbers:all", []string{"alex"}, time.Minute))

	// Identical logical key under another tenant must miss.
	_, ok, err := GetAs[[]string](ctx, cacheB, "barbers:all")
	require.NoError(t, err)
	require.False(t, ok)

	value, ok, err := GetAs[[]string](ctx, cacheA, "barbers:all")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []string{"alex"}, value)
}

func TestTenantClearOnlyOwnNamespace(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, Options{})

	cacheA := ForTenant(c, uuid.New())
	cacheB := ForTenant(c, uuid.New())

	require.NoError(t, cacheA.SetJSON(ctx, "barbers:all", "a", time.Minute))
	require.NoError(t, cacheB.SetJSON(ctx, "barbers:all", "b", time.Minute))
	require.NoError(t, c.SetJSON(ctx, "global:config", "shared", time.Minute))

	require.NoError(t, cacheA.Clear(ctx))

	ok, err := cacheA.Has(ctx, "barbers:all")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = cacheB.Has(ctx, "barbers:all")
	require.NoError(t, err)
	require.True(t, ok)

	ok, err = c.Has(ctx, "global:config")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestDeleteLogicalPrefix(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, Options{})
	tc := ForTenant(c, uuid.New())

	require.NoError(t, tc.SetJSON(ctx, "appointments:2026-08", 1, time.Minute))
	require.NoError(t, tc.SetJSON(ctx, "appointments:2026-09", 2, time.Minute))
	require.NoError(t, tc.SetJSON(ctx, "barbers:all", 3, time.Minute))

	require.NoError(t, tc.DeleteLogicalPrefix(ctx, "appointments:"))

	ok, err := tc.Has(ctx, "appointments:2026-08")
	require.NoError(t, err)
	require.False(t, ok)

	ok, err = tc.Has(ctx, "barbers:all")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestForContextRequiresTenant(t *testing.T) {
	c, _ := newTestCache(t, Options{})

	_, err := ForContext(context.Background(), c)
	require.ErrorIs(t, err, tenant.ErrTenantRequired)

	space := tenant.Space{TenantID: uuid.New(), Slug: "shop-a"}
	tc, err := ForContext(tenant.WithSpace(context.Background(), space), c)
	require.NoError(t, err)
	require.Equal(t, NamespaceFor(space.TenantID)+"x", tc.Key("x"))
}

func TestFetchWithOnTenantCache(t *testing.T) {
	ctx := context.Background()
	c, _ := newTestCache(t, Options{})

	cacheA := ForTenant(c, uuid.New())
	cacheB := ForTenant(c, uuid.New())

	calls := 0
	fetch := func(context.Context) (string, error) {
		calls++
		return "fetched", nil
	}

	_, err := FetchWith(ctx, cacheA, "key", fetch, FetchOptions{})
	require.NoError(t, err)

	// Tenant B's fetch-through is a miss even though A populated the same
	// logical key.
	_, err = FetchWith(ctx, cacheB, "key", fetch, FetchOptions{})
	require.NoError(t, err)
	require.Equal(t, 2, calls)
}
