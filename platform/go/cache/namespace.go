package cache

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/trimly-app/trimly-saas/platform/go/tenant"
)

// tenantKeyPrefix partitions the shared store between tenants. Every key a
// TenantCache touches is under "tenant:<tenantID>:"; prefix construction is
// the single point of cross-tenant leakage risk, so it lives here and nowhere
// else.
const tenantKeyPrefix = "tenant:"

// NamespaceFor returns the key prefix owned by the given tenant.
func NamespaceFor(tenantID uuid.UUID) string {
	return tenantKeyPrefix + tenantID.String() + ":"
}

// TenantCache is a tenant-scoped view over the shared Cache. Isolation is
// achieved purely through key prefixing, not separate storage instances.
type TenantCache struct {
	cache  *Cache
	prefix string
}

// ForTenant returns the tenant-scoped view for an explicit tenant id.
func ForTenant(c *Cache, tenantID uuid.UUID) *TenantCache {
	return &TenantCache{cache: c, prefix: NamespaceFor(tenantID)}
}

// ForContext resolves the active tenant from ctx and returns its scoped view.
// Fails with tenant.ErrTenantRequired when no tenant is active.
func ForContext(ctx context.Context, c *Cache) (*TenantCache, error) {
	space, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	return ForTenant(c, space.TenantID), nil
}

// Key returns the namespaced form of a logical key.
func (tc *TenantCache) Key(logical string) string {
	return tc.prefix + logical
}

func (tc *TenantCache) SetJSON(ctx context.Context, key string, value any, ttl time.Duration) error {
	return tc.cache.SetJSON(ctx, tc.Key(key), value, ttl)
}

func (tc *TenantCache) GetJSON(ctx context.Context, key string) (json.RawMessage, bool, error) {
	return tc.cache.GetJSON(ctx, tc.Key(key))
}

func (tc *TenantCache) Has(ctx context.Context, key string) (bool, error) {
	return tc.cache.Has(ctx, tc.Key(key))
}

func (tc *TenantCache) Delete(ctx context.Context, key string) error {
	return tc.cache.Delete(ctx, tc.Key(key))
}

// Clear removes only this tenant's namespace, never the whole store.
func (tc *TenantCache) Clear(ctx context.Context) error {
	return tc.cache.DeletePrefix(ctx, tc.prefix)
}

// DeleteLogicalPrefix removes this tenant's keys under a logical prefix,
// e.g. "appointments:" after a successful mutation.
func (tc *TenantCache) DeleteLogicalPrefix(ctx context.Context, logicalPrefix string) error {
	return tc.cache.DeletePrefix(ctx, tc.prefix+logicalPrefix)
}
