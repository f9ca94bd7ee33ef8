package middleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	platformauth "github.com/trimly-app/trimly-saas/platform/go/auth"
	"github.com/trimly-app/trimly-saas/platform/go/tenant"
)

// Resolver defines the minimal lookup capability required to populate a
// tenant Space. Implemented by the tenant registry service.
type Resolver interface {
	ResolveSpace(ctx context.Context, tenantID uuid.UUID) (tenant.Space, error)
}

// Config controls middleware behavior.
type Config struct {
	// Optional small in-memory TTL cache to avoid registry hits on every
	// request; zero disables caching.
	CacheTTL time.Duration
}

// WithTenantSpace resolves the tenant from the authenticated credentials and
// attaches tenant.Space to the context. Requests without a tenant claim are
// rejected: every data operation downstream requires an active tenant.
func WithTenantSpace(resolver Resolver, cfg Config) func(http.Handler) http.Handler {
	if resolver == nil {
		panic("tenant middleware: resolver is required")
	}

	var cache *spaceCache
	if cfg.CacheTTL > 0 {
		cache = newSpaceCache(cfg.CacheTTL)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			creds, ok := platformauth.UserFromContext(r.Context())
			if !ok || creds == nil || creds.TenantID == nil || *creds.TenantID == "" {
				http.Error(w, "tenant required", http.StatusUnauthorized)
				return
			}

			tid, err := uuid.Parse(*creds.TenantID)
			if err != nil {
				http.Error(w, "invalid tenant id", http.StatusUnauthorized)
				return
			}

			if cached := cache.get(tid); cached != nil {
				next.ServeHTTP(w, r.WithContext(tenant.WithSpace(r.Context(), *cached)))
				return
			}

			space, err := resolver.ResolveSpace(r.Context(), tid)
			if err != nil {
				http.Error(w, "tenant not found", http.StatusUnauthorized)
				return
			}

			cache.put(space)

			next.ServeHTTP(w, r.WithContext(tenant.WithSpace(r.Context(), space)))
		})
	}
}

// spaceCache is a tiny TTL cache of resolved tenant spaces. Entries are
// keyed by tenant id, so a cached space can never be served to a request
// authenticated for a different tenant.
type spaceCache struct {
	ttl   time.Duration
	mu    sync.RWMutex
	items map[uuid.UUID]spaceCacheItem
}

type spaceCacheItem struct {
	space     tenant.Space
	expiresAt time.Time
}

func newSpaceCache(ttl time.Duration) *spaceCache {
	return &spaceCache{ttl: ttl, items: make(map[uuid.UUID]spaceCacheItem)}
}

func (c *spaceCache) get(id uuid.UUID) *tenant.Space {
	if c == nil {
		return nil
	}

	c.mu.RLock()
	defer c.mu.RUnlock()

	item, ok := c.items[id]
	if !ok || time.Now().After(item.expiresAt) {
		return nil
	}
	return &item.space
}

func (c *spaceCache) put(space tenant.Space) {
	if c == nil {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[space.TenantID] = spaceCacheItem{space: space, expiresAt: time.Now().Add(c.ttl)}
}
