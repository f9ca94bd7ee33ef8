package plan

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/trimly-app/trimly-saas/platform/go/cache"
	"github.com/trimly-app/trimly-saas/platform/go/tenant"
)

// usageCacheKey is the logical key for the usage snapshot inside a tenant's
// cache namespace.
const usageCacheKey = "plan:usage"

// usageCacheTTL keeps quota reads cheap without letting denials linger long
// after an upgrade.
const usageCacheTTL = 2 * time.Minute

// Fallback placeholder counts, used when the authoritative usage endpoint is
// unavailable and only the plan type could be resolved. They are
// representative values, not real tenant data; see Counters for the
// counts-backed alternative.
const (
	fallbackBarbers      = 1
	fallbackAppointments = 18
)

// Counters supplies real per-tenant counts for the fallback path. When
// configured, the fallback reports actual consumption instead of the
// placeholder values. Both modes exist because the placeholders can under- or
// over-report during billing backend rollout gaps.
type Counters interface {
	Barbers(ctx context.Context) (int64, error)
	AppointmentsThisMonth(ctx context.Context) (int64, error)
}

// UsageServiceConfig wires a UsageService.
type UsageServiceConfig struct {
	Source UsageSource
	// Cache is the shared TTL cache; usage snapshots are stored under the
	// active tenant's namespace. May be nil to disable caching.
	Cache  *cache.Cache
	Logger *zap.Logger
	// Counters enables counts-backed fallback synthesis. May be nil.
	Counters Counters
}

// UsageService implements the plan usage query: authoritative endpoint first,
// graceful degradation after. GetUsageStats never fails; quota checks sit in
// front of core user actions and the UI must always receive a well-formed
// snapshot.
type UsageService struct {
	source   UsageSource
	cache    *cache.Cache
	logger   *zap.Logger
	counters Counters
}

// NewUsageService constructs a UsageService.
func NewUsageService(cfg UsageServiceConfig) *UsageService {
	if cfg.Source == nil {
		panic("usage source is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &UsageService{
		source:   cfg.Source,
		cache:    cfg.Cache,
		logger:   logger,
		counters: cfg.Counters,
	}
}

// SetCounters installs the counts-backed fallback. The domain services that
// implement Counters are themselves constructed around the quota guard, so
// wiring installs them after construction, before serving traffic.
func (s *UsageService) SetCounters(counters Counters) {
	s.counters = counters
}

// FetchUsage returns the authoritative usage snapshot for the active tenant,
// serving from the tenant cache within the TTL. Unlike GetUsageStats it is
// fallible: the quota guard relies on that to apply its own fail-open policy.
func (s *UsageService) FetchUsage(ctx context.Context) (PlanUsage, error) {
	space, err := tenant.Require(ctx)
	if err != nil {
		return PlanUsage{}, err
	}

	fetch := func(ctx context.Context) (PlanUsage, error) {
		return s.source.Usage(ctx, space.Slug)
	}

	if s.cache == nil {
		return fetch(ctx)
	}

	return cache.FetchWith(ctx, cache.ForTenant(s.cache, space.TenantID), usageCacheKey, fetch, cache.FetchOptions{TTL: usageCacheTTL})
}

// InvalidateUsage drops the cached snapshot for the active tenant, forcing
// the next check to hit the backend. Called after quota-consuming mutations.
func (s *UsageService) InvalidateUsage(ctx context.Context) {
	if s.cache == nil {
		return
	}
	tc, err := cache.ForContext(ctx, s.cache)
	if err != nil {
		return
	}
	if err := tc.Delete(ctx, usageCacheKey); err != nil {
		s.logger.Warn("invalidate usage cache", zap.Error(err))
	}
}

// GetUsageStats returns a usage snapshot for the active tenant and never
// fails. Any primary failure, "not implemented" included, degrades to the
// plan lookup plus synthesized usage; if that fails too, free plan usage is
// synthesized. Fallback snapshots are not cached so recovery is immediate.
func (s *UsageService) GetUsageStats(ctx context.Context) PlanUsage {
	usage, err := s.FetchUsage(ctx)
	if err == nil {
		return usage
	}
	if errors.Is(err, tenant.ErrTenantRequired) {
		// No tenant to look up a plan for; report the most restrictive caps.
		return s.synthesize(ctx, PlanFree)
	}

	s.logger.Warn("usage endpoint unavailable, falling back to plan lookup", zap.Error(err))

	space, spaceErr := tenant.Require(ctx)
	if spaceErr != nil {
		return s.synthesize(ctx, PlanFree)
	}

	info, err := s.source.Plan(ctx, space.Slug)
	if err != nil {
		s.logger.Warn("plan lookup unavailable, synthesizing free plan usage", zap.Error(err))
		return s.synthesize(ctx, PlanFree)
	}

	return s.synthesize(ctx, info.PlanType)
}

// CheckFeature reports whether one more unit of the feature fits the plan.
// Errors bubble up so the quota guard can decide the fail-open policy.
func (s *UsageService) CheckFeature(ctx context.Context, feature Feature) (bool, error) {
	usage, err := s.FetchUsage(ctx)
	if err != nil {
		return false, err
	}
	return usage.Stat(feature).CanProceed(), nil
}

// synthesize builds the degraded snapshot: real counts when Counters is
// wired, representative placeholders otherwise.
func (s *UsageService) synthesize(ctx context.Context, planType PlanType) PlanUsage {
	barbers := int64(fallbackBarbers)
	appointments := int64(fallbackAppointments)

	if s.counters != nil {
		if n, err := s.counters.Barbers(ctx); err == nil {
			barbers = n
		} else {
			s.logger.Warn("fallback barber count", zap.Error(err))
		}
		if n, err := s.counters.AppointmentsThisMonth(ctx); err == nil {
			appointments = n
		} else {
			s.logger.Warn("fallback appointment count", zap.Error(err))
		}
	}

	return BuildPlanUsage(planType, barbers, appointments)
}
