package service

import (
	"context"

	apptsvc "github.com/trimly-app/trimly-saas/domains/appointments/be/service"
	barbersvc "github.com/trimly-app/trimly-saas/domains/barbers/be/service"
	"github.com/trimly-app/trimly-saas/platform/go/plan"
)

// Counters feeds real per-tenant counts into the fallback usage synthesis.
type Counters struct {
	barbers      *barbersvc.Service
	appointments *apptsvc.Service
}

// NewCounters constructs the counters adapter.
func NewCounters(barbers *barbersvc.Service, appointments *apptsvc.Service) *Counters {
	if barbers == nil {
		panic("barbers service is required")
	}
	if appointments == nil {
		panic("appointments service is required")
	}
	return &Counters{barbers: barbers, appointments: appointments}
}

func (c *Counters) Barbers(ctx context.Context) (int64, error) {
	return c.barbers.Count(ctx)
}

func (c *Counters) AppointmentsThisMonth(ctx context.Context) (int64, error) {
	return c.appointments.CountThisMonth(ctx)
}

// PlanLookup is the slice of the tenant registry the fallback path needs.
type PlanLookup interface {
	Plan(ctx context.Context, tenantRef string) (plan.PlanInfo, error)
}

// RegistrySource layers the tenant registry in front of a billing backend:
// usage always comes from the backend, but plan lookups prefer the registry,
// which keeps answering while the backend is down.
type RegistrySource struct {
	primary  plan.UsageSource
	registry PlanLookup
}

// NewRegistrySource constructs a RegistrySource. registry may be nil, in
// which case plan lookups go straight to the backend.
func NewRegistrySource(primary plan.UsageSource, registry PlanLookup) *RegistrySource {
	if primary == nil {
		panic("primary usage source is required")
	}
	return &RegistrySource{primary: primary, registry: registry}
}

func (s *RegistrySource) Usage(ctx context.Context, tenantRef string) (plan.PlanUsage, error) {
	return s.primary.Usage(ctx, tenantRef)
}

func (s *RegistrySource) Plan(ctx context.Context, tenantRef string) (plan.PlanInfo, error) {
	if s.registry != nil {
		if info, err := s.registry.Plan(ctx, tenantRef); err == nil {
			return info, nil
		}
	}
	return s.primary.Plan(ctx, tenantRef)
}

// Ensure interface compliance.
var (
	_ plan.Counters    = (*Counters)(nil)
	_ plan.UsageSource = (*RegistrySource)(nil)
)
