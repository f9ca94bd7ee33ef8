package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/trimly-app/trimly-saas/platform/go/plan"
)

type stubSource struct {
	usage      plan.PlanUsage
	usageErr   error
	info       plan.PlanInfo
	planErr    error
	planCalls  int
	usageCalls int
}

func (s *stubSource) Usage(context.Context, string) (plan.PlanUsage, error) {
	s.usageCalls++
	return s.usage, s.usageErr
}

func (s *stubSource) Plan(context.Context, string) (plan.PlanInfo, error) {
	s.planCalls++
	return s.info, s.planErr
}

type stubLookup struct {
	info  plan.PlanInfo
	err   error
	calls int
}

func (s *stubLookup) Plan(context.Context, string) (plan.PlanInfo, error) {
	s.calls++
	return s.info, s.err
}

func TestRegistrySourcePrefersRegistry(t *testing.T) {
	backend := &stubSource{info: plan.PlanInfo{PlanType: plan.PlanFree}}
	registry := &stubLookup{info: plan.PlanInfo{PlanType: plan.PlanPro}}
	source := NewRegistrySource(backend, registry)

	info, err := source.Plan(context.Background(), "shop-a")
	require.NoError(t, err)
	require.Equal(t, plan.PlanPro, info.PlanType)
	require.Equal(t, 1, registry.calls)
	require.Equal(t, 0, backend.planCalls)
}

func TestRegistrySourceFallsBackToBackend(t *testing.T) {
	backend := &stubSource{info: plan.PlanInfo{PlanType: plan.PlanPro}}
	registry := &stubLookup{err: errors.New("registry down")}
	source := NewRegistrySource(backend, registry)

	info, err := source.Plan(context.Background(), "shop-a")
	require.NoError(t, err)
	require.Equal(t, plan.PlanPro, info.PlanType)
	require.Equal(t, 1, backend.planCalls)
}

func TestRegistrySourceUsageGoesToBackend(t *testing.T) {
	backend := &stubSource{usage: plan.BuildPlanUsage(plan.PlanFree, 1, 2)}
	source := NewRegistrySource(backend, &stubLookup{})

	usage, err := source.Usage(context.Background(), "shop-a")
	require.NoError(t, err)
	require.Equal(t, plan.PlanFree, usage.PlanType)
	require.Equal(t, 1, backend.usageCalls)
}

func TestRegistrySourceWithoutRegistry(t *testing.T) {
	backend := &stubSource{info: plan.PlanInfo{PlanType: plan.PlanFree}}
	source := NewRegistrySource(backend, nil)

	info, err := source.Plan(context.Background(), "shop-a")
	require.NoError(t, err)
	require.Equal(t, plan.PlanFree, info.PlanType)
}
