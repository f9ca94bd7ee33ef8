package service

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/trimly-app/trimly-saas/platform/go/persistence"
	"github.com/trimly-app/trimly-saas/platform/go/plan"
	"github.com/trimly-app/trimly-saas/platform/go/tenant"
)

// stubProvider drives the quota guard without a billing backend.
type stubProvider struct {
	allowed  bool
	checkErr error
	usage    plan.PlanUsage
	usageErr error
}

func (p *stubProvider) CheckFeature(context.Context, plan.Feature) (bool, error) {
	return p.allowed, p.checkErr
}

func (p *stubProvider) FetchUsage(context.Context) (plan.PlanUsage, error) {
	return p.usage, p.usageErr
}

func ctxFor(tenantID uuid.UUID) context.Context {
	return tenant.WithSpace(context.Background(), tenant.Space{TenantID: tenantID, Slug: "shop-a"})
}

func newService(provider *stubProvider) *Service {
	return New(Config{
		Repo:  persistence.NewMemoryRepository[Barber](func(b Barber) string { return b.Name + " " + b.Email }),
		Guard: plan.NewGuard(provider, nil, nil),
	})
}

func TestCreateWithinLimit(t *testing.T) {
	svc := newService(&stubProvider{allowed: true})
	ctx := ctxFor(uuid.New())

	created, err := svc.Create(ctx, CreateInput{Name: "  Marco "})
	require.NoError(t, err)
	require.Equal(t, "Marco", created.Name)
	require.True(t, created.Active)
	require.NotEqual(t, uuid.Nil, created.ID)

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)
}

func TestCreateDeniedAtLimit(t *testing.T) {
	// Free plan with its single barber slot already taken.
	usage := plan.BuildPlanUsage(plan.PlanFree, 1, 5)
	provider := &stubProvider{allowed: usage.Stat(plan.FeatureBarbers).CanProceed(), usage: usage}
	svc := newService(provider)
	ctx := ctxFor(uuid.New())

	_, err := svc.Create(ctx, CreateInput{Name: "Marco"})

	var limitErr *plan.LimitError
	require.ErrorAs(t, err, &limitErr)
	require.Equal(t, plan.CodeBarberLimitExceeded, limitErr.Code)
	require.Equal(t, int64(1), limitErr.Detail.Current)
	require.Equal(t, int64(1), limitErr.Detail.Limit)
	require.True(t, limitErr.Detail.UpgradeRequired)

	// Nothing was persisted.
	count, err := svc.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, count)
}

func TestCreateFailsOpenOnQuotaOutage(t *testing.T) {
	svc := newService(&stubProvider{checkErr: errors.New("billing backend down")})
	ctx := ctxFor(uuid.New())

	created, err := svc.Create(ctx, CreateInput{Name: "Marco"})
	require.NoError(t, err)
	require.Equal(t, "Marco", created.Name)
}

func TestCreateRejectsEmptyName(t *testing.T) {
	svc := newService(&stubProvider{allowed: true})

	_, err := svc.Create(ctxFor(uuid.New()), CreateInput{Name: "   "})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestCreateRequiresTenant(t *testing.T) {
	svc := newService(&stubProvider{allowed: true})

	_, err := svc.Create(context.Background(), CreateInput{Name: "Marco"})
	require.ErrorIs(t, err, tenant.ErrTenantRequired)
}

func TestListIsTenantScoped(t *testing.T) {
	repo := persistence.NewMemoryRepository[Barber](nil)
	svc := New(Config{Repo: repo, Guard: plan.NewGuard(&stubProvider{allowed: true}, nil, nil)})

	tenantA := uuid.New()
	tenantB := uuid.New()

	_, err := svc.Create(ctxFor(tenantA), CreateInput{Name: "Marco"})
	require.NoError(t, err)
	_, err = svc.Create(ctxFor(tenantB), CreateInput{Name: "Nina"})
	require.NoError(t, err)

	listA, err := svc.List(ctxFor(tenantA))
	require.NoError(t, err)
	require.Len(t, listA, 1)
	require.Equal(t, "Marco", listA[0].Name)

	listB, err := svc.List(ctxFor(tenantB))
	require.NoError(t, err)
	require.Len(t, listB, 1)
	require.Equal(t, "Nina", listB[0].Name)
}

func TestGetForeignTenantRecordIsNotFound(t *testing.T) {
	svc := newService(&stubProvider{allowed: true})

	created, err := svc.Create(ctxFor(uuid.New()), CreateInput{Name: "Marco"})
	require.NoError(t, err)

	_, err = svc.Get(ctxFor(uuid.New()), created.ID)
	require.ErrorIs(t, err, persistence.ErrRecordNotFound)
}

func TestUpdateFields(t *testing.T) {
	svc := newService(&stubProvider{allowed: true})
	ctx := ctxFor(uuid.New())

	created, err := svc.Create(ctx, CreateInput{Name: "Marco"})
	require.NoError(t, err)

	inactive := false
	name := "Marco V"
	updated, err := svc.Update(ctx, created.ID, UpdateInput{Name: &name, Active: &inactive})
	require.NoError(t, err)
	require.Equal(t, "Marco V", updated.Name)
	require.False(t, updated.Active)
	require.Equal(t, created.ID, updated.ID)
}

func TestDeleteFreesQuotaUnit(t *testing.T) {
	svc := newService(&stubProvider{allowed: true})
	ctx := ctxFor(uuid.New())

	created, err := svc.Create(ctx, CreateInput{Name: "Marco"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, created.ID))

	count, err := svc.Count(ctx)
	require.NoError(t, err)
	require.Zero(t, count)

	_, err = svc.Get(ctx, created.ID)
	require.ErrorIs(t, err, persistence.ErrRecordNotFound)
}
