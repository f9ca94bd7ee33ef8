package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/trimly-app/trimly-saas/platform/go/persistence"
	"github.com/trimly-app/trimly-saas/platform/go/plan"
	"github.com/trimly-app/trimly-saas/platform/go/tenant"
)

type stubProvider struct {
	allowed  bool
	checkErr error
	usage    plan.PlanUsage
}

func (p *stubProvider) CheckFeature(context.Context, plan.Feature) (bool, error) {
	return p.allowed, p.checkErr
}

func (p *stubProvider) FetchUsage(context.Context) (plan.PlanUsage, error) {
	return p.usage, nil
}

func ctxFor(tenantID uuid.UUID) context.Context {
	return tenant.WithSpace(context.Background(), tenant.Space{TenantID: tenantID, Slug: "shop-a"})
}

func newService(provider *stubProvider, now func() time.Time) *Service {
	return New(Config{
		Repo:  persistence.NewMemoryRepository[Appointment](nil),
		Guard: plan.NewGuard(provider, nil, nil),
		Now:   now,
	})
}

func validBooking(startsAt time.Time) BookInput {
	return BookInput{
		BarberID:     uuid.New(),
		ServiceID:    uuid.New(),
		CustomerName: "Ana",
		StartsAt:     startsAt,
		EndsAt:       startsAt.Add(30 * time.Minute),
	}
}

func TestBookWithinLimit(t *testing.T) {
	svc := newService(&stubProvider{allowed: true}, nil)
	ctx := ctxFor(uuid.New())

	appt, err := svc.Book(ctx, validBooking(time.Now().Add(24*time.Hour)))
	require.NoError(t, err)
	require.Equal(t, StatusScheduled, appt.Status)
	require.Equal(t, "Ana", appt.CustomerName)
}

func TestBookDeniedAtMonthlyLimit(t *testing.T) {
	// Free plan with all 20 monthly slots consumed.
	usage := plan.BuildPlanUsage(plan.PlanFree, 0, 20)
	provider := &stubProvider{allowed: usage.Stat(plan.FeatureAppointments).CanProceed(), usage: usage}
	svc := newService(provider, nil)
	ctx := ctxFor(uuid.New())

	_, err := svc.Book(ctx, validBooking(time.Now().Add(24*time.Hour)))

	var limitErr *plan.LimitError
	require.ErrorAs(t, err, &limitErr)
	require.Equal(t, plan.CodeAppointmentLimitExceeded, limitErr.Code)
	require.Equal(t, int64(20), limitErr.Detail.Current)
	require.Equal(t, int64(20), limitErr.Detail.Limit)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	require.Empty(t, list)
}

func TestBookFailsOpenOnQuotaOutage(t *testing.T) {
	svc := newService(&stubProvider{checkErr: context.DeadlineExceeded}, nil)

	appt, err := svc.Book(ctxFor(uuid.New()), validBooking(time.Now().Add(time.Hour)))
	require.NoError(t, err)
	require.Equal(t, StatusScheduled, appt.Status)
}

func TestBookValidation(t *testing.T) {
	svc := newService(&stubProvider{allowed: true}, nil)
	ctx := ctxFor(uuid.New())
	start := time.Now().Add(time.Hour)

	input := validBooking(start)
	input.BarberID = uuid.Nil
	_, err := svc.Book(ctx, input)
	require.ErrorIs(t, err, ErrInvalidInput)

	input = validBooking(start)
	input.CustomerName = "  "
	_, err = svc.Book(ctx, input)
	require.ErrorIs(t, err, ErrInvalidInput)

	input = validBooking(start)
	input.EndsAt = start.Add(-time.Minute)
	_, err = svc.Book(ctx, input)
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestStatusTransitions(t *testing.T) {
	svc := newService(&stubProvider{allowed: true}, nil)
	ctx := ctxFor(uuid.New())

	appt, err := svc.Book(ctx, validBooking(time.Now().Add(time.Hour)))
	require.NoError(t, err)

	completed, err := svc.Complete(ctx, appt.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, completed.Status)

	// Completed is terminal.
	_, err = svc.Cancel(ctx, appt.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
	_, err = svc.Complete(ctx, appt.ID)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestRescheduleOnlyScheduled(t *testing.T) {
	svc := newService(&stubProvider{allowed: true}, nil)
	ctx := ctxFor(uuid.New())
	start := time.Now().Add(time.Hour)

	appt, err := svc.Book(ctx, validBooking(start))
	require.NoError(t, err)

	newStart := start.Add(2 * time.Hour)
	moved, err := svc.Reschedule(ctx, appt.ID, newStart, newStart.Add(30*time.Minute))
	require.NoError(t, err)
	require.Equal(t, newStart.UTC(), moved.StartsAt)

	_, err = svc.Cancel(ctx, appt.ID)
	require.NoError(t, err)

	_, err = svc.Reschedule(ctx, appt.ID, newStart, newStart.Add(time.Hour))
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCountThisMonthSkipsCancelledAndOtherMonths(t *testing.T) {
	now := time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC)
	svc := newService(&stubProvider{allowed: true}, func() time.Time { return now })
	ctx := ctxFor(uuid.New())

	inMonth, err := svc.Book(ctx, validBooking(time.Date(2026, time.March, 15, 10, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	_, err = svc.Book(ctx, validBooking(time.Date(2026, time.April, 2, 10, 0, 0, 0, time.UTC)))
	require.NoError(t, err)

	cancelled, err := svc.Book(ctx, validBooking(time.Date(2026, time.March, 20, 10, 0, 0, 0, time.UTC)))
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, cancelled.ID)
	require.NoError(t, err)

	count, err := svc.CountThisMonth(ctx)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	_ = inMonth
}

func TestTenantIsolation(t *testing.T) {
	repo := persistence.NewMemoryRepository[Appointment](nil)
	svc := New(Config{Repo: repo, Guard: plan.NewGuard(&stubProvider{allowed: true}, nil, nil)})

	tenantA := uuid.New()
	tenantB := uuid.New()

	appt, err := svc.Book(ctxFor(tenantA), validBooking(time.Now().Add(time.Hour)))
	require.NoError(t, err)

	_, err = svc.Get(ctxFor(tenantB), appt.ID)
	require.ErrorIs(t, err, persistence.ErrRecordNotFound)

	_, err = svc.Cancel(ctxFor(tenantB), appt.ID)
	require.ErrorIs(t, err, persistence.ErrRecordNotFound)

	require.ErrorIs(t, svc.Delete(ctxFor(tenantB), appt.ID), persistence.ErrRecordNotFound)
}

func TestBookRequiresTenant(t *testing.T) {
	svc := newService(&stubProvider{allowed: true}, nil)

	_, err := svc.Book(context.Background(), validBooking(time.Now().Add(time.Hour)))
	require.ErrorIs(t, err, tenant.ErrTenantRequired)
}
