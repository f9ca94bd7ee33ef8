package plan

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
)

// stubProvider scripts the guard's view of the usage service.
type stubProvider struct {
	allowed  bool
	checkErr error
	usage    PlanUsage
	usageErr error
}

func (p *stubProvider) CheckFeature(context.Context, Feature) (bool, error) {
	return p.allowed, p.checkErr
}

func (p *stubProvider) FetchUsage(context.Context) (PlanUsage, error) {
	return p.usage, p.usageErr
}

func TestCheckAndExecuteAllowed(t *testing.T) {
	guard := NewGuard(&stubProvider{allowed: true}, nil, nil)

	calls := 0
	ok, err := guard.CheckAndExecute(context.Background(), FeatureBarbers, func(context.Context) error {
		calls++
		return nil
	}, nil)

	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, calls)
	require.Nil(t, guard.LastError())
}

func TestCheckAndExecuteDeniedAtCap(t *testing.T) {
	// Free plan with 1/1 barbers used.
	usage := BuildPlanUsage(PlanFree, 1, 0)
	guard := NewGuard(&stubProvider{allowed: false, usage: usage}, nil, nil)

	var notified *LimitError
	calls := 0
	ok, err := guard.CheckAndExecute(context.Background(), FeatureBarbers, func(context.Context) error {
		calls++
		return nil
	}, func(e *LimitError) { notified = e })

	require.NoError(t, err)
	require.False(t, ok)
	require.Zero(t, calls, "action must never run on a confirmed denial")

	require.NotNil(t, notified)
	require.Equal(t, CodeBarberLimitExceeded, notified.Code)
	require.Equal(t, int64(1), notified.Detail.Current)
	require.Equal(t, int64(1), notified.Detail.Limit)
	require.Equal(t, PlanFree, notified.Detail.PlanType)
	require.True(t, notified.Detail.UpgradeRequired)
	require.Equal(t, notified, guard.LastError())
}

func TestCheckAndExecuteFailsOpenOnInfrastructureError(t *testing.T) {
	guard := NewGuard(&stubProvider{checkErr: errors.New("quota service down")}, nil, nil)

	calls := 0
	ok, err := guard.CheckAndExecute(context.Background(), FeatureBarbers, func(context.Context) error {
		calls++
		return nil
	}, nil)

	// The guard never blocks a user action due to its own infrastructure
	// failure: the action runs and the call reports success.
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, calls)
	require.Nil(t, guard.LastError())
}

func TestDeniedWithUsageDetailUnavailable(t *testing.T) {
	provider := &stubProvider{allowed: false, usageErr: errors.New("stats down")}
	guard := NewGuard(provider, nil, nil)

	ok, err := guard.CheckAndExecute(context.Background(), FeatureAppointments, func(context.Context) error {
		return nil
	}, nil)

	require.NoError(t, err)
	require.False(t, ok)

	// Synthesized generic denial: zeroed counts, upgrade flagged.
	limitErr := guard.LastError()
	require.NotNil(t, limitErr)
	require.Equal(t, CodeAppointmentLimitExceeded, limitErr.Code)
	require.Zero(t, limitErr.Detail.Current)
	require.Zero(t, limitErr.Detail.Limit)
	require.True(t, limitErr.Detail.UpgradeRequired)
}

func TestActionLimitErrorCapturedNotPropagated(t *testing.T) {
	// Pre-check passes optimistically; the backend is the final authority
	// and rejects the mutation with a limit error.
	guard := NewGuard(&stubProvider{allowed: true}, nil, nil)

	backendErr := &LimitError{
		Code:    CodeBarberLimitExceeded,
		Message: "barber limit reached",
		Detail:  LimitDetail{Current: 1, Limit: 1, PlanType: PlanFree, UpgradeRequired: true},
	}

	var notified *LimitError
	ok, err := guard.CheckAndExecute(context.Background(), FeatureBarbers, func(context.Context) error {
		return backendErr
	}, func(e *LimitError) { notified = e })

	require.NoError(t, err)
	require.False(t, ok)
	require.Equal(t, backendErr, notified)
	require.Equal(t, backendErr, guard.LastError())
}

func TestActionOtherErrorsPropagate(t *testing.T) {
	guard := NewGuard(&stubProvider{allowed: true}, nil, nil)

	actionErr := errors.New("constraint violation")
	ok, err := guard.CheckAndExecute(context.Background(), FeatureBarbers, func(context.Context) error {
		return actionErr
	}, nil)

	require.False(t, ok)
	require.ErrorIs(t, err, actionErr)
	require.Nil(t, guard.LastError())
}

func TestLastErrorClearedOnNextCheck(t *testing.T) {
	provider := &stubProvider{allowed: false, usage: BuildPlanUsage(PlanFree, 1, 0)}
	guard := NewGuard(provider, nil, nil)

	_, err := guard.CheckAndExecute(context.Background(), FeatureBarbers, func(context.Context) error { return nil }, nil)
	require.NoError(t, err)
	require.NotNil(t, guard.LastError())

	provider.allowed = true
	ok, err := guard.CheckAndExecute(context.Background(), FeatureBarbers, func(context.Context) error { return nil }, nil)
	require.NoError(t, err)
	require.True(t, ok)
	require.Nil(t, guard.LastError())
}

func TestCheckLimits(t *testing.T) {
	provider := &stubProvider{allowed: false}
	guard := NewGuard(provider, nil, nil)
	require.False(t, guard.CheckLimits(context.Background(), FeatureBarbers))

	provider.allowed = true
	require.True(t, guard.CheckLimits(context.Background(), FeatureBarbers))

	// Fail-open applies here too.
	provider.checkErr = errors.New("down")
	require.True(t, guard.CheckLimits(context.Background(), FeatureBarbers))
}

// Scenario: tenant "shop-b" on the pro plan creates a barber. Usage shows
// unlimited caps, the action runs exactly once.
func TestProPlanScenario(t *testing.T) {
	usage := BuildPlanUsage(PlanPro, 12, 340)
	guard := NewGuard(&stubProvider{allowed: usage.Stat(FeatureBarbers).CanProceed(), usage: usage}, nil, nil)

	calls := 0
	ok, err := guard.CheckAndExecute(context.Background(), FeatureBarbers, func(context.Context) error {
		calls++
		return nil
	}, nil)

	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, 1, calls)
}
