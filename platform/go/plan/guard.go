package plan

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"
)

// UsageProvider is the slice of UsageService the guard depends on. Both
// methods are fallible on purpose: the guard owns the fail-open policy for
// infrastructure errors.
type UsageProvider interface {
	CheckFeature(ctx context.Context, feature Feature) (bool, error)
	FetchUsage(ctx context.Context) (PlanUsage, error)
}

// GuardStats receives quota decision notifications. Implemented by the
// Prometheus collectors in platform/go/metrics; nil disables reporting.
type GuardStats interface {
	Allowed(feature Feature)
	Denied(feature Feature)
	FailOpen(feature Feature)
}

// Guard gates mutating actions on plan limits.
//
// Policy: a failure of the quota check itself never blocks the user action
// (fail-open, availability over strict enforcement); a confirmed limit
// violation is captured as inspectable state and routed through the onLimit
// callback, never raised as an error. The client-side guard is advisory;
// the backend remains the final authority and may itself return a LimitError
// from within the action.
type Guard struct {
	usage  UsageProvider
	logger *zap.Logger
	stats  GuardStats

	mu      sync.Mutex
	lastErr *LimitError
}

// NewGuard constructs a Guard. logger and stats may be nil.
func NewGuard(usage UsageProvider, logger *zap.Logger, stats GuardStats) *Guard {
	if usage == nil {
		panic("usage provider is required")
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Guard{usage: usage, logger: logger, stats: stats}
}

// CheckAndExecute runs action if the tenant is within the plan limit for
// feature. It returns true when the action ran to completion.
//
// A denial (pre-check or a LimitError returned by the action itself) yields
// (false, nil): the limit is recorded on the guard, onLimit is invoked, and
// no error escapes. Any other action error propagates unchanged. A failure
// of the quota check itself is tolerated and the action runs anyway.
func (g *Guard) CheckAndExecute(ctx context.Context, feature Feature, action func(context.Context) error, onLimit func(*LimitError)) (bool, error) {
	g.clearError()

	allowed, err := g.usage.CheckFeature(ctx, feature)
	if err != nil {
		// Fail open: the guard never blocks a user action because of its own
		// infrastructure failure.
		g.logger.Warn("quota check failed, allowing action",
			zap.String("feature", string(feature)), zap.Error(err))
		if g.stats != nil {
			g.stats.FailOpen(feature)
		}
		allowed = true
	}

	if !allowed {
		g.deny(ctx, feature, onLimit)
		return false, nil
	}

	if err := action(ctx); err != nil {
		var limitErr *LimitError
		if errors.As(err, &limitErr) {
			// The backend confirmed a limit the optimistic pre-check missed.
			g.record(limitErr, onLimit)
			if g.stats != nil {
				g.stats.Denied(feature)
			}
			return false, nil
		}
		return false, err
	}

	if g.stats != nil {
		g.stats.Allowed(feature)
	}
	return true, nil
}

// CheckLimits reports whether the tenant may consume one more unit of the
// feature, with the same fail-open policy as CheckAndExecute.
func (g *Guard) CheckLimits(ctx context.Context, feature Feature) bool {
	allowed, err := g.usage.CheckFeature(ctx, feature)
	if err != nil {
		g.logger.Warn("quota check failed, reporting allowed",
			zap.String("feature", string(feature)), zap.Error(err))
		if g.stats != nil {
			g.stats.FailOpen(feature)
		}
		return true
	}
	return allowed
}

// LastError returns the most recent limit violation, or nil. It is cleared
// at the start of every CheckAndExecute call.
func (g *Guard) LastError() *LimitError {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.lastErr
}

// deny builds the richest limit error available: usage detail when the stats
// call succeeds, a generic zeroed denial when it does not.
func (g *Guard) deny(ctx context.Context, feature Feature, onLimit func(*LimitError)) {
	var limitErr *LimitError
	if usage, err := g.usage.FetchUsage(ctx); err == nil {
		limitErr = NewLimitError(feature, usage)
	} else {
		g.logger.Warn("usage detail unavailable for denial",
			zap.String("feature", string(feature)), zap.Error(err))
		limitErr = genericLimitError(feature)
	}

	g.record(limitErr, onLimit)
	if g.stats != nil {
		g.stats.Denied(feature)
	}
}

func (g *Guard) record(limitErr *LimitError, onLimit func(*LimitError)) {
	g.mu.Lock()
	g.lastErr = limitErr
	g.mu.Unlock()

	if onLimit != nil {
		onLimit(limitErr)
	}
}

func (g *Guard) clearError() {
	g.mu.Lock()
	g.lastErr = nil
	g.mu.Unlock()
}
