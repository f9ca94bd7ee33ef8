package tenant

import (
	"context"
	"errors"

	"github.com/google/uuid"
)

// ErrTenantRequired indicates an operation was attempted without an active
// tenant on the context. Callers must treat this as fatal for the current
// operation; it is never retried automatically.
var ErrTenantRequired = errors.New("tenant context required")

// Space captures the resolved tenant routing metadata for a request.
// It is attached to the context by middleware once the tenant has been
// resolved from credentials/claims.
type Space struct {
	TenantID      uuid.UUID
	Slug          string
	ShortTenantID string
}

type ctxKey string

const spaceKey ctxKey = "TRIMLY_TENANT_SPACE"

// WithSpace returns a derived context carrying the tenant Space.
func WithSpace(ctx context.Context, space Space) context.Context {
	return context.WithValue(ctx, spaceKey, space)
}

// FromContext extracts the tenant Space and a boolean indicating presence.
func FromContext(ctx context.Context) (Space, bool) {
	v := ctx.Value(spaceKey)
	if v == nil {
		return Space{}, false
	}

	space, ok := v.(Space)
	return space, ok
}

// Require extracts the tenant Space or fails with ErrTenantRequired.
// Every data operation in the platform goes through this check; there is no
// soft default tenant.
func Require(ctx context.Context) (Space, error) {
	space, ok := FromContext(ctx)
	if !ok || space.TenantID == uuid.Nil {
		return Space{}, ErrTenantRequired
	}
	return space, nil
}
