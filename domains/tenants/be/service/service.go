package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/trimly-app/trimly-saas/platform/go/plan"
	"github.com/trimly-app/trimly-saas/platform/go/tenant"
)

// Errors returned by the registry.
var (
	ErrNotFound     = errors.New("tenant not found")
	ErrConflictSlug = errors.New("tenant slug already exists")
	ErrDisabled     = errors.New("tenant disabled")
	ErrInvalidSlug  = errors.New("invalid tenant slug")
)

// Status is the lifecycle state of a registry entry.
type Status string

const (
	StatusActive   Status = "active"
	StatusDisabled Status = "disabled"
	StatusPending  Status = "pending"
)

// StatusFromString converts a stored string to Status; unknown values map to
// pending so a bad row never silently activates a tenant.
func StatusFromString(s string) Status {
	switch Status(s) {
	case StatusActive, StatusDisabled, StatusPending:
		return Status(s)
	default:
		return StatusPending
	}
}

// Tenant is the registry entry for one barbershop.
type Tenant struct {
	ID            uuid.UUID
	Slug          string
	DisplayName   *string
	Status        Status
	PlanType      plan.PlanType
	ShortTenantID string
	CreatedAt     time.Time
	UpdatedAt     time.Time
	CreatedBy     uuid.UUID
}

// CreateInput represents the request to register a tenant.
type CreateInput struct {
	Slug        string
	DisplayName *string
	PlanType    plan.PlanType
	CreatedBy   uuid.UUID
}

// UpdateInput represents mutable registry fields.
type UpdateInput struct {
	DisplayName *string
	Status      *Status
	PlanType    *plan.PlanType
}

// ListOptions captures filters and pagination.
type ListOptions struct {
	Page     int
	PageSize int
	Status   *Status
}

// ListResult wraps paginated tenants.
type ListResult struct {
	Tenants    []Tenant
	Page       int
	PageSize   int
	TotalItems int
	TotalPages int
}

// Repository abstracts registry persistence.
type Repository interface {
	List(ctx context.Context, opts ListOptions) (ListResult, error)
	Create(ctx context.Context, t Tenant) (Tenant, error)
	Get(ctx context.Context, id uuid.UUID) (Tenant, error)
	Update(ctx context.Context, t Tenant) (Tenant, error)
	FindBySlug(ctx context.Context, slug string) (Tenant, error)
}

// Service provides tenant registry operations. It also serves as the stable
// plan-type lookup the quota fallback path relies on when the billing backend
// is unreachable.
type Service struct {
	repo Repository
}

// New constructs a Service.
func New(repo Repository) *Service {
	if repo == nil {
		panic("tenants repo is required")
	}
	return &Service{repo: repo}
}

// List tenants with optional status filter.
func (s *Service) List(ctx context.Context, opts ListOptions) (ListResult, error) {
	return s.repo.List(ctx, opts)
}

// Create registers a new tenant with derived fields. New tenants start on the
// free plan unless the input says otherwise.
func (s *Service) Create(ctx context.Context, input CreateInput) (Tenant, error) {
	slug, err := NormalizeSlug(input.Slug)
	if err != nil {
		return Tenant{}, err
	}

	planType := input.PlanType
	if planType == "" {
		planType = plan.PlanFree
	}

	id := uuid.New()
	now := time.Now().UTC()

	t := Tenant{
		ID:            id,
		Slug:          slug,
		DisplayName:   input.DisplayName,
		Status:        StatusActive,
		PlanType:      planType,
		ShortTenantID: tenant.ShortID(id),
		CreatedAt:     now,
		UpdatedAt:     now,
		CreatedBy:     input.CreatedBy,
	}

	return s.repo.Create(ctx, t)
}

// Get returns a tenant by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Tenant, error) {
	return s.repo.Get(ctx, id)
}

// FindBySlug returns a tenant by its normalized slug.
func (s *Service) FindBySlug(ctx context.Context, slug string) (Tenant, error) {
	normalized, err := NormalizeSlug(slug)
	if err != nil {
		return Tenant{}, err
	}
	return s.repo.FindBySlug(ctx, normalized)
}

// Update modifies mutable fields of a tenant. Plan changes land here too:
// billing webhooks call Update with the new plan type.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (Tenant, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return Tenant{}, err
	}

	next := current
	if input.DisplayName != nil {
		next.DisplayName = input.DisplayName
	}
	if input.Status != nil {
		next.Status = *input.Status
	}
	if input.PlanType != nil {
		next.PlanType = *input.PlanType
	}
	next.UpdatedAt = time.Now().UTC()

	return s.repo.Update(ctx, next)
}

// ResolveSpace returns a lightweight tenant Space for middleware consumption.
// Disabled tenants resolve to an error so their requests never reach data
// operations.
func (s *Service) ResolveSpace(ctx context.Context, id uuid.UUID) (tenant.Space, error) {
	t, err := s.repo.Get(ctx, id)
	if err != nil {
		return tenant.Space{}, err
	}
	if t.Status == StatusDisabled {
		return tenant.Space{}, ErrDisabled
	}
	return tenant.Space{
		TenantID:      t.ID,
		Slug:          t.Slug,
		ShortTenantID: t.ShortTenantID,
	}, nil
}

// Plan looks up the plan type by tenant slug. The registry is the secondary
// source of truth for plan types, so this stays answerable while the billing
// backend is down.
func (s *Service) Plan(ctx context.Context, tenantRef string) (plan.PlanInfo, error) {
	t, err := s.FindBySlug(ctx, tenantRef)
	if err != nil {
		return plan.PlanInfo{}, err
	}
	return plan.PlanInfo{PlanType: t.PlanType}, nil
}
