package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/trimly-app/trimly-saas/platform/go/cache"
	"github.com/trimly-app/trimly-saas/platform/go/persistence"
)

// ErrInvalidInput flags request payloads the service refuses to persist.
var ErrInvalidInput = errors.New("invalid service input")

const (
	listCacheKey = "services:list"
	listCacheTTL = 5 * time.Minute
)

// Offering is a bookable service on the shop's menu: a haircut, a shave, a
// beard trim. Offerings are not quota-gated; plans limit barbers and
// appointments only.
type Offering struct {
	persistence.Meta
	Name            string  `json:"name"`
	Description     *string `json:"description,omitempty"`
	DurationMinutes int     `json:"durationMinutes"`
	PriceCents      int64   `json:"priceCents"`
	Active          bool    `json:"active"`
}

// WithTenant returns a copy stamped with the given tenant id.
func (o Offering) WithTenant(tenantID uuid.UUID) Offering {
	o.TenantID = tenantID
	return o
}

// CreateInput represents the request to add an offering.
type CreateInput struct {
	Name            string
	Description     *string
	DurationMinutes int
	PriceCents      int64
}

// UpdateInput represents mutable offering fields. Nil fields are left
// unchanged.
type UpdateInput struct {
	Name            *string
	Description     *string
	DurationMinutes *int
	PriceCents      *int64
	Active          *bool
}

// Config wires a Service.
type Config struct {
	Repo persistence.Repository[Offering]
	// Cache holds per-tenant list snapshots. May be nil.
	Cache  *cache.Cache
	Logger *zap.Logger
}

// Service owns the offering catalog for the active tenant.
type Service struct {
	records *persistence.TenantRepository[Offering]
	cache   *cache.Cache
	logger  *zap.Logger
}

// New constructs a Service.
func New(cfg Config) *Service {
	if cfg.Repo == nil {
		panic("services repository is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		records: persistence.NewTenantScoped(cfg.Repo),
		cache:   cfg.Cache,
		logger:  logger,
	}
}

// List returns the active tenant's offerings, served from the tenant cache
// within the TTL.
func (s *Service) List(ctx context.Context) ([]Offering, error) {
	fetch := func(ctx context.Context) ([]Offering, error) {
		return s.records.FindAll(ctx, nil)
	}

	if s.cache == nil {
		return fetch(ctx)
	}

	tc, err := cache.ForContext(ctx, s.cache)
	if err != nil {
		return nil, err
	}
	return cache.FetchWith(ctx, tc, listCacheKey, fetch, cache.FetchOptions{TTL: listCacheTTL})
}

// Get returns one offering owned by the active tenant.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Offering, error) {
	return s.records.FindByID(ctx, id)
}

// Search matches offerings by name or description.
func (s *Service) Search(ctx context.Context, query string, limit int) ([]Offering, error) {
	return s.records.Search(ctx, query, persistence.SearchOptions{Limit: limit})
}

// Create adds an offering to the catalog.
func (s *Service) Create(ctx context.Context, input CreateInput) (Offering, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Offering{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if input.DurationMinutes <= 0 {
		return Offering{}, fmt.Errorf("%w: duration must be positive", ErrInvalidInput)
	}
	if input.PriceCents < 0 {
		return Offering{}, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}

	offering := Offering{
		Meta:            persistence.NewMeta(time.Now().UTC()),
		Name:            name,
		Description:     input.Description,
		DurationMinutes: input.DurationMinutes,
		PriceCents:      input.PriceCents,
		Active:          true,
	}

	created, err := s.records.Create(ctx, offering)
	if err != nil {
		return Offering{}, err
	}

	s.invalidate(ctx)
	return created, nil
}

// Update modifies an offering owned by the active tenant.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (Offering, error) {
	current, err := s.records.FindByID(ctx, id)
	if err != nil {
		return Offering{}, err
	}

	next := current
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return Offering{}, fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
		}
		next.Name = name
	}
	if input.Description != nil {
		next.Description = input.Description
	}
	if input.DurationMinutes != nil {
		if *input.DurationMinutes <= 0 {
			return Offering{}, fmt.Errorf("%w: duration must be positive", ErrInvalidInput)
		}
		next.DurationMinutes = *input.DurationMinutes
	}
	if input.PriceCents != nil {
		if *input.PriceCents < 0 {
			return Offering{}, fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
		}
		next.PriceCents = *input.PriceCents
	}
	if input.Active != nil {
		next.Active = *input.Active
	}
	next.UpdatedAt = time.Now().UTC()

	updated, err := s.records.Update(ctx, id, next)
	if err != nil {
		return Offering{}, err
	}

	s.invalidate(ctx)
	return updated, nil
}

// Delete removes an offering owned by the active tenant.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.records.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx)
	return nil
}

// invalidate drops the tenant's offering list snapshot.
func (s *Service) invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if tc, err := cache.ForContext(ctx, s.cache); err == nil {
		if err := tc.DeleteLogicalPrefix(ctx, "services:"); err != nil {
			s.logger.Warn("invalidate services cache", zap.Error(err))
		}
	}
}
