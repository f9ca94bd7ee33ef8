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
	"github.com/trimly-app/trimly-saas/platform/go/plan"
)

// ErrInvalidInput flags request payloads the service refuses to persist.
var ErrInvalidInput = errors.New("invalid barber input")

const (
	listCacheKey = "barbers:list"
	listCacheTTL = 5 * time.Minute
)

// Barber is a staff member who can be booked for appointments. Creating one
// consumes a unit of the plan's barber quota.
type Barber struct {
	persistence.Meta
	Name        string   `json:"name"`
	Email       string   `json:"email,omitempty"`
	Phone       *string  `json:"phone,omitempty"`
	Specialties []string `json:"specialties,omitempty"`
	Active      bool     `json:"active"`
}

// WithTenant returns a copy stamped with the given tenant id.
func (b Barber) WithTenant(tenantID uuid.UUID) Barber {
	b.TenantID = tenantID
	return b
}

// CreateInput represents the request to add a barber.
type CreateInput struct {
	Name        string
	Email       string
	Phone       *string
	Specialties []string
}

// UpdateInput represents mutable barber fields. Nil fields are left unchanged.
type UpdateInput struct {
	Name        *string
	Email       *string
	Phone       *string
	Specialties []string
	Active      *bool
}

// Config wires a Service.
type Config struct {
	Repo  persistence.Repository[Barber]
	Guard *plan.Guard
	// Usage invalidates the quota snapshot after quota-consuming mutations.
	// May be nil.
	Usage *plan.UsageService
	// Cache holds per-tenant list snapshots. May be nil.
	Cache  *cache.Cache
	Logger *zap.Logger
}

// Service owns barber CRUD for the active tenant. All reads and writes go
// through the tenant-scoped repository; creation is gated on the plan's
// barber limit.
type Service struct {
	records *persistence.TenantRepository[Barber]
	guard   *plan.Guard
	usage   *plan.UsageService
	cache   *cache.Cache
	logger  *zap.Logger
}

// New constructs a Service.
func New(cfg Config) *Service {
	if cfg.Repo == nil {
		panic("barbers repository is required")
	}
	if cfg.Guard == nil {
		panic("quota guard is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Service{
		records: persistence.NewTenantScoped(cfg.Repo),
		guard:   cfg.Guard,
		usage:   cfg.Usage,
		cache:   cfg.Cache,
		logger:  logger,
	}
}

// List returns the active tenant's barbers, served from the tenant cache
// within the TTL.
func (s *Service) List(ctx context.Context) ([]Barber, error) {
	fetch := func(ctx context.Context) ([]Barber, error) {
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

// Get returns one barber owned by the active tenant.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Barber, error) {
	return s.records.FindByID(ctx, id)
}

// Create adds a barber if the plan's barber limit allows one more. A denial
// surfaces as *plan.LimitError so transports can map it to a payment-required
// response.
func (s *Service) Create(ctx context.Context, input CreateInput) (Barber, error) {
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return Barber{}, fmt.Errorf("%w: name is required", ErrInvalidInput)
	}

	var (
		created Barber
		denial  *plan.LimitError
	)
	ran, err := s.guard.CheckAndExecute(ctx, plan.FeatureBarbers, func(ctx context.Context) error {
		barber := Barber{
			Meta:        persistence.NewMeta(time.Now().UTC()),
			Name:        name,
			Email:       strings.TrimSpace(input.Email),
			Phone:       input.Phone,
			Specialties: input.Specialties,
			Active:      true,
		}
		out, err := s.records.Create(ctx, barber)
		if err != nil {
			return err
		}
		created = out
		return nil
	}, func(limitErr *plan.LimitError) {
		denial = limitErr
	})
	if err != nil {
		return Barber{}, err
	}
	if !ran {
		return Barber{}, denial
	}

	s.invalidate(ctx)
	return created, nil
}

// Update modifies a barber owned by the active tenant.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (Barber, error) {
	current, err := s.records.FindByID(ctx, id)
	if err != nil {
		return Barber{}, err
	}

	next := current
	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return Barber{}, fmt.Errorf("%w: name must not be empty", ErrInvalidInput)
		}
		next.Name = name
	}
	if input.Email != nil {
		next.Email = strings.TrimSpace(*input.Email)
	}
	if input.Phone != nil {
		next.Phone = input.Phone
	}
	if input.Specialties != nil {
		next.Specialties = input.Specialties
	}
	if input.Active != nil {
		next.Active = *input.Active
	}
	next.UpdatedAt = time.Now().UTC()

	updated, err := s.records.Update(ctx, id, next)
	if err != nil {
		return Barber{}, err
	}

	s.invalidate(ctx)
	return updated, nil
}

// Delete removes a barber owned by the active tenant and frees a quota unit.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.records.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx)
	return nil
}

// Count returns how many barbers the active tenant has. Feeds the fallback
// usage synthesis.
func (s *Service) Count(ctx context.Context) (int64, error) {
	return s.records.Count(ctx, nil)
}

// invalidate drops the tenant's barber list snapshot and the cached usage so
// the next quota check sees the new count.
func (s *Service) invalidate(ctx context.Context) {
	if s.cache != nil {
		if tc, err := cache.ForContext(ctx, s.cache); err == nil {
			if err := tc.DeleteLogicalPrefix(ctx, "barbers:"); err != nil {
				s.logger.Warn("invalidate barber cache", zap.Error(err))
			}
		}
	}
	if s.usage != nil {
		s.usage.InvalidateUsage(ctx)
	}
}
