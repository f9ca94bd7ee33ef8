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
	"github.com/trimly-app/trimly-saas/platform/go/tenant"
)

// Errors surfaced by the service.
var (
	ErrInvalidInput      = errors.New("invalid appointment input")
	ErrInvalidTransition = errors.New("invalid appointment status transition")
)

const (
	listCacheKey = "appointments:list"
	listCacheTTL = 2 * time.Minute
)

// Status is the lifecycle state of an appointment. Scheduled appointments may
// be completed or cancelled; both of those are terminal.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Appointment is one booked slot. Booking consumes a unit of the plan's
// monthly appointment quota; cancelled appointments do not count against it.
type Appointment struct {
	persistence.Meta
	BarberID      uuid.UUID `json:"barberId"`
	ServiceID     uuid.UUID `json:"serviceId"`
	CustomerName  string    `json:"customerName"`
	CustomerEmail string    `json:"customerEmail,omitempty"`
	StartsAt      time.Time `json:"startsAt"`
	EndsAt        time.Time `json:"endsAt"`
	Status        Status    `json:"status"`
	Notes         *string   `json:"notes,omitempty"`
}

// WithTenant returns a copy stamped with the given tenant id.
func (a Appointment) WithTenant(tenantID uuid.UUID) Appointment {
	a.TenantID = tenantID
	return a
}

// BookInput represents the request to book an appointment.
type BookInput struct {
	BarberID      uuid.UUID
	ServiceID     uuid.UUID
	CustomerName  string
	CustomerEmail string
	StartsAt      time.Time
	EndsAt        time.Time
	Notes         *string
}

// RangeCounter counts a tenant's quota-relevant appointments inside a time
// window. The Postgres repository implements it with an indexed range query;
// when absent, the service falls back to scanning the tenant's records.
type RangeCounter interface {
	CountInRange(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (int64, error)
}

// Config wires a Service.
type Config struct {
	Repo  persistence.Repository[Appointment]
	Guard *plan.Guard
	// Usage invalidates the quota snapshot after quota-consuming mutations.
	// May be nil.
	Usage *plan.UsageService
	// Range speeds up monthly quota counts. May be nil.
	Range RangeCounter
	// Cache holds per-tenant list snapshots. May be nil.
	Cache  *cache.Cache
	Logger *zap.Logger
	// Now is the clock; nil means time.Now. Injected by tests.
	Now func() time.Time
}

// Service owns appointment booking and lifecycle for the active tenant.
type Service struct {
	records *persistence.TenantRepository[Appointment]
	guard   *plan.Guard
	usage   *plan.UsageService
	ranges  RangeCounter
	cache   *cache.Cache
	logger  *zap.Logger
	now     func() time.Time
}

// New constructs a Service.
func New(cfg Config) *Service {
	if cfg.Repo == nil {
		panic("appointments repository is required")
	}
	if cfg.Guard == nil {
		panic("quota guard is required")
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Service{
		records: persistence.NewTenantScoped(cfg.Repo),
		guard:   cfg.Guard,
		usage:   cfg.Usage,
		ranges:  cfg.Range,
		cache:   cfg.Cache,
		logger:  logger,
		now:     now,
	}
}

// List returns the active tenant's appointments, served from the tenant cache
// within the TTL.
func (s *Service) List(ctx context.Context) ([]Appointment, error) {
	fetch := func(ctx context.Context) ([]Appointment, error) {
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

// Get returns one appointment owned by the active tenant.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (Appointment, error) {
	return s.records.FindByID(ctx, id)
}

// Book creates an appointment if the plan's monthly quota allows one more.
// A denial surfaces as *plan.LimitError.
func (s *Service) Book(ctx context.Context, input BookInput) (Appointment, error) {
	if err := validateBooking(input); err != nil {
		return Appointment{}, err
	}

	var (
		booked Appointment
		denial *plan.LimitError
	)
	ran, err := s.guard.CheckAndExecute(ctx, plan.FeatureAppointments, func(ctx context.Context) error {
		appt := Appointment{
			Meta:          persistence.NewMeta(s.now().UTC()),
			BarberID:      input.BarberID,
			ServiceID:     input.ServiceID,
			CustomerName:  strings.TrimSpace(input.CustomerName),
			CustomerEmail: strings.TrimSpace(input.CustomerEmail),
			StartsAt:      input.StartsAt.UTC(),
			EndsAt:        input.EndsAt.UTC(),
			Status:        StatusScheduled,
			Notes:         input.Notes,
		}
		out, err := s.records.Create(ctx, appt)
		if err != nil {
			return err
		}
		booked = out
		return nil
	}, func(limitErr *plan.LimitError) {
		denial = limitErr
	})
	if err != nil {
		return Appointment{}, err
	}
	if !ran {
		return Appointment{}, denial
	}

	s.invalidate(ctx)
	return booked, nil
}

// Complete marks a scheduled appointment as completed.
func (s *Service) Complete(ctx context.Context, id uuid.UUID) (Appointment, error) {
	return s.transition(ctx, id, StatusCompleted)
}

// Cancel marks a scheduled appointment as cancelled, freeing its quota unit.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID) (Appointment, error) {
	return s.transition(ctx, id, StatusCancelled)
}

// Reschedule moves a scheduled appointment to a new slot.
func (s *Service) Reschedule(ctx context.Context, id uuid.UUID, startsAt, endsAt time.Time) (Appointment, error) {
	if !startsAt.Before(endsAt) {
		return Appointment{}, fmt.Errorf("%w: start must be before end", ErrInvalidInput)
	}

	current, err := s.records.FindByID(ctx, id)
	if err != nil {
		return Appointment{}, err
	}
	if current.Status != StatusScheduled {
		return Appointment{}, fmt.Errorf("%w: only scheduled appointments can be rescheduled", ErrInvalidTransition)
	}

	next := current
	next.StartsAt = startsAt.UTC()
	next.EndsAt = endsAt.UTC()
	next.UpdatedAt = s.now().UTC()

	updated, err := s.records.Update(ctx, id, next)
	if err != nil {
		return Appointment{}, err
	}

	s.invalidate(ctx)
	return updated, nil
}

// Delete removes an appointment owned by the active tenant.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.records.Delete(ctx, id); err != nil {
		return err
	}

	s.invalidate(ctx)
	return nil
}

// CountThisMonth returns how many non-cancelled appointments the active
// tenant has in the current calendar month. Feeds the fallback usage
// synthesis; cancelled slots do not consume quota.
func (s *Service) CountThisMonth(ctx context.Context) (int64, error) {
	space, err := tenant.Require(ctx)
	if err != nil {
		return 0, err
	}

	from, to := monthWindow(s.now().UTC())

	if s.ranges != nil {
		return s.ranges.CountInRange(ctx, space.TenantID, from, to)
	}

	all, err := s.records.FindAll(ctx, nil)
	if err != nil {
		return 0, err
	}
	var count int64
	for _, appt := range all {
		if appt.Status == StatusCancelled {
			continue
		}
		if !appt.StartsAt.Before(from) && appt.StartsAt.Before(to) {
			count++
		}
	}
	return count, nil
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, target Status) (Appointment, error) {
	current, err := s.records.FindByID(ctx, id)
	if err != nil {
		return Appointment{}, err
	}
	if current.Status != StatusScheduled {
		return Appointment{}, fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, current.Status, target)
	}

	next := current
	next.Status = target
	next.UpdatedAt = s.now().UTC()

	updated, err := s.records.Update(ctx, id, next)
	if err != nil {
		return Appointment{}, err
	}

	s.invalidate(ctx)
	return updated, nil
}

// invalidate drops the tenant's appointment list snapshot and the cached
// usage so the next quota check sees the new count.
func (s *Service) invalidate(ctx context.Context) {
	if s.cache != nil {
		if tc, err := cache.ForContext(ctx, s.cache); err == nil {
			if err := tc.DeleteLogicalPrefix(ctx, "appointments:"); err != nil {
				s.logger.Warn("invalidate appointment cache", zap.Error(err))
			}
		}
	}
	if s.usage != nil {
		s.usage.InvalidateUsage(ctx)
	}
}

func validateBooking(input BookInput) error {
	if input.BarberID == uuid.Nil {
		return fmt.Errorf("%w: barberId is required", ErrInvalidInput)
	}
	if input.ServiceID == uuid.Nil {
		return fmt.Errorf("%w: serviceId is required", ErrInvalidInput)
	}
	if strings.TrimSpace(input.CustomerName) == "" {
		return fmt.Errorf("%w: customerName is required", ErrInvalidInput)
	}
	if input.StartsAt.IsZero() || input.EndsAt.IsZero() {
		return fmt.Errorf("%w: startsAt and endsAt are required", ErrInvalidInput)
	}
	if !input.StartsAt.Before(input.EndsAt) {
		return fmt.Errorf("%w: start must be before end", ErrInvalidInput)
	}
	return nil
}

// monthWindow returns the [start, end) bounds of the calendar month of t.
func monthWindow(t time.Time) (time.Time, time.Time) {
	from := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	return from, from.AddDate(0, 1, 0)
}
