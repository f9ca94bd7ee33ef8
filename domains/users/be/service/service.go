package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/trimly-app/trimly-saas/platform/go/persistence"
)

// Errors surfaced by the service.
var (
	ErrInvalidInput = errors.New("invalid user input")
	ErrConflict     = errors.New("user already exists")
)

// Role is a staff account's access level within its shop.
type Role string

const (
	RoleOwner Role = "owner"
	RoleStaff Role = "staff"
)

// User is a staff account of one barbershop. AuthUID ties the record to the
// identity provider subject carried in the JWT.
type User struct {
	persistence.Meta
	Email    string `json:"email"`
	FullName string `json:"fullName"`
	Role     Role   `json:"role"`
	AuthUID  string `json:"authUid"`
}

// WithTenant returns a copy stamped with the given tenant id.
func (u User) WithTenant(tenantID uuid.UUID) User {
	u.TenantID = tenantID
	return u
}

// CreateInput represents the request to add a staff account.
type CreateInput struct {
	Email    string
	FullName string
	Role     Role
	AuthUID  string
}

// UpdateInput represents mutable account fields. Nil fields are left
// unchanged.
type UpdateInput struct {
	FullName *string
	Role     *Role
}

// Service owns staff accounts for the active tenant.
type Service struct {
	records *persistence.TenantRepository[User]
}

// New constructs a Service.
func New(repo persistence.Repository[User]) *Service {
	if repo == nil {
		panic("users repository is required")
	}
	return &Service{records: persistence.NewTenantScoped(repo)}
}

// List returns the active tenant's staff accounts.
func (s *Service) List(ctx context.Context) ([]User, error) {
	return s.records.FindAll(ctx, nil)
}

// Get returns one staff account owned by the active tenant.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (User, error) {
	return s.records.FindByID(ctx, id)
}

// FindByAuthUID returns the staff account bound to an identity provider
// subject, scoped to the active tenant.
func (s *Service) FindByAuthUID(ctx context.Context, authUID string) (User, error) {
	matches, err := s.records.FindAll(ctx, persistence.Filters{"authUid": authUID})
	if err != nil {
		return User{}, err
	}
	if len(matches) == 0 {
		return User{}, persistence.ErrRecordNotFound
	}
	return matches[0], nil
}

// FindByEmail returns the staff account with the given email, scoped to the
// active tenant.
func (s *Service) FindByEmail(ctx context.Context, email string) (User, error) {
	normalized := strings.ToLower(strings.TrimSpace(email))
	matches, err := s.records.FindAll(ctx, persistence.Filters{"email": normalized})
	if err != nil {
		return User{}, err
	}
	if len(matches) == 0 {
		return User{}, persistence.ErrRecordNotFound
	}
	return matches[0], nil
}

// Create adds a staff account. Staff accounts are not quota-gated; plans
// limit barbers and appointments only.
func (s *Service) Create(ctx context.Context, input CreateInput) (User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if email == "" || !strings.Contains(email, "@") {
		return User{}, fmt.Errorf("%w: valid email is required", ErrInvalidInput)
	}
	fullName := strings.TrimSpace(input.FullName)
	if fullName == "" {
		return User{}, fmt.Errorf("%w: fullName is required", ErrInvalidInput)
	}
	role := input.Role
	if role == "" {
		role = RoleStaff
	}
	if role != RoleOwner && role != RoleStaff {
		return User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, input.Role)
	}

	if existing, err := s.records.FindAll(ctx, persistence.Filters{"email": email}); err != nil {
		return User{}, err
	} else if len(existing) > 0 {
		return User{}, ErrConflict
	}

	user := User{
		Meta:     persistence.NewMeta(time.Now().UTC()),
		Email:    email,
		FullName: fullName,
		Role:     role,
		AuthUID:  strings.TrimSpace(input.AuthUID),
	}

	return s.records.Create(ctx, user)
}

// Update modifies a staff account owned by the active tenant.
func (s *Service) Update(ctx context.Context, id uuid.UUID, input UpdateInput) (User, error) {
	current, err := s.records.FindByID(ctx, id)
	if err != nil {
		return User{}, err
	}

	next := current
	if input.FullName != nil {
		fullName := strings.TrimSpace(*input.FullName)
		if fullName == "" {
			return User{}, fmt.Errorf("%w: fullName must not be empty", ErrInvalidInput)
		}
		next.FullName = fullName
	}
	if input.Role != nil {
		if *input.Role != RoleOwner && *input.Role != RoleStaff {
			return User{}, fmt.Errorf("%w: unknown role %q", ErrInvalidInput, *input.Role)
		}
		next.Role = *input.Role
	}
	next.UpdatedAt = time.Now().UTC()

	return s.records.Update(ctx, id, next)
}

// Delete removes a staff account owned by the active tenant.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	return s.records.Delete(ctx, id)
}
