package repo

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trimly-app/trimly-saas/domains/tenants/be/service"
	"github.com/trimly-app/trimly-saas/platform/go/plan"
)

const tenantColumns = "tenant_id, slug, display_name, status, plan_type, short_tenant_id, created_at, updated_at, created_by"

// PostgresRepository implements the registry on the shared pgx pool.
type PostgresRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresRepository constructs a repository backed by the given pool.
func NewPostgresRepository(pool *pgxpool.Pool) *PostgresRepository {
	if pool == nil {
		panic("pgx pool is required")
	}
	return &PostgresRepository{pool: pool}
}

func (r *PostgresRepository) List(ctx context.Context, opts service.ListOptions) (service.ListResult, error) {
	page := opts.Page
	if page < 1 {
		page = 1
	}
	size := opts.PageSize
	if size <= 0 {
		size = 20
	}
	offset := (page - 1) * size

	where := ""
	args := []any{size, offset}
	if opts.Status != nil {
		where = "WHERE status = $3"
		args = append(args, string(*opts.Status))
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		"SELECT %s FROM tenants %s ORDER BY created_at LIMIT $1 OFFSET $2", tenantColumns, where), args...)
	if err != nil {
		return service.ListResult{}, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	tenants := make([]service.Tenant, 0, size)
	for rows.Next() {
		t, err := scanTenant(rows)
		if err != nil {
			return service.ListResult{}, err
		}
		tenants = append(tenants, t)
	}
	if err := rows.Err(); err != nil {
		return service.ListResult{}, fmt.Errorf("list tenants: %w", err)
	}

	var total int
	countArgs := args[2:]
	countWhere := ""
	if opts.Status != nil {
		countWhere = "WHERE status = $1"
	}
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM tenants %s", countWhere), countArgs...).Scan(&total); err != nil {
		return service.ListResult{}, fmt.Errorf("count tenants: %w", err)
	}

	totalPages := (total + size - 1) / size
	return service.ListResult{Tenants: tenants, Page: page, PageSize: size, TotalItems: total, TotalPages: totalPages}, nil
}

func (r *PostgresRepository) Create(ctx context.Context, t service.Tenant) (service.Tenant, error) {
	_, err := r.pool.Exec(ctx, fmt.Sprintf(
		"INSERT INTO tenants (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)", tenantColumns),
		t.ID, t.Slug, t.DisplayName, string(t.Status), string(t.PlanType), t.ShortTenantID, t.CreatedAt, t.UpdatedAt, t.CreatedBy)
	if err != nil {
		return service.Tenant{}, mapConflict(err)
	}
	return t, nil
}

func (r *PostgresRepository) Get(ctx context.Context, id uuid.UUID) (service.Tenant, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(
		"SELECT %s FROM tenants WHERE tenant_id = $1", tenantColumns), id)
	t, err := scanTenant(row)
	if err != nil {
		return service.Tenant{}, mapNotFound(err)
	}
	return t, nil
}

func (r *PostgresRepository) Update(ctx context.Context, t service.Tenant) (service.Tenant, error) {
	tag, err := r.pool.Exec(ctx,
		"UPDATE tenants SET display_name = $2, status = $3, plan_type = $4, updated_at = $5 WHERE tenant_id = $1",
		t.ID, t.DisplayName, string(t.Status), string(t.PlanType), t.UpdatedAt)
	if err != nil {
		return service.Tenant{}, fmt.Errorf("update tenant: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.Tenant{}, service.ErrNotFound
	}
	return t, nil
}

func (r *PostgresRepository) FindBySlug(ctx context.Context, slug string) (service.Tenant, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(
		"SELECT %s FROM tenants WHERE slug = $1", tenantColumns), slug)
	t, err := scanTenant(row)
	if err != nil {
		return service.Tenant{}, mapNotFound(err)
	}
	return t, nil
}

func scanTenant(row pgx.Row) (service.Tenant, error) {
	var (
		t        service.Tenant
		status   string
		planType string
	)
	if err := row.Scan(&t.ID, &t.Slug, &t.DisplayName, &status, &planType, &t.ShortTenantID, &t.CreatedAt, &t.UpdatedAt, &t.CreatedBy); err != nil {
		return service.Tenant{}, err
	}
	t.Status = service.StatusFromString(status)
	t.PlanType = plan.PlanType(planType)
	return t, nil
}

func mapNotFound(err error) error {
	if errors.Is(err, pgx.ErrNoRows) {
		return service.ErrNotFound
	}
	return fmt.Errorf("query tenant: %w", err)
}

func mapConflict(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return service.ErrConflictSlug
	}
	return fmt.Errorf("insert tenant: %w", err)
}

// Ensure interface compliance.
var _ service.Repository = (*PostgresRepository)(nil)
