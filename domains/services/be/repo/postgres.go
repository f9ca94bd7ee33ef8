package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trimly-app/trimly-saas/domains/services/be/service"
	"github.com/trimly-app/trimly-saas/platform/go/persistence"
)

const offeringColumns = "id, tenant_id, name, description, duration_minutes, price_cents, active, created_at, updated_at"

// filterColumns maps public filter keys onto table columns. Unknown keys are
// rejected so filters can never smuggle raw SQL.
var filterColumns = map[string]string{
	persistence.FilterTenantID: "tenant_id",
	"active":                   "active",
	"name":                     "name",
}

// PostgresRepository implements the generic repository contract for offerings.
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

func (r *PostgresRepository) FindAll(ctx context.Context, filters persistence.Filters) ([]service.Offering, error) {
	where, args, err := buildWhere(filters, 1)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		"SELECT %s FROM services %s ORDER BY created_at", offeringColumns, where), args...)
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	return collectOfferings(rows)
}

func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (service.Offering, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(
		"SELECT %s FROM services WHERE id = $1", offeringColumns), id)

	offering, err := scanOffering(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.Offering{}, persistence.ErrRecordNotFound
		}
		return service.Offering{}, fmt.Errorf("get service: %w", err)
	}
	return offering, nil
}

func (r *PostgresRepository) Create(ctx context.Context, data service.Offering) (service.Offering, error) {
	_, err := r.pool.Exec(ctx, fmt.Sprintf(
		"INSERT INTO services (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)", offeringColumns),
		data.ID, data.TenantID, data.Name, data.Description, data.DurationMinutes, data.PriceCents, data.Active, data.CreatedAt, data.UpdatedAt)
	if err != nil {
		return service.Offering{}, fmt.Errorf("insert service: %w", err)
	}
	return data, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id uuid.UUID, data service.Offering) (service.Offering, error) {
	tag, err := r.pool.Exec(ctx,
		"UPDATE services SET name = $2, description = $3, duration_minutes = $4, price_cents = $5, active = $6, updated_at = $7 WHERE id = $1",
		id, data.Name, data.Description, data.DurationMinutes, data.PriceCents, data.Active, data.UpdatedAt)
	if err != nil {
		return service.Offering{}, fmt.Errorf("update service: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.Offering{}, persistence.ErrRecordNotFound
	}
	return data, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM services WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete service: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return persistence.ErrRecordNotFound
	}
	return nil
}

func (r *PostgresRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM services WHERE id = $1)", id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check service exists: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) Search(ctx context.Context, query string, opts persistence.SearchOptions) ([]service.Offering, error) {
	where, args, err := buildWhere(opts.Filters, 2)
	if err != nil {
		return nil, err
	}

	clause := "WHERE (name ILIKE $1 OR description ILIKE $1)"
	if where != "" {
		clause += " AND " + strings.TrimPrefix(where, "WHERE ")
	}
	args = append([]any{"%" + query + "%"}, args...)

	sql := fmt.Sprintf("SELECT %s FROM services %s ORDER BY name", offeringColumns, clause)
	if opts.Limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	if opts.Offset > 0 {
		sql += fmt.Sprintf(" OFFSET %d", opts.Offset)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("search services: %w", err)
	}
	defer rows.Close()

	return collectOfferings(rows)
}

func (r *PostgresRepository) Count(ctx context.Context, filters persistence.Filters) (int64, error) {
	where, args, err := buildWhere(filters, 1)
	if err != nil {
		return 0, err
	}

	var total int64
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM services %s", where), args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count services: %w", err)
	}
	return total, nil
}

func buildWhere(filters persistence.Filters, firstArg int) (string, []any, error) {
	if len(filters) == 0 {
		return "", nil, nil
	}

	clauses := make([]string, 0, len(filters))
	args := make([]any, 0, len(filters))
	i := firstArg
	for key, value := range filters {
		column, ok := filterColumns[key]
		if !ok {
			return "", nil, fmt.Errorf("unsupported service filter %q", key)
		}
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, i))
		args = append(args, value)
		i++
	}

	return "WHERE " + strings.Join(clauses, " AND "), args, nil
}

func collectOfferings(rows pgx.Rows) ([]service.Offering, error) {
	offerings := make([]service.Offering, 0)
	for rows.Next() {
		offering, err := scanOffering(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		offerings = append(offerings, offering)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate services: %w", err)
	}
	return offerings, nil
}

func scanOffering(row pgx.Row) (service.Offering, error) {
	var o service.Offering
	err := row.Scan(&o.ID, &o.TenantID, &o.Name, &o.Description, &o.DurationMinutes, &o.PriceCents, &o.Active, &o.CreatedAt, &o.UpdatedAt)
	return o, err
}

// Ensure interface compliance.
var _ persistence.Repository[service.Offering] = (*PostgresRepository)(nil)
