package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trimly-app/trimly-saas/domains/barbers/be/service"
	"github.com/trimly-app/trimly-saas/platform/go/persistence"
)

const barberColumns = "id, tenant_id, name, email, phone, specialties, active, created_at, updated_at"

// filterColumns maps public filter keys onto table columns. Unknown keys are
// rejected so filters can never smuggle raw SQL.
var filterColumns = map[string]string{
	persistence.FilterTenantID: "tenant_id",
	"active":                   "active",
	"name":                     "name",
}

// PostgresRepository implements the generic repository contract for barbers.
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

func (r *PostgresRepository) FindAll(ctx context.Context, filters persistence.Filters) ([]service.Barber, error) {
	where, args, err := buildWhere(filters, 1)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		"SELECT %s FROM barbers %s ORDER BY created_at", barberColumns, where), args...)
	if err != nil {
		return nil, fmt.Errorf("list barbers: %w", err)
	}
	defer rows.Close()

	return collectBarbers(rows)
}

func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (service.Barber, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(
		"SELECT %s FROM barbers WHERE id = $1", barberColumns), id)

	barber, err := scanBarber(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.Barber{}, persistence.ErrRecordNotFound
		}
		return service.Barber{}, fmt.Errorf("get barber: %w", err)
	}
	return barber, nil
}

func (r *PostgresRepository) Create(ctx context.Context, data service.Barber) (service.Barber, error) {
	_, err := r.pool.Exec(ctx, fmt.Sprintf(
		"INSERT INTO barbers (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)", barberColumns),
		data.ID, data.TenantID, data.Name, data.Email, data.Phone, data.Specialties, data.Active, data.CreatedAt, data.UpdatedAt)
	if err != nil {
		return service.Barber{}, fmt.Errorf("insert barber: %w", err)
	}
	return data, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id uuid.UUID, data service.Barber) (service.Barber, error) {
	tag, err := r.pool.Exec(ctx,
		"UPDATE barbers SET name = $2, email = $3, phone = $4, specialties = $5, active = $6, updated_at = $7 WHERE id = $1",
		id, data.Name, data.Email, data.Phone, data.Specialties, data.Active, data.UpdatedAt)
	if err != nil {
		return service.Barber{}, fmt.Errorf("update barber: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.Barber{}, persistence.ErrRecordNotFound
	}
	return data, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM barbers WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete barber: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return persistence.ErrRecordNotFound
	}
	return nil
}

func (r *PostgresRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM barbers WHERE id = $1)", id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check barber exists: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) Search(ctx context.Context, query string, opts persistence.SearchOptions) ([]service.Barber, error) {
	where, args, err := buildWhere(opts.Filters, 2)
	if err != nil {
		return nil, err
	}

	clause := "WHERE (name ILIKE $1 OR email ILIKE $1)"
	if where != "" {
		clause += " AND " + strings.TrimPrefix(where, "WHERE ")
	}
	args = append([]any{"%" + query + "%"}, args...)

	sql := fmt.Sprintf("SELECT %s FROM barbers %s ORDER BY name", barberColumns, clause)
	if opts.Limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	if opts.Offset > 0 {
		sql += fmt.Sprintf(" OFFSET %d", opts.Offset)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("search barbers: %w", err)
	}
	defer rows.Close()

	return collectBarbers(rows)
}

func (r *PostgresRepository) Count(ctx context.Context, filters persistence.Filters) (int64, error) {
	where, args, err := buildWhere(filters, 1)
	if err != nil {
		return 0, err
	}

	var total int64
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM barbers %s", where), args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count barbers: %w", err)
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
			return "", nil, fmt.Errorf("unsupported barber filter %q", key)
		}
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, i))
		args = append(args, value)
		i++
	}

	return "WHERE " + strings.Join(clauses, " AND "), args, nil
}

func collectBarbers(rows pgx.Rows) ([]service.Barber, error) {
	barbers := make([]service.Barber, 0)
	for rows.Next() {
		barber, err := scanBarber(rows)
		if err != nil {
			return nil, fmt.Errorf("scan barber: %w", err)
		}
		barbers = append(barbers, barber)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate barbers: %w", err)
	}
	return barbers, nil
}

func scanBarber(row pgx.Row) (service.Barber, error) {
	var b service.Barber
	err := row.Scan(&b.ID, &b.TenantID, &b.Name, &b.Email, &b.Phone, &b.Specialties, &b.Active, &b.CreatedAt, &b.UpdatedAt)
	return b, err
}

// Ensure interface compliance.
var _ persistence.Repository[service.Barber] = (*PostgresRepository)(nil)
