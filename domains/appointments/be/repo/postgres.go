package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trimly-app/trimly-saas/domains/appointments/be/service"
	"github.com/trimly-app/trimly-saas/platform/go/persistence"
)

const appointmentColumns = "id, tenant_id, barber_id, service_id, customer_name, customer_email, starts_at, ends_at, status, notes, created_at, updated_at"

// filterColumns maps public filter keys onto table columns. Unknown keys are
// rejected so filters can never smuggle raw SQL.
var filterColumns = map[string]string{
	persistence.FilterTenantID: "tenant_id",
	"barberId":                 "barber_id",
	"serviceId":                "service_id",
	"status":                   "status",
}

// PostgresRepository implements the generic repository contract for
// appointments, plus the range count used by monthly quota checks.
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

func (r *PostgresRepository) FindAll(ctx context.Context, filters persistence.Filters) ([]service.Appointment, error) {
	where, args, err := buildWhere(filters, 1)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		"SELECT %s FROM appointments %s ORDER BY starts_at", appointmentColumns, where), args...)
	if err != nil {
		return nil, fmt.Errorf("list appointments: %w", err)
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (service.Appointment, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(
		"SELECT %s FROM appointments WHERE id = $1", appointmentColumns), id)

	appt, err := scanAppointment(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.Appointment{}, persistence.ErrRecordNotFound
		}
		return service.Appointment{}, fmt.Errorf("get appointment: %w", err)
	}
	return appt, nil
}

func (r *PostgresRepository) Create(ctx context.Context, data service.Appointment) (service.Appointment, error) {
	_, err := r.pool.Exec(ctx, fmt.Sprintf(
		"INSERT INTO appointments (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)", appointmentColumns),
		data.ID, data.TenantID, data.BarberID, data.ServiceID, data.CustomerName, data.CustomerEmail,
		data.StartsAt, data.EndsAt, string(data.Status), data.Notes, data.CreatedAt, data.UpdatedAt)
	if err != nil {
		return service.Appointment{}, fmt.Errorf("insert appointment: %w", err)
	}
	return data, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id uuid.UUID, data service.Appointment) (service.Appointment, error) {
	tag, err := r.pool.Exec(ctx,
		"UPDATE appointments SET barber_id = $2, service_id = $3, customer_name = $4, customer_email = $5, starts_at = $6, ends_at = $7, status = $8, notes = $9, updated_at = $10 WHERE id = $1",
		id, data.BarberID, data.ServiceID, data.CustomerName, data.CustomerEmail,
		data.StartsAt, data.EndsAt, string(data.Status), data.Notes, data.UpdatedAt)
	if err != nil {
		return service.Appointment{}, fmt.Errorf("update appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.Appointment{}, persistence.ErrRecordNotFound
	}
	return data, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM appointments WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete appointment: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return persistence.ErrRecordNotFound
	}
	return nil
}

func (r *PostgresRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM appointments WHERE id = $1)", id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check appointment exists: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) Search(ctx context.Context, query string, opts persistence.SearchOptions) ([]service.Appointment, error) {
	where, args, err := buildWhere(opts.Filters, 2)
	if err != nil {
		return nil, err
	}

	clause := "WHERE (customer_name ILIKE $1 OR customer_email ILIKE $1)"
	if where != "" {
		clause += " AND " + strings.TrimPrefix(where, "WHERE ")
	}
	args = append([]any{"%" + query + "%"}, args...)

	sql := fmt.Sprintf("SELECT %s FROM appointments %s ORDER BY starts_at", appointmentColumns, clause)
	if opts.Limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	if opts.Offset > 0 {
		sql += fmt.Sprintf(" OFFSET %d", opts.Offset)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("search appointments: %w", err)
	}
	defer rows.Close()

	return collectAppointments(rows)
}

func (r *PostgresRepository) Count(ctx context.Context, filters persistence.Filters) (int64, error) {
	where, args, err := buildWhere(filters, 1)
	if err != nil {
		return 0, err
	}

	var total int64
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM appointments %s", where), args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count appointments: %w", err)
	}
	return total, nil
}

// CountInRange counts a tenant's non-cancelled appointments starting inside
// [from, to). Backs the monthly quota check.
func (r *PostgresRepository) CountInRange(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (int64, error) {
	var total int64
	err := r.pool.QueryRow(ctx,
		"SELECT count(*) FROM appointments WHERE tenant_id = $1 AND starts_at >= $2 AND starts_at < $3 AND status <> $4",
		tenantID, from, to, string(service.StatusCancelled)).Scan(&total)
	if err != nil {
		return 0, fmt.Errorf("count appointments in range: %w", err)
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
			return "", nil, fmt.Errorf("unsupported appointment filter %q", key)
		}
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, i))
		args = append(args, value)
		i++
	}

	return "WHERE " + strings.Join(clauses, " AND "), args, nil
}

func collectAppointments(rows pgx.Rows) ([]service.Appointment, error) {
	appts := make([]service.Appointment, 0)
	for rows.Next() {
		appt, err := scanAppointment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan appointment: %w", err)
		}
		appts = append(appts, appt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate appointments: %w", err)
	}
	return appts, nil
}

func scanAppointment(row pgx.Row) (service.Appointment, error) {
	var (
		a      service.Appointment
		status string
	)
	err := row.Scan(&a.ID, &a.TenantID, &a.BarberID, &a.ServiceID, &a.CustomerName, &a.CustomerEmail,
		&a.StartsAt, &a.EndsAt, &status, &a.Notes, &a.CreatedAt, &a.UpdatedAt)
	a.Status = service.Status(status)
	return a, err
}

// Ensure interface compliance.
var (
	_ persistence.Repository[service.Appointment] = (*PostgresRepository)(nil)
	_ service.RangeCounter                        = (*PostgresRepository)(nil)
)
