package repo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/trimly-app/trimly-saas/domains/users/be/service"
	"github.com/trimly-app/trimly-saas/platform/go/persistence"
)

const userColumns = "id, tenant_id, email, full_name, role, auth_uid, created_at, updated_at"

// filterColumns maps public filter keys onto table columns. Unknown keys are
// rejected so filters can never smuggle raw SQL.
var filterColumns = map[string]string{
	persistence.FilterTenantID: "tenant_id",
	"email":                    "email",
	"authUid":                  "auth_uid",
	"role":                     "role",
}

// PostgresRepository implements the generic repository contract for staff
// accounts.
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

func (r *PostgresRepository) FindAll(ctx context.Context, filters persistence.Filters) ([]service.User, error) {
	where, args, err := buildWhere(filters, 1)
	if err != nil {
		return nil, err
	}

	rows, err := r.pool.Query(ctx, fmt.Sprintf(
		"SELECT %s FROM users %s ORDER BY created_at", userColumns, where), args...)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

func (r *PostgresRepository) FindByID(ctx context.Context, id uuid.UUID) (service.User, error) {
	row := r.pool.QueryRow(ctx, fmt.Sprintf(
		"SELECT %s FROM users WHERE id = $1", userColumns), id)

	user, err := scanUser(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return service.User{}, persistence.ErrRecordNotFound
		}
		return service.User{}, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (r *PostgresRepository) Create(ctx context.Context, data service.User) (service.User, error) {
	_, err := r.pool.Exec(ctx, fmt.Sprintf(
		"INSERT INTO users (%s) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)", userColumns),
		data.ID, data.TenantID, data.Email, data.FullName, string(data.Role), data.AuthUID, data.CreatedAt, data.UpdatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return service.User{}, service.ErrConflict
		}
		return service.User{}, fmt.Errorf("insert user: %w", err)
	}
	return data, nil
}

func (r *PostgresRepository) Update(ctx context.Context, id uuid.UUID, data service.User) (service.User, error) {
	tag, err := r.pool.Exec(ctx,
		"UPDATE users SET email = $2, full_name = $3, role = $4, auth_uid = $5, updated_at = $6 WHERE id = $1",
		id, data.Email, data.FullName, string(data.Role), data.AuthUID, data.UpdatedAt)
	if err != nil {
		return service.User{}, fmt.Errorf("update user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return service.User{}, persistence.ErrRecordNotFound
	}
	return data, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx, "DELETE FROM users WHERE id = $1", id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return persistence.ErrRecordNotFound
	}
	return nil
}

func (r *PostgresRepository) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	if err := r.pool.QueryRow(ctx, "SELECT EXISTS (SELECT 1 FROM users WHERE id = $1)", id).Scan(&exists); err != nil {
		return false, fmt.Errorf("check user exists: %w", err)
	}
	return exists, nil
}

func (r *PostgresRepository) Search(ctx context.Context, query string, opts persistence.SearchOptions) ([]service.User, error) {
	where, args, err := buildWhere(opts.Filters, 2)
	if err != nil {
		return nil, err
	}

	clause := "WHERE (email ILIKE $1 OR full_name ILIKE $1)"
	if where != "" {
		clause += " AND " + strings.TrimPrefix(where, "WHERE ")
	}
	args = append([]any{"%" + query + "%"}, args...)

	sql := fmt.Sprintf("SELECT %s FROM users %s ORDER BY full_name", userColumns, clause)
	if opts.Limit > 0 {
		sql += fmt.Sprintf(" LIMIT %d", opts.Limit)
	}
	if opts.Offset > 0 {
		sql += fmt.Sprintf(" OFFSET %d", opts.Offset)
	}

	rows, err := r.pool.Query(ctx, sql, args...)
	if err != nil {
		return nil, fmt.Errorf("search users: %w", err)
	}
	defer rows.Close()

	return collectUsers(rows)
}

func (r *PostgresRepository) Count(ctx context.Context, filters persistence.Filters) (int64, error) {
	where, args, err := buildWhere(filters, 1)
	if err != nil {
		return 0, err
	}

	var total int64
	if err := r.pool.QueryRow(ctx, fmt.Sprintf("SELECT count(*) FROM users %s", where), args...).Scan(&total); err != nil {
		return 0, fmt.Errorf("count users: %w", err)
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
			return "", nil, fmt.Errorf("unsupported user filter %q", key)
		}
		clauses = append(clauses, fmt.Sprintf("%s = $%d", column, i))
		args = append(args, value)
		i++
	}

	return "WHERE " + strings.Join(clauses, " AND "), args, nil
}

func collectUsers(rows pgx.Rows) ([]service.User, error) {
	users := make([]service.User, 0)
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, user)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate users: %w", err)
	}
	return users, nil
}

func scanUser(row pgx.Row) (service.User, error) {
	var (
		u    service.User
		role string
	)
	err := row.Scan(&u.ID, &u.TenantID, &u.Email, &u.FullName, &role, &u.AuthUID, &u.CreatedAt, &u.UpdatedAt)
	u.Role = service.Role(role)
	return u, err
}

// Ensure interface compliance.
var _ persistence.Repository[service.User] = (*PostgresRepository)(nil)
