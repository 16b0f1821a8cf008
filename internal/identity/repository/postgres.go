package repository

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/identity/domain"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/platform/storeerr"
)

const memberColumns = `u.id, u.company_id, u.name, u.email, u.role,
	COALESCE(to_char(u.birth_date, 'YYYY-MM-DD'), ''), COALESCE(u.profile_picture, ''), COALESCE(u.phone, ''),
	u.is_active, u.last_login, u.created_at, u.updated_at`

const tenantColumns = `c.id, c.name, c.subdomain, c.plan_type, c.max_users, c.is_active, c.created_at`

// returningColumns is memberColumns without the table alias, for INSERT/UPDATE ... RETURNING.
var returningColumns = strings.ReplaceAll(memberColumns, "u.", "")

// PostgresRepository stores members in the users table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a member repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMember(row scanner, extra ...any) (*domain.Identity, error) {
	var (
		m         domain.Identity
		role      string
		lastLogin sql.NullTime
	)
	dest := append([]any{&m.ID, &m.TenantID, &m.Name, &m.Email, &role,
		&m.BirthDate, &m.ProfilePicture, &m.Phone, &m.IsActive, &lastLogin, &m.CreatedAt, &m.UpdatedAt}, extra...)
	if err := row.Scan(dest...); err != nil {
		return nil, err
	}
	m.Role = domain.Role(role)
	if lastLogin.Valid {
		t := lastLogin.Time
		m.LastLogin = &t
	}
	return &m, nil
}

// GetByEmail returns the member with the given email joined to its tenant.
func (r *PostgresRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	var t domain.Tenant
	m, err := scanMember(r.db.QueryRowContext(ctx,
		`SELECT `+memberColumns+`, `+tenantColumns+`
		FROM users u JOIN companies c ON c.id = u.company_id
		WHERE lower(u.email) = $1`, domain.NormalizeEmail(email)),
		&t.ID, &t.Name, &t.Subdomain, &t.PlanType, &t.MaxUsers, &t.IsActive, &t.CreatedAt)
	if err != nil {
		return nil, storeerr.FromSQL("get member by email", err)
	}
	m.Tenant = &t
	return m, nil
}

// GetByID returns the member with id within the tenant.
func (r *PostgresRepository) GetByID(ctx context.Context, tenantID, id int64) (*domain.Identity, error) {
	m, err := scanMember(r.db.QueryRowContext(ctx,
		`SELECT `+memberColumns+` FROM users u WHERE u.id = $1 AND u.company_id = $2`, id, tenantID))
	if err != nil {
		return nil, storeerr.FromSQL("get member", err)
	}
	return m, nil
}

// ListByTenant returns the tenant roster ordered by name.
func (r *PostgresRepository) ListByTenant(ctx context.Context, tenantID int64) ([]domain.Member, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+memberColumns+` FROM users u WHERE u.company_id = $1 ORDER BY u.name ASC, u.id ASC`, tenantID)
	if err != nil {
		return nil, storeerr.FromSQL("list members", err)
	}
	defer rows.Close()

	out := []domain.Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, storeerr.FromSQL("list members", err)
		}
		out = append(out, *m)
	}
	return out, storeerr.FromSQL("list members", rows.Err())
}

// Create inserts a member into the tenant and returns the stored row.
func (r *PostgresRepository) Create(ctx context.Context, tenantID int64, n domain.NewMember) (*domain.Member, error) {
	m, err := scanMember(r.db.QueryRowContext(ctx,
		`INSERT INTO users (company_id, name, email, role, birth_date, profile_picture, phone, password_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING `+returningColumns,
		tenantID, n.Name, n.Email, string(n.Role), nullString(n.BirthDate), nullString(n.ProfilePicture),
		nullString(n.Phone), nullString(n.PasswordHash)))
	if err != nil {
		return nil, storeerr.FromSQL("create member", err)
	}
	return m, nil
}

// Update applies the set fields of u to the member and returns the stored row.
func (r *PostgresRepository) Update(ctx context.Context, tenantID, id int64, u domain.MemberUpdate) (*domain.Member, error) {
	cols := u.Columns()
	if len(cols) == 0 {
		return nil, fmt.Errorf("update member: %w: nothing to update", domain.ErrInvalid)
	}
	names := make([]string, 0, len(cols))
	for c := range cols {
		names = append(names, c)
	}
	sort.Strings(names)

	sets := make([]string, 0, len(names)+1)
	args := make([]any, 0, len(names)+2)
	for i, c := range names {
		sets = append(sets, fmt.Sprintf("%s = $%d", c, i+1))
		args = append(args, cols[c])
	}
	sets = append(sets, "updated_at = now()")
	args = append(args, id, tenantID)

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d AND company_id = $%d RETURNING %s`,
		strings.Join(sets, ", "), len(names)+1, len(names)+2, returningColumns)
	m, err := scanMember(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, storeerr.FromSQL("update member", err)
	}
	return m, nil
}

// Delete removes the member from the tenant. Returns storeerr.ErrNotFound if nothing matched.
func (r *PostgresRepository) Delete(ctx context.Context, tenantID, id int64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1 AND company_id = $2`, id, tenantID)
	return affectedOne("delete member", res, err)
}

// GetCredential returns the password hash for the member with the given email.
func (r *PostgresRepository) GetCredential(ctx context.Context, email string) (*Credential, error) {
	var (
		c    Credential
		hash sql.NullString
	)
	err := r.db.QueryRowContext(ctx,
		`SELECT id, company_id, email, password_hash, is_active FROM users WHERE lower(email) = $1`,
		domain.NormalizeEmail(email)).Scan(&c.UserID, &c.TenantID, &c.Email, &hash, &c.IsActive)
	if err != nil {
		return nil, storeerr.FromSQL("get credential", err)
	}
	c.PasswordHash = hash.String
	return &c, nil
}

// SetPasswordHash replaces the member's password hash.
func (r *PostgresRepository) SetPasswordHash(ctx context.Context, tenantID, id int64, hash string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE users SET password_hash = $1, updated_at = now() WHERE id = $2 AND company_id = $3`, hash, id, tenantID)
	return affectedOne("set password hash", res, err)
}

// TouchLastLogin records a successful sign-in.
func (r *PostgresRepository) TouchLastLogin(ctx context.Context, id int64, at time.Time) error {
	_, err := r.db.ExecContext(ctx, `UPDATE users SET last_login = $1 WHERE id = $2`, at, id)
	return storeerr.FromSQL("touch last login", err)
}

func affectedOne(op string, res sql.Result, err error) error {
	if err != nil {
		return storeerr.FromSQL(op, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeerr.FromSQL(op, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", op, storeerr.ErrNotFound)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
