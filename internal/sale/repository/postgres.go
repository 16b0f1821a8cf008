package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/platform/storeerr"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/sale/domain"
)

const saleColumns = `s.id, s.company_id, s.user_id, s.product_name, COALESCE(s.product_category, ''),
	s.value, s.commission_rate, s.commission_value,
	COALESCE(s.customer_name, ''), COALESCE(s.customer_email, ''), COALESCE(s.customer_phone, ''), COALESCE(s.notes, ''),
	s.status, s.sale_date, s.created_at, u.name`

// PostgresRepository stores sales in the sales table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a sale repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSale(row scanner) (*domain.Sale, error) {
	var (
		s      domain.Sale
		status string
	)
	err := row.Scan(&s.ID, &s.TenantID, &s.UserID, &s.ProductName, &s.ProductCategory,
		&s.Value, &s.CommissionRate, &s.CommissionValue,
		&s.CustomerName, &s.CustomerEmail, &s.CustomerPhone, &s.Notes,
		&status, &s.SaleDate, &s.CreatedAt, &s.SellerName)
	if err != nil {
		return nil, err
	}
	s.Status = domain.Status(status)
	return &s, nil
}

// List returns the tenant's sales, newest first.
func (r *PostgresRepository) List(ctx context.Context, tenantID, ownerID int64) ([]domain.Sale, error) {
	query := `SELECT ` + saleColumns + ` FROM sales s JOIN users u ON u.id = s.user_id WHERE s.company_id = $1`
	args := []any{tenantID}
	if ownerID != AnyOwner {
		query += ` AND s.user_id = $2`
		args = append(args, ownerID)
	}
	query += ` ORDER BY s.sale_date DESC, s.id DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storeerr.FromSQL("list sales", err)
	}
	defer rows.Close()

	out := []domain.Sale{}
	for rows.Next() {
		s, err := scanSale(rows)
		if err != nil {
			return nil, storeerr.FromSQL("list sales", err)
		}
		out = append(out, *s)
	}
	return out, storeerr.FromSQL("list sales", rows.Err())
}

// Create inserts the sale. The owner must belong to the tenant; otherwise storeerr.ErrConstraint.
func (r *PostgresRepository) Create(ctx context.Context, tenantID int64, n domain.NewSale) (*domain.Sale, error) {
	var saleDate sql.NullTime
	if !n.SaleDate.IsZero() {
		saleDate = sql.NullTime{Time: n.SaleDate, Valid: true}
	}
	s, err := scanSale(r.db.QueryRowContext(ctx, `
		WITH s AS (
			INSERT INTO sales (company_id, user_id, product_name, product_category, value, commission_rate,
				commission_value, customer_name, customer_email, customer_phone, notes, status, sale_date)
			SELECT $1, owner.id, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, COALESCE($13, now())
			FROM users owner WHERE owner.id = $2 AND owner.company_id = $1
			RETURNING *
		)
		SELECT `+saleColumns+` FROM s JOIN users u ON u.id = s.user_id`,
		tenantID, n.UserID, n.ProductName, nullString(n.ProductCategory), n.Value, n.CommissionRate,
		n.Commission(), nullString(n.CustomerName), nullString(n.CustomerEmail), nullString(n.CustomerPhone),
		nullString(n.Notes), string(n.Status), saleDate))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("create sale: %w: owner %d is not a member of tenant %d", storeerr.ErrConstraint, n.UserID, tenantID)
	}
	if err != nil {
		return nil, storeerr.FromSQL("create sale", err)
	}
	return s, nil
}

// Delete removes the sale within the tenant (and owner, unless AnyOwner).
func (r *PostgresRepository) Delete(ctx context.Context, tenantID, ownerID, id int64) error {
	query := `DELETE FROM sales WHERE id = $1 AND company_id = $2`
	args := []any{id, tenantID}
	if ownerID != AnyOwner {
		query += ` AND user_id = $3`
		args = append(args, ownerID)
	}
	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return storeerr.FromSQL("delete sale", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return storeerr.FromSQL("delete sale", err)
	}
	if n == 0 {
		return fmt.Errorf("delete sale: %w", storeerr.ErrNotFound)
	}
	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
