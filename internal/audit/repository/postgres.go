package repository

import (
	"context"
	"database/sql"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/audit/domain"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/platform/storeerr"
)

// PostgresRepository stores audit logs in the audit_logs table.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns an audit log repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create persists the audit log. The audit log must have ID set.
func (r *PostgresRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	var newValues any
	if len(a.NewValues) > 0 {
		newValues = string(a.NewValues)
	}
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO audit_logs (id, company_id, user_id, action, table_name, record_id, new_values, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		a.ID, a.TenantID, nullInt64(a.UserID), a.Action, a.Table, nullInt64(a.RecordID), newValues, a.CreatedAt)
	if err != nil {
		return storeerr.FromSQL("create audit log", err)
	}
	return nil
}

// ListByTenant returns the tenant's most recent entries, newest first.
func (r *PostgresRepository) ListByTenant(ctx context.Context, tenantID int64, limit int) ([]domain.AuditLog, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, company_id, user_id, action, table_name, record_id, new_values, created_at
		FROM audit_logs WHERE company_id = $1
		ORDER BY created_at DESC LIMIT $2`, tenantID, limit)
	if err != nil {
		return nil, storeerr.FromSQL("list audit logs", err)
	}
	defer rows.Close()

	var out []domain.AuditLog
	for rows.Next() {
		var (
			a                domain.AuditLog
			userID, recordID sql.NullInt64
			newValues        []byte
		)
		if err := rows.Scan(&a.ID, &a.TenantID, &userID, &a.Action, &a.Table, &recordID, &newValues, &a.CreatedAt); err != nil {
			return nil, storeerr.FromSQL("scan audit log", err)
		}
		a.UserID = userID.Int64
		a.RecordID = recordID.Int64
		if len(newValues) > 0 {
			a.NewValues = newValues
		}
		out = append(out, a)
	}
	if err := rows.Err(); err != nil {
		return nil, storeerr.FromSQL("list audit logs", err)
	}
	return out, nil
}

func nullInt64(v int64) sql.NullInt64 {
	return sql.NullInt64{Int64: v, Valid: v != 0}
}
