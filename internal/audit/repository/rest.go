package repository

import (
	"context"
	"fmt"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/audit/domain"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/platform/postgrest"
)

// RESTRepository writes audit logs through a hosted PostgREST endpoint.
type RESTRepository struct {
	client *postgrest.Client
}

// NewRESTRepository returns an audit log repository backed by client.
func NewRESTRepository(client *postgrest.Client) *RESTRepository {
	return &RESTRepository{client: client}
}

// Create inserts the audit log.
func (r *RESTRepository) Create(ctx context.Context, a *domain.AuditLog) error {
	if err := r.client.From("audit_logs").Select("id").Insert(ctx, a, nil); err != nil {
		return fmt.Errorf("create audit log: %w", err)
	}
	return nil
}

// ListByTenant returns the tenant's most recent entries, newest first.
func (r *RESTRepository) ListByTenant(ctx context.Context, tenantID int64, limit int) ([]domain.AuditLog, error) {
	var rows []domain.AuditLog
	err := r.client.From("audit_logs").Select("*").Eq("company_id", tenantID).
		Order("created_at", false).Limit(limit).Execute(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("list audit logs: %w", err)
	}
	return rows, nil
}
