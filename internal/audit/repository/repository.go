package repository

import (
	"context"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/audit/domain"
)

// Repository defines persistence for audit logs.
type Repository interface {
	Create(ctx context.Context, a *domain.AuditLog) error
	// ListByTenant returns the tenant's most recent entries, newest first.
	ListByTenant(ctx context.Context, tenantID int64, limit int) ([]domain.AuditLog, error)
}
