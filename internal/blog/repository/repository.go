package repository

import (
	"context"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/blog/domain"
)

// Repository defines persistence for blog posts. Every method is scoped to a tenant.
type Repository interface {
	// List returns the tenant's posts newest first, each carrying the author's display name.
	List(ctx context.Context, tenantID int64) ([]domain.Post, error)
	Create(ctx context.Context, tenantID int64, n domain.NewPost) (*domain.Post, error)
	// Delete removes the post. Returns storeerr.ErrNotFound if nothing matched.
	Delete(ctx context.Context, tenantID, id int64) error
}
