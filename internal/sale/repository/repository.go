package repository

import (
	"context"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/sale/domain"
)

// AnyOwner disables the owner filter on List and Delete.
const AnyOwner int64 = 0

// Repository defines persistence for sales. Every method is scoped to a tenant; ownerID narrows
// the scope further to one salesperson unless it is AnyOwner.
type Repository interface {
	// List returns the tenant's sales (optionally one owner's) ordered by sale date descending,
	// each carrying the owner's display name.
	List(ctx context.Context, tenantID, ownerID int64) ([]domain.Sale, error)
	// Create inserts the sale and returns it with server-assigned fields and the seller name.
	Create(ctx context.Context, tenantID int64, n domain.NewSale) (*domain.Sale, error)
	// Delete removes the sale. Returns storeerr.ErrNotFound if no row matched the scope.
	Delete(ctx context.Context, tenantID, ownerID, id int64) error
}
