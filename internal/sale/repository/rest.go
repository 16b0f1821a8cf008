package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/platform/postgrest"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/platform/storeerr"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/sale/domain"
)

const restSelect = "*,users!sales_user_id_fkey(name)"

// RESTRepository reads and writes sales through a hosted PostgREST endpoint.
type RESTRepository struct {
	client *postgrest.Client
	now    func() time.Time
}

// NewRESTRepository returns a sale repository backed by client.
func NewRESTRepository(client *postgrest.Client) *RESTRepository {
	return &RESTRepository{client: client, now: time.Now}
}

type restSale struct {
	domain.Sale
	Users *struct {
		Name string `json:"name"`
	} `json:"users"`
}

func (r restSale) toDomain() domain.Sale {
	s := r.Sale
	if r.Users != nil {
		s.SellerName = r.Users.Name
	}
	return s
}

// List returns the tenant's sales, newest first.
func (r *RESTRepository) List(ctx context.Context, tenantID, ownerID int64) ([]domain.Sale, error) {
	q := r.client.From("sales").Select(restSelect).Eq("company_id", tenantID)
	if ownerID != AnyOwner {
		q = q.Eq("user_id", ownerID)
	}
	var rows []restSale
	if err := q.Order("sale_date", false).Execute(ctx, &rows); err != nil {
		return nil, fmt.Errorf("list sales: %w", err)
	}
	out := make([]domain.Sale, 0, len(rows))
	for _, row := range rows {
		out = append(out, row.toDomain())
	}
	return out, nil
}

// Create inserts the sale and returns it with the seller name embedded.
func (r *RESTRepository) Create(ctx context.Context, tenantID int64, n domain.NewSale) (*domain.Sale, error) {
	saleDate := n.SaleDate
	if saleDate.IsZero() {
		saleDate = r.now()
	}
	body := map[string]any{
		"company_id":       tenantID,
		"user_id":          n.UserID,
		"product_name":     n.ProductName,
		"value":            n.Value,
		"commission_rate":  n.CommissionRate,
		"commission_value": n.Commission(),
		"status":           string(n.Status),
		"sale_date":        saleDate.UTC().Format(time.RFC3339Nano),
	}
	for k, v := range map[string]string{
		"product_category": n.ProductCategory,
		"customer_name":    n.CustomerName,
		"customer_email":   n.CustomerEmail,
		"customer_phone":   n.CustomerPhone,
		"notes":            n.Notes,
	} {
		if v != "" {
			body[k] = v
		}
	}

	var rows []restSale
	if err := r.client.From("sales").Select(restSelect).Insert(ctx, body, &rows); err != nil {
		return nil, fmt.Errorf("create sale: %w", err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("create sale: %w", storeerr.ErrNotFound)
	}
	s := rows[0].toDomain()
	return &s, nil
}

// Delete removes the sale within the tenant (and owner, unless AnyOwner).
func (r *RESTRepository) Delete(ctx context.Context, tenantID, ownerID, id int64) error {
	q := r.client.From("sales").Select("id").Eq("id", id).Eq("company_id", tenantID)
	if ownerID != AnyOwner {
		q = q.Eq("user_id", ownerID)
	}
	var rows []struct {
		ID int64 `json:"id"`
	}
	if err := q.Delete(ctx, &rows); err != nil {
		return fmt.Errorf("delete sale: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("delete sale: %w", storeerr.ErrNotFound)
	}
	return nil
}
