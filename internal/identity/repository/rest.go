package repository

import (
	"context"
	"fmt"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/identity/domain"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/platform/postgrest"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/platform/storeerr"
)

// RESTRepository reads and writes members through a hosted PostgREST endpoint.
// Credentials live in the hosted auth service, so it does not implement CredentialRepository.
type RESTRepository struct {
	client *postgrest.Client
}

// NewRESTRepository returns a member repository backed by client.
func NewRESTRepository(client *postgrest.Client) *RESTRepository {
	return &RESTRepository{client: client}
}

// GetByEmail returns the member with the given email with its tenant embedded.
func (r *RESTRepository) GetByEmail(ctx context.Context, email string) (*domain.Identity, error) {
	var rows []domain.Identity
	err := r.client.From("users").
		Select("*,companies(*)").
		Eq("email", domain.NormalizeEmail(email)).
		Limit(1).
		Execute(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("get member by email: %w", err)
	}
	return first("get member by email", rows)
}

// GetByID returns the member with id within the tenant.
func (r *RESTRepository) GetByID(ctx context.Context, tenantID, id int64) (*domain.Identity, error) {
	var rows []domain.Identity
	err := r.client.From("users").Select("*").Eq("id", id).Eq("company_id", tenantID).Execute(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("get member: %w", err)
	}
	return first("get member", rows)
}

// ListByTenant returns the tenant roster ordered by name.
func (r *RESTRepository) ListByTenant(ctx context.Context, tenantID int64) ([]domain.Member, error) {
	rows := []domain.Member{}
	err := r.client.From("users").Select("*").Eq("company_id", tenantID).Order("name", true).Execute(ctx, &rows)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return rows, nil
}

// Create inserts a member into the tenant and returns the stored row.
func (r *RESTRepository) Create(ctx context.Context, tenantID int64, n domain.NewMember) (*domain.Member, error) {
	body := map[string]any{
		"company_id": tenantID,
		"name":       n.Name,
		"email":      n.Email,
		"role":       string(n.Role),
	}
	setIfNotEmpty(body, "birth_date", n.BirthDate)
	setIfNotEmpty(body, "profile_picture", n.ProfilePicture)
	setIfNotEmpty(body, "phone", n.Phone)

	var rows []domain.Member
	if err := r.client.From("users").Select("*").Insert(ctx, body, &rows); err != nil {
		return nil, fmt.Errorf("create member: %w", err)
	}
	return first("create member", rows)
}

// Update applies the set fields of u and returns the stored row.
func (r *RESTRepository) Update(ctx context.Context, tenantID, id int64, u domain.MemberUpdate) (*domain.Member, error) {
	cols := u.Columns()
	if len(cols) == 0 {
		return nil, fmt.Errorf("update member: %w: nothing to update", domain.ErrInvalid)
	}
	var rows []domain.Member
	err := r.client.From("users").Select("*").Eq("id", id).Eq("company_id", tenantID).Update(ctx, cols, &rows)
	if err != nil {
		return nil, fmt.Errorf("update member: %w", err)
	}
	return first("update member", rows)
}

// Delete removes the member from the tenant. Returns storeerr.ErrNotFound if nothing matched.
func (r *RESTRepository) Delete(ctx context.Context, tenantID, id int64) error {
	var rows []struct {
		ID int64 `json:"id"`
	}
	err := r.client.From("users").Select("id").Eq("id", id).Eq("company_id", tenantID).Delete(ctx, &rows)
	if err != nil {
		return fmt.Errorf("delete member: %w", err)
	}
	if len(rows) == 0 {
		return fmt.Errorf("delete member: %w", storeerr.ErrNotFound)
	}
	return nil
}

func first[T any](op string, rows []T) (*T, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("%s: %w", op, storeerr.ErrNotFound)
	}
	return &rows[0], nil
}

func setIfNotEmpty(body map[string]any, key, value string) {
	if value != "" {
		body[key] = value
	}
}
