package repository

import (
	"context"
	"time"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/identity/domain"
)

// Repository defines persistence for tenant members. Every roster method takes the tenant id;
// a member of another tenant is reported as storeerr.ErrNotFound.
type Repository interface {
	// GetByEmail returns the member with the given (normalized) email and its tenant.
	GetByEmail(ctx context.Context, email string) (*domain.Identity, error)
	GetByID(ctx context.Context, tenantID, id int64) (*domain.Identity, error)
	// ListByTenant returns the roster ordered by name ascending.
	ListByTenant(ctx context.Context, tenantID int64) ([]domain.Member, error)
	Create(ctx context.Context, tenantID int64, m domain.NewMember) (*domain.Member, error)
	Update(ctx context.Context, tenantID, id int64, u domain.MemberUpdate) (*domain.Member, error)
	Delete(ctx context.Context, tenantID, id int64) error
}

// Credential is the password material of a member, only available from the self-hosted store.
type Credential struct {
	UserID       int64
	TenantID     int64
	Email        string
	PasswordHash string
	IsActive     bool
}

// CredentialRepository reads and writes password hashes on users.
type CredentialRepository interface {
	GetCredential(ctx context.Context, email string) (*Credential, error)
	SetPasswordHash(ctx context.Context, tenantID, id int64, hash string) error
	TouchLastLogin(ctx context.Context, id int64, at time.Time) error
}
