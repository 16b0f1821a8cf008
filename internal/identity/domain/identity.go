package domain

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// ErrInvalid wraps every member validation failure.
var ErrInvalid = errors.New("invalid member")

var validate = validator.New()

// Role is a member's role within their tenant.
type Role string

const (
	// RoleManager sees every sale in the tenant and manages posts and members.
	RoleManager Role = "gestor"
	// RoleSalesperson sees only their own sales.
	RoleSalesperson Role = "vendedor"
)

// Valid reports whether r is a known role.
func (r Role) Valid() bool {
	return validate.Var(string(r), "required,oneof=gestor vendedor") == nil
}

// Tenant is the company a member belongs to. Read-only reference data.
type Tenant struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	Subdomain string    `json:"subdomain,omitempty"`
	PlanType  string    `json:"plan_type,omitempty"`
	MaxUsers  int       `json:"max_users,omitempty"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

// Identity is a member of a tenant. The JSON shape doubles as the persisted demo session record,
// which embeds the tenant under "companies".
type Identity struct {
	ID             int64      `json:"id"`
	TenantID       int64      `json:"company_id"`
	Name           string     `json:"name"`
	Email          string     `json:"email"`
	Role           Role       `json:"role"`
	BirthDate      string     `json:"birth_date,omitempty"`
	ProfilePicture string     `json:"profile_picture,omitempty"`
	Phone          string     `json:"phone,omitempty"`
	IsActive       bool       `json:"is_active"`
	LastLogin      *time.Time `json:"last_login,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
	Tenant         *Tenant    `json:"companies,omitempty"`
}

// Member is an Identity enumerated as a roster entry.
type Member = Identity

// IsManager reports whether the identity holds the manager role.
func (i *Identity) IsManager() bool {
	return i != nil && i.Role == RoleManager
}

// NormalizeEmail lower-cases and trims an email for exact-match lookups.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// NewMember is the input for provisioning a member in a tenant.
type NewMember struct {
	Name           string
	Email          string
	Role           Role
	BirthDate      string
	ProfilePicture string
	Phone          string
	// Password is optional; when set and the store manages credentials it is hashed before insert.
	Password string
	// PasswordHash is filled by the gateway, never by callers.
	PasswordHash string
}

// Validate normalizes and checks the new member. Role defaults to salesperson.
func (n *NewMember) Validate() error {
	n.Name = strings.TrimSpace(n.Name)
	n.Email = NormalizeEmail(n.Email)
	if n.Name == "" {
		return fmt.Errorf("%w: name is required", ErrInvalid)
	}
	if err := validateEmail(n.Email); err != nil {
		return err
	}
	if n.Role == "" {
		n.Role = RoleSalesperson
	}
	if !n.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalid, n.Role)
	}
	return validateBirthDate(n.BirthDate)
}

// MemberUpdate is a partial update; nil fields are left unchanged.
type MemberUpdate struct {
	Name           *string
	Email          *string
	BirthDate      *string
	ProfilePicture *string
	Phone          *string
	Role           *Role
	IsActive       *bool
}

// Empty reports whether no field is set.
func (u MemberUpdate) Empty() bool {
	return u.Name == nil && u.Email == nil && u.BirthDate == nil && u.ProfilePicture == nil &&
		u.Phone == nil && u.Role == nil && u.IsActive == nil
}

// DisplayOnly reports whether the update touches only self-editable display fields.
func (u MemberUpdate) DisplayOnly() bool {
	return u.Role == nil && u.IsActive == nil
}

// Validate normalizes and checks the set fields.
func (u *MemberUpdate) Validate() error {
	if u.Empty() {
		return fmt.Errorf("%w: nothing to update", ErrInvalid)
	}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name == "" {
			return fmt.Errorf("%w: name cannot be empty", ErrInvalid)
		}
		u.Name = &name
	}
	if u.Email != nil {
		email := NormalizeEmail(*u.Email)
		if err := validateEmail(email); err != nil {
			return err
		}
		u.Email = &email
	}
	if u.BirthDate != nil {
		if err := validateBirthDate(*u.BirthDate); err != nil {
			return err
		}
	}
	if u.Role != nil && !u.Role.Valid() {
		return fmt.Errorf("%w: unknown role %q", ErrInvalid, *u.Role)
	}
	return nil
}

// Columns returns the set fields keyed by column name. Empty optional strings map to nil (SQL NULL).
func (u MemberUpdate) Columns() map[string]any {
	cols := map[string]any{}
	if u.Name != nil {
		cols["name"] = *u.Name
	}
	if u.Email != nil {
		cols["email"] = *u.Email
	}
	if u.BirthDate != nil {
		cols["birth_date"] = nullable(*u.BirthDate)
	}
	if u.ProfilePicture != nil {
		cols["profile_picture"] = nullable(*u.ProfilePicture)
	}
	if u.Phone != nil {
		cols["phone"] = nullable(*u.Phone)
	}
	if u.Role != nil {
		cols["role"] = string(*u.Role)
	}
	if u.IsActive != nil {
		cols["is_active"] = *u.IsActive
	}
	return cols
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func validateEmail(email string) error {
	if email == "" {
		return fmt.Errorf("%w: email is required", ErrInvalid)
	}
	if err := validate.Var(email, "email"); err != nil {
		return fmt.Errorf("%w: malformed email %q", ErrInvalid, email)
	}
	return nil
}

func validateBirthDate(s string) error {
	if s == "" {
		return nil
	}
	if err := validate.Var(s, "datetime="+time.DateOnly); err != nil {
		return fmt.Errorf("%w: birth date must be YYYY-MM-DD", ErrInvalid)
	}
	return nil
}
