package engine

import (
	"context"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/identity/domain"
)

// Sales scopes returned by the policy.
const (
	SalesScopeAll = "all"
	SalesScopeOwn = "own"
)

// Decision holds what an actor may do within their tenant.
type Decision struct {
	SalesScope       string
	CanCreatePost    bool
	CanDeletePost    bool
	CanManageMembers bool
	// CanUpdateMember is only meaningful when a target was given.
	CanUpdateMember bool
}

// SeesAllSales reports whether the sales filter may omit the owner.
func (d Decision) SeesAllSales() bool {
	return d.SalesScope == SalesScopeAll
}

// MemberChange describes a pending member update for the can_update_member rule.
type MemberChange struct {
	Target      *domain.Identity
	DisplayOnly bool
}

// Evaluator evaluates the access policy for an actor.
type Evaluator interface {
	// Evaluate returns the actor's decision. change may be nil when no member update is pending.
	// On error the returned Decision denies everything and scopes sales to the actor.
	Evaluate(ctx context.Context, actor *domain.Identity, change *MemberChange) (Decision, error)
}
