// Package rbac turns access policy decisions into errors the gateway returns to callers.
package rbac

import (
	"context"
	"errors"
	"fmt"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/identity/domain"
	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/policy/engine"
)

// ErrForbidden is returned when the actor's role does not allow the operation.
var ErrForbidden = errors.New("forbidden")

// Capability names a manager-only capability in the decision.
type Capability string

const (
	CreatePost    Capability = "can_create_post"
	DeletePost    Capability = "can_delete_post"
	ManageMembers Capability = "can_manage_members"
)

// RequireManager ensures the actor holds capability. Policy evaluation failures deny.
func RequireManager(ctx context.Context, ev engine.Evaluator, actor *domain.Identity, capability Capability) error {
	d, err := ev.Evaluate(ctx, actor, nil)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrForbidden, capability, err)
	}
	var ok bool
	switch capability {
	case CreatePost:
		ok = d.CanCreatePost
	case DeletePost:
		ok = d.CanDeletePost
	case ManageMembers:
		ok = d.CanManageMembers
	}
	if !ok {
		return fmt.Errorf("%w: %s requires the manager role", ErrForbidden, capability)
	}
	return nil
}

// RequireMemberUpdate ensures the actor may apply update to target: managers may change anyone
// in their tenant, members only their own display fields.
func RequireMemberUpdate(ctx context.Context, ev engine.Evaluator, actor, target *domain.Identity, update domain.MemberUpdate) error {
	d, err := ev.Evaluate(ctx, actor, &engine.MemberChange{Target: target, DisplayOnly: update.DisplayOnly()})
	if err != nil {
		return fmt.Errorf("%w: update member: %v", ErrForbidden, err)
	}
	if !d.CanUpdateMember {
		return fmt.Errorf("%w: cannot update member %d", ErrForbidden, target.ID)
	}
	return nil
}

// SalesOwnerFilter returns the owner id to filter sales by: tenant-wide (0, the sale repository's AnyOwner) when the policy grants
// the "all" scope, the actor otherwise. Evaluation failures fall back to the actor.
func SalesOwnerFilter(ctx context.Context, ev engine.Evaluator, actor *domain.Identity) int64 {
	d, err := ev.Evaluate(ctx, actor, nil)
	if err == nil && d.SeesAllSales() {
		return 0
	}
	return actor.ID
}
