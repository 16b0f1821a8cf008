package engine

import (
	"context"
	"fmt"

	"github.com/open-policy-agent/opa/v1/ast"
	"github.com/open-policy-agent/opa/v1/rego"

	"github.com/joaop0375/saas-de-vendas-multi-tenant/internal/identity/domain"
)

const decisionQuery = "data.salesteam.access.decision"

// DefaultRegoPolicy grants managers the tenant-wide view and member administration;
// salespeople see their own sales and may edit their own display fields.
const DefaultRegoPolicy = `package salesteam.access

default sales_scope := "own"

default can_create_post := false

default can_delete_post := false

default can_manage_members := false

default can_update_member := false

is_manager if input.actor.role == "gestor"

same_tenant if input.target.company_id == input.actor.company_id

sales_scope := "all" if is_manager

can_create_post if is_manager

can_delete_post if is_manager

can_manage_members if is_manager

can_update_member if {
	is_manager
	same_tenant
}

can_update_member if {
	same_tenant
	input.target.id == input.actor.id
	input.update.display_only
}

decision := {
	"sales_scope": sales_scope,
	"can_create_post": can_create_post,
	"can_delete_post": can_delete_post,
	"can_manage_members": can_manage_members,
	"can_update_member": can_update_member,
}
`

// OPAEvaluator evaluates the access policy in-process with OPA Rego. The query is prepared once.
type OPAEvaluator struct {
	query rego.PreparedEvalQuery
}

// NewOPAEvaluator compiles the given Rego modules (DefaultRegoPolicy when none) and prepares
// the decision query. Modules must define package salesteam.access.
func NewOPAEvaluator(ctx context.Context, policies ...string) (*OPAEvaluator, error) {
	if len(policies) == 0 {
		policies = []string{DefaultRegoPolicy}
	}
	modules := make(map[string]string, len(policies))
	for i, p := range policies {
		modules[fmt.Sprintf("policy_%d.rego", i)] = p
	}
	compiler, err := ast.CompileModules(modules)
	if err != nil {
		return nil, fmt.Errorf("compile policies: %w", err)
	}
	q, err := rego.New(rego.Query(decisionQuery), rego.Compiler(compiler)).PrepareForEval(ctx)
	if err != nil {
		return nil, fmt.Errorf("prepare policy query: %w", err)
	}
	return &OPAEvaluator{query: q}, nil
}

// HealthCheck evaluates the policy for a minimal input.
func (e *OPAEvaluator) HealthCheck(ctx context.Context) error {
	_, err := e.Evaluate(ctx, &domain.Identity{ID: 1, TenantID: 1, Role: domain.RoleSalesperson}, nil)
	return err
}

// Evaluate runs the decision query for actor and the optional member change.
func (e *OPAEvaluator) Evaluate(ctx context.Context, actor *domain.Identity, change *MemberChange) (Decision, error) {
	if actor == nil {
		return denyAll(), fmt.Errorf("policy: actor is required")
	}
	rs, err := e.query.Eval(ctx, rego.EvalInput(buildInput(actor, change)))
	if err != nil {
		return denyAll(), fmt.Errorf("policy: eval: %w", err)
	}
	if len(rs) == 0 || len(rs[0].Expressions) == 0 {
		return denyAll(), fmt.Errorf("policy: query returned no result")
	}
	obj, ok := rs[0].Expressions[0].Value.(map[string]interface{})
	if !ok {
		return denyAll(), fmt.Errorf("policy: unexpected decision type %T", rs[0].Expressions[0].Value)
	}
	d := denyAll()
	if v, ok := obj["sales_scope"].(string); ok && (v == SalesScopeAll || v == SalesScopeOwn) {
		d.SalesScope = v
	}
	d.CanCreatePost, _ = obj["can_create_post"].(bool)
	d.CanDeletePost, _ = obj["can_delete_post"].(bool)
	d.CanManageMembers, _ = obj["can_manage_members"].(bool)
	d.CanUpdateMember, _ = obj["can_update_member"].(bool)
	return d, nil
}

func buildInput(actor *domain.Identity, change *MemberChange) map[string]interface{} {
	input := map[string]interface{}{
		"actor": map[string]interface{}{
			"id":         actor.ID,
			"company_id": actor.TenantID,
			"role":       string(actor.Role),
			"is_active":  actor.IsActive,
		},
	}
	if change != nil && change.Target != nil {
		input["target"] = map[string]interface{}{
			"id":         change.Target.ID,
			"company_id": change.Target.TenantID,
		}
		input["update"] = map[string]interface{}{
			"display_only": change.DisplayOnly,
		}
	}
	return input
}

func denyAll() Decision {
	return Decision{SalesScope: SalesScopeOwn}
}
