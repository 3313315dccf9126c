package authz

import (
	"context"
	"fmt"
)

// OverrideSource loads the active permission override of a user. It returns
// nil, nil when the user has no active override.
type OverrideSource interface {
	ActiveOverride(ctx context.Context, userID uint64) (*Matrix, error)
}

// Request is a single authorization question.
type Request struct {
	Action   Action
	Category Category
	Facts    Facts
	// Collection marks a listing. Ownership narrowing is then applied by the
	// caller as a query filter (see TaskListScope) instead of per resource.
	Collection bool
}

// Evaluate decides a request against an already loaded matrix. It performs no
// I/O and is safe for concurrent use.
func Evaluate(p Principal, tc TenantContext, m Matrix, req Request) Decision {
	if p.IsSuperAdmin() && req.Category != CategoryTenant {
		return deny(ErrSuperAdminScopeViolation)
	}

	// Tenant management spans tenants and stays with super admins whatever
	// the matrix says.
	if req.Category == CategoryTenant && !p.IsSuperAdmin() {
		return deny(&DeniedError{
			Reason:  ReasonInsufficientCapability,
			Message: "tenant management is restricted to super admins",
		})
	}

	if target := req.Facts.TargetUser; target != nil && target.Role == RoleSuperAdmin && !p.IsSuperAdmin() {
		return deny(ErrCannotManageSuperAdmin)
	}

	if req.Category != CategoryTenant && crossesTenant(tc, req.Facts) {
		return deny(ErrTenantAccessDenied)
	}

	if act := capabilityAction(req); !m.Allows(req.Category, act) {
		return deny(&DeniedError{
			Reason:  ReasonInsufficientCapability,
			Message: fmt.Sprintf("missing %s capability on %s", act, req.Category),
		})
	}

	if p.Role == RoleOrgAdmin {
		return allow()
	}

	if !narrowingSatisfied(p, req) {
		return deny(ErrNotOwner)
	}
	return allow()
}

func crossesTenant(tc TenantContext, f Facts) bool {
	if f.Project != nil && f.Project.TenantID != tc.ID {
		return true
	}
	if f.Task != nil && f.Task.TenantID != tc.ID {
		return true
	}
	if f.TargetUser != nil && (f.TargetUser.TenantID == nil || *f.TargetUser.TenantID != tc.ID) {
		return true
	}
	return false
}

func narrowingSatisfied(p Principal, req Request) bool {
	if req.Collection {
		return true
	}
	f := req.Facts

	if f.Comment != nil && (req.Action == ActionUpdate || req.Action == ActionDelete) {
		return IsCommentOwner(p.ID, *f.Comment)
	}

	switch req.Category {
	case CategoryProject:
		if p.Role == RoleProjectManager && (req.Action == ActionUpdate || req.Action == ActionDelete) {
			return f.Project != nil && IsProjectManager(p.ID, *f.Project)
		}
	case CategoryTask:
		if p.Role == RoleEmployee {
			switch req.Action {
			case ActionRead, ActionUpdate, ActionComment:
				return f.Task != nil && IsTaskAssignee(p.ID, *f.Task)
			}
		}
	}
	return true
}

// capabilityAction maps a request to the matrix column that grants it.
// Comments are a sub-resource of tasks: anyone who can read a task may
// comment on it and manage their own comments.
func capabilityAction(req Request) Action {
	if req.Action == ActionComment || (req.Category == CategoryTask && req.Facts.Comment != nil) {
		return ActionRead
	}
	return req.Action
}

// Engine is the single choke point every resource operation consults before
// acting.
type Engine struct {
	overrides OverrideSource
	observers []func(Request, Decision)
}

type EngineOption func(*Engine)

// WithObserver registers a callback invoked with every decision.
func WithObserver(fn func(Request, Decision)) EngineOption {
	return func(e *Engine) {
		e.observers = append(e.observers, fn)
	}
}

func NewEngine(overrides OverrideSource, opts ...EngineOption) *Engine {
	e := &Engine{overrides: overrides}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// EffectiveMatrix returns the user's active override, or the role defaults
// when none exists.
func (e *Engine) EffectiveMatrix(ctx context.Context, userID uint64, role Role) (Matrix, error) {
	if e.overrides != nil {
		m, err := e.overrides.ActiveOverride(ctx, userID)
		if err != nil {
			return Matrix{}, fmt.Errorf("failed to load permission override: %w", err)
		}
		if m != nil {
			return *m, nil
		}
	}
	return RoleDefaults(role), nil
}

// Authorize loads the principal's effective matrix and evaluates the request.
// A non-nil error means the decision could not be made at all.
func (e *Engine) Authorize(ctx context.Context, p Principal, tc TenantContext, req Request) (Decision, error) {
	var d Decision
	if p.IsSuperAdmin() && req.Category != CategoryTenant {
		d = deny(ErrSuperAdminScopeViolation)
	} else {
		m, err := e.EffectiveMatrix(ctx, p.ID, p.Role)
		if err != nil {
			return Decision{}, err
		}
		d = Evaluate(p, tc, m, req)
	}

	for _, observe := range e.observers {
		observe(req, d)
	}
	return d, nil
}

// Check is Authorize collapsed into a single error.
func (e *Engine) Check(ctx context.Context, p Principal, tc TenantContext, req Request) error {
	d, err := e.Authorize(ctx, p, tc, req)
	if err != nil {
		return err
	}
	return d.Err()
}
