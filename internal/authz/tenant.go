package authz

import "errors"

var ErrTenantRequired = errors.New("tenant context is required")

// TenantContext is the tenant bound to a request. Platform is set for super
// admins, who are never bound to a tenant for resource work.
type TenantContext struct {
	ID       uint64
	Platform bool
}

// ResolveTenant binds the tenant for a request. An explicit indicator wins over
// the principal's home tenant. It has no side effects.
func ResolveTenant(p Principal, explicit *uint64) (TenantContext, error) {
	if p.IsSuperAdmin() {
		tc := TenantContext{Platform: true}
		if explicit != nil {
			tc.ID = *explicit
		}
		return tc, nil
	}

	home, ok := p.HomeTenant()
	if explicit != nil {
		if !ok || *explicit != home {
			return TenantContext{}, ErrTenantAccessDenied
		}
		return TenantContext{ID: *explicit}, nil
	}
	if !ok {
		return TenantContext{}, ErrTenantRequired
	}
	return TenantContext{ID: home}, nil
}

// RequireResourceScope fails for principals that may not touch tenant business
// data in the given context.
func RequireResourceScope(p Principal, tc TenantContext) error {
	if p.IsSuperAdmin() || tc.Platform {
		return ErrSuperAdminScopeViolation
	}
	if tc.ID == 0 {
		return ErrTenantRequired
	}
	return nil
}
