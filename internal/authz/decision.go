package authz

import "errors"

// Reason identifies which authorization rule denied a request.
type Reason string

const (
	ReasonSuperAdminScope        Reason = "SUPER_ADMIN_SCOPE_VIOLATION"
	ReasonTenantAccessDenied     Reason = "TENANT_ACCESS_DENIED"
	ReasonInsufficientCapability Reason = "INSUFFICIENT_CAPABILITY"
	ReasonNotOwner               Reason = "NOT_OWNER"
	ReasonCannotManageSuperAdmin Reason = "CANNOT_MANAGE_SUPER_ADMIN"
	ReasonCannotModifySelf       Reason = "CANNOT_MODIFY_SELF"
)

// DeniedError is returned for every authorization denial. It matches any other
// DeniedError with the same Reason under errors.Is.
type DeniedError struct {
	Reason  Reason
	Message string
}

func (e *DeniedError) Error() string { return e.Message }

func (e *DeniedError) Is(target error) bool {
	t, ok := target.(*DeniedError)
	return ok && t.Reason == e.Reason
}

var (
	ErrSuperAdminScopeViolation = &DeniedError{ReasonSuperAdminScope, "super admins cannot access tenant business data"}
	ErrTenantAccessDenied       = &DeniedError{ReasonTenantAccessDenied, "access to this tenant is denied"}
	ErrInsufficientCapability   = &DeniedError{ReasonInsufficientCapability, "insufficient permissions for this operation"}
	ErrNotOwner                 = &DeniedError{ReasonNotOwner, "only the owner of this resource can perform this operation"}
	ErrCannotManageSuperAdmin   = &DeniedError{ReasonCannotManageSuperAdmin, "super admin accounts cannot be managed"}
	ErrCannotModifySelf         = &DeniedError{ReasonCannotModifySelf, "you cannot modify your own permissions"}
)

// IsDenied reports whether err is an authorization denial, as opposed to an
// infrastructure failure.
func IsDenied(err error) bool {
	var denied *DeniedError
	return errors.As(err, &denied)
}

// Decision is the outcome of an authorization check.
type Decision struct {
	Allowed bool
	Denial  *DeniedError
}

func allow() Decision { return Decision{Allowed: true} }

func deny(err *DeniedError) Decision { return Decision{Denial: err} }

// Err returns nil when allowed and the denial otherwise.
func (d Decision) Err() error {
	if d.Allowed {
		return nil
	}
	if d.Denial == nil {
		return ErrInsufficientCapability
	}
	return d.Denial
}

// Reason returns the denial reason, or an empty string when allowed.
func (d Decision) Reason() Reason {
	if d.Allowed || d.Denial == nil {
		return ""
	}
	return d.Denial.Reason
}
