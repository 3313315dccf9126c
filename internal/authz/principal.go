package authz

// Principal is the authenticated actor of a request. It is built from
// credential claims and never changes while the request is served.
type Principal struct {
	ID       uint64
	Role     Role
	TenantID *uint64
}

// HomeTenant returns the tenant the principal belongs to.
func (p Principal) HomeTenant() (uint64, bool) {
	if p.TenantID == nil {
		return 0, false
	}
	return *p.TenantID, true
}

func (p Principal) IsSuperAdmin() bool { return p.Role == RoleSuperAdmin }
