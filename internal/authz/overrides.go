package authz

// CanViewPermissions decides whether actor may read target's effective
// permissions. Everyone may read their own.
func CanViewPermissions(actor Principal, target UserFacts) error {
	if actor.ID == target.ID {
		return nil
	}
	return checkOverrideScope(actor, target)
}

// CanEditPermissions decides whether actor may set or reset target's override.
func CanEditPermissions(actor Principal, target UserFacts) error {
	if actor.ID == target.ID {
		return ErrCannotModifySelf
	}
	return checkOverrideScope(actor, target)
}

func checkOverrideScope(actor Principal, target UserFacts) error {
	switch actor.Role {
	case RoleSuperAdmin:
		return nil
	case RoleOrgAdmin:
		if target.Role == RoleSuperAdmin {
			return ErrCannotManageSuperAdmin
		}
		home, ok := actor.HomeTenant()
		if !ok || target.TenantID == nil || *target.TenantID != home {
			return ErrTenantAccessDenied
		}
		if !inScope(target.Role, OverrideScope(actor.Role)) {
			return ErrInsufficientCapability
		}
		return nil
	}
	return ErrInsufficientCapability
}

// OverrideScope lists the roles whose overrides a role may manage.
func OverrideScope(r Role) []Role {
	switch r {
	case RoleSuperAdmin:
		return AllRoles()
	case RoleOrgAdmin:
		return []Role{RoleProjectManager, RoleEmployee}
	}
	return nil
}

func inScope(r Role, scope []Role) bool {
	for _, s := range scope {
		if s == r {
			return true
		}
	}
	return false
}
