package authz

import (
	"errors"
	"fmt"
	"strings"
)

// Role is one of the four fixed principal roles.
type Role string

const (
	RoleSuperAdmin     Role = "SUPER_ADMIN"
	RoleOrgAdmin       Role = "ORG_ADMIN"
	RoleProjectManager Role = "PROJECT_MANAGER"
	RoleEmployee       Role = "EMPLOYEE"
)

var ErrUnknownRole = errors.New("unknown role")

// AllRoles lists roles from widest to narrowest scope.
func AllRoles() []Role {
	return []Role{RoleSuperAdmin, RoleOrgAdmin, RoleProjectManager, RoleEmployee}
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleSuperAdmin, RoleOrgAdmin, RoleProjectManager, RoleEmployee:
		return true
	}
	return false
}

// ParseRole normalizes and validates a role name.
func ParseRole(s string) (Role, error) {
	r := Role(strings.ToUpper(strings.TrimSpace(s)))
	if !r.Valid() {
		return "", fmt.Errorf("%w: %q", ErrUnknownRole, s)
	}
	return r, nil
}

// Category is a resource category of the capability matrix.
type Category string

const (
	CategoryTenant  Category = "TENANT"
	CategoryUser    Category = "USER"
	CategoryProject Category = "PROJECT"
	CategoryTask    Category = "TASK"
	CategoryReport  Category = "REPORT"
	CategoryAudit   Category = "AUDIT"
)

// Action is an operation on a resource category.
type Action string

const (
	ActionCreate Action = "create"
	ActionRead   Action = "read"
	ActionUpdate Action = "update"
	ActionDelete Action = "delete"
	ActionAssign Action = "assign"
	// ActionComment adds a comment to a task. It is granted by the TASK read capability.
	ActionComment Action = "comment"
)

// Capabilities is one row of the matrix.
type Capabilities struct {
	Create bool `json:"create"`
	Read   bool `json:"read"`
	Update bool `json:"update"`
	Delete bool `json:"delete"`
	Assign bool `json:"assign"`
}

// Allows reports whether the row grants the action.
func (c Capabilities) Allows(a Action) bool {
	switch a {
	case ActionCreate:
		return c.Create
	case ActionRead, ActionComment:
		return c.Read
	case ActionUpdate:
		return c.Update
	case ActionDelete:
		return c.Delete
	case ActionAssign:
		return c.Assign
	}
	return false
}

// Matrix is the fixed-shape capability matrix.
type Matrix struct {
	Tenants  Capabilities `json:"tenants"`
	Users    Capabilities `json:"users"`
	Projects Capabilities `json:"projects"`
	Tasks    Capabilities `json:"tasks"`
	Reports  Capabilities `json:"reports"`
	Audit    Capabilities `json:"audit"`
}

// Row returns the capabilities for a category.
func (m Matrix) Row(c Category) (Capabilities, bool) {
	switch c {
	case CategoryTenant:
		return m.Tenants, true
	case CategoryUser:
		return m.Users, true
	case CategoryProject:
		return m.Projects, true
	case CategoryTask:
		return m.Tasks, true
	case CategoryReport:
		return m.Reports, true
	case CategoryAudit:
		return m.Audit, true
	}
	return Capabilities{}, false
}

// Allows reports whether the matrix grants action a on category c.
func (m Matrix) Allows(c Category, a Action) bool {
	row, ok := m.Row(c)
	return ok && row.Allows(a)
}

// ClampTo drops capabilities the role can never hold, whatever an override
// grants. Only super admins manage tenants.
func (m Matrix) ClampTo(r Role) Matrix {
	if r != RoleSuperAdmin {
		m.Tenants = Capabilities{}
	}
	return m
}

var (
	none     = Capabilities{}
	crud     = Capabilities{Create: true, Read: true, Update: true, Delete: true}
	readOnly = Capabilities{Read: true}
)

// RoleDefaults returns the default matrix of a role. It is recomputed on every
// call so callers may mutate the result freely.
func RoleDefaults(r Role) Matrix {
	switch r {
	case RoleSuperAdmin:
		return Matrix{Tenants: crud, Users: crud, Projects: none, Tasks: none, Reports: none, Audit: readOnly}
	case RoleOrgAdmin:
		tasks := crud
		tasks.Assign = true
		return Matrix{Tenants: none, Users: crud, Projects: crud, Tasks: tasks, Reports: readOnly, Audit: readOnly}
	case RoleProjectManager:
		tasks := crud
		tasks.Assign = true
		return Matrix{
			Tenants:  none,
			Users:    none,
			Projects: Capabilities{Create: true, Read: true, Update: true},
			Tasks:    tasks,
			Reports:  readOnly,
			Audit:    none,
		}
	case RoleEmployee:
		return Matrix{Projects: readOnly, Tasks: Capabilities{Read: true, Update: true}}
	}
	return Matrix{}
}
