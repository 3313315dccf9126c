package authz

// MemberRole is the role of a user inside a single project.
type MemberRole string

const (
	MemberRoleMember MemberRole = "MEMBER"
	MemberRoleLead   MemberRole = "LEAD"
	MemberRoleViewer MemberRole = "VIEWER"
)

func (r MemberRole) Valid() bool {
	switch r {
	case MemberRoleMember, MemberRoleLead, MemberRoleViewer:
		return true
	}
	return false
}

// ProjectFacts is the already-fetched snapshot of a project.
type ProjectFacts struct {
	ID        uint64
	TenantID  uint64
	OwnerID   uint64
	ManagerID uint64
	Members   []MemberFacts
}

type MemberFacts struct {
	UserID uint64
	Role   MemberRole
}

// TaskFacts is the already-fetched snapshot of a task.
type TaskFacts struct {
	ID         uint64
	TenantID   uint64
	ProjectID  uint64
	AssigneeID *uint64
	ReporterID uint64
}

type CommentFacts struct {
	ID       uint64
	AuthorID uint64
}

// UserFacts describes a user record that is the target of an operation.
type UserFacts struct {
	ID       uint64
	TenantID *uint64
	Role     Role
}

// Facts bundles every resource snapshot an authorization request may need.
// Unset pointers mean the fact is not relevant to the request.
type Facts struct {
	Project    *ProjectFacts
	Task       *TaskFacts
	Comment    *CommentFacts
	TargetUser *UserFacts
}

// IsProjectManager reports whether userID manages the project: its manager,
// its owner, or a LEAD member.
func IsProjectManager(userID uint64, p ProjectFacts) bool {
	if userID == p.ManagerID || userID == p.OwnerID {
		return true
	}
	for _, m := range p.Members {
		if m.UserID == userID && m.Role == MemberRoleLead {
			return true
		}
	}
	return false
}

// IsTaskAssignee reports whether userID is the task's assignee.
func IsTaskAssignee(userID uint64, t TaskFacts) bool {
	return t.AssigneeID != nil && *t.AssigneeID == userID
}

// IsCommentOwner reports whether userID authored the comment.
func IsCommentOwner(userID uint64, c CommentFacts) bool {
	return c.AuthorID == userID
}

// TaskListScope returns the assignee a task listing must be restricted to for
// p, or nil when p may list every task of the tenant.
func TaskListScope(p Principal) *uint64 {
	if p.Role == RoleEmployee {
		id := p.ID
		return &id
	}
	return nil
}

// ProjectListScope returns the user whose memberships bound a project listing
// for p, or nil when p may list every project of the tenant.
func ProjectListScope(p Principal) *uint64 {
	if p.Role == RoleEmployee {
		id := p.ID
		return &id
	}
	return nil
}
