package repository

import (
	"context"
	"time"

	"github.com/yukikurage/taskhub-api/internal/authz"
	"github.com/yukikurage/taskhub-api/internal/models"
)

// TenantRepository defines the interface for tenant data access
type TenantRepository interface {
	// Create creates a tenant and, when admin is not nil, its first
	// administrator in the same transaction.
	Create(ctx context.Context, tenant *models.Tenant, admin *models.User) error

	// FindByID finds a tenant by ID
	FindByID(ctx context.Context, id uint64) (*models.Tenant, error)

	// List retrieves tenants ordered by creation time
	List(ctx context.Context, page, pageSize int) ([]models.Tenant, int64, error)

	// Update updates a tenant
	Update(ctx context.Context, tenant *models.Tenant) error

	// Delete soft deletes the tenant row only
	Delete(ctx context.Context, id uint64) error
}

// UserRepository defines the interface for user data access
type UserRepository interface {
	// Create creates a new user
	Create(ctx context.Context, user *models.User) error

	// FindByID finds a user by ID in any tenant
	FindByID(ctx context.Context, id uint64) (*models.User, error)

	// FindVisible finds a user of the tenant or a platform super admin. Users
	// of other tenants are reported as not found.
	FindVisible(ctx context.Context, tenantID, id uint64) (*models.User, error)

	// FindByEmail finds a user by email
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// List retrieves users with filtering and pagination
	List(ctx context.Context, filter UserFilter) ([]models.User, int64, error)

	// Update updates a user
	Update(ctx context.Context, user *models.User) error

	// Delete soft deletes a user
	Delete(ctx context.Context, id uint64) error

	// CountInTenant counts how many of the given user IDs belong to the tenant
	CountInTenant(ctx context.Context, tenantID uint64, userIDs []uint64) (int64, error)

	// ListIDsByRole returns the IDs of active users with the role in a tenant
	ListIDsByRole(ctx context.Context, tenantID uint64, role authz.Role) ([]uint64, error)
}

// UserFilter holds filtering options for listing users. A nil TenantID lists
// users of every tenant.
type UserFilter struct {
	TenantID *uint64
	Roles    []authz.Role
	Search   string
	Page     int
	PageSize int
}

// ProjectRepository defines the interface for project data access
type ProjectRepository interface {
	// Create creates a project together with its initial members
	Create(ctx context.Context, project *models.Project) error

	// FindByID finds a project of the tenant by ID with its members
	FindByID(ctx context.Context, tenantID, id uint64) (*models.Project, error)

	// List retrieves projects with filtering and pagination
	List(ctx context.Context, filter ProjectFilter) ([]models.Project, int64, error)

	// Update updates the project row without touching members
	Update(ctx context.Context, project *models.Project) error

	// Delete soft deletes a project, its members, its tasks and their comments
	Delete(ctx context.Context, id uint64) error

	// UpsertMember adds a member or changes the role of an existing one
	UpsertMember(ctx context.Context, member *models.ProjectMember) error

	// RemoveMember removes a member from a project
	RemoveMember(ctx context.Context, projectID, userID uint64) error
}

// ProjectFilter holds filtering options for listing projects
type ProjectFilter struct {
	TenantID uint64
	// MemberUserID keeps only projects the user owns, manages or belongs to.
	MemberUserID *uint64
	Page         int
	PageSize     int
}

// TaskRepository defines the interface for task data access
type TaskRepository interface {
	// Create creates a new task
	Create(ctx context.Context, task *models.Task) error

	// CreateBatch creates several tasks in one transaction
	CreateBatch(ctx context.Context, tasks []models.Task) error

	// FindByID finds a task of the tenant by ID with optional preloading
	FindByID(ctx context.Context, tenantID, id uint64, preload ...string) (*models.Task, error)

	// List retrieves tasks with filtering and pagination
	List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error)

	// Update updates a task
	Update(ctx context.Context, task *models.Task) error

	// Delete soft deletes a task and its comments
	Delete(ctx context.Context, id uint64) error

	// StatusSummary counts tasks per status
	StatusSummary(ctx context.Context, tenantID uint64, projectID *uint64) ([]StatusCount, error)

	// CreateComment adds a comment to a task
	CreateComment(ctx context.Context, comment *models.TaskComment) error

	// FindComment finds a comment of a task
	FindComment(ctx context.Context, taskID, commentID uint64) (*models.TaskComment, error)

	// ListComments lists the comments of a task, oldest first
	ListComments(ctx context.Context, taskID uint64) ([]models.TaskComment, error)

	// UpdateComment updates the body of a comment
	UpdateComment(ctx context.Context, comment *models.TaskComment) error

	// DeleteComment soft deletes a comment
	DeleteComment(ctx context.Context, commentID uint64) error
}

// TaskFilter holds filtering options for listing tasks
type TaskFilter struct {
	TenantID      uint64
	ProjectID     *uint64
	Status        *authz.TaskStatus
	AssigneeID    *uint64
	ReporterID    *uint64
	DueDateFrom   *time.Time
	DueDateTo     *time.Time
	SortByDueDate bool
	Page          int
	PageSize      int
}

// StatusCount is one row of a task status summary.
type StatusCount struct {
	Status authz.TaskStatus `json:"status"`
	Count  int64            `json:"count"`
}

// OverrideRepository defines the interface for permission override data access
type OverrideRepository interface {
	// FindByUserID finds the override of a user
	FindByUserID(ctx context.Context, userID uint64) (*models.PermissionOverride, error)

	// Upsert creates or replaces the override of override.UserID atomically
	Upsert(ctx context.Context, override *models.PermissionOverride) error

	// ListByUserIDs returns the overrides of the given users
	ListByUserIDs(ctx context.Context, userIDs []uint64) ([]models.PermissionOverride, error)
}

// AuditRepository defines the interface for audit log data access
type AuditRepository interface {
	// Create appends an entry
	Create(ctx context.Context, entry *models.AuditLog) error

	// List retrieves entries of a tenant, newest first. Entries written by
	// super admins are never returned or counted.
	List(ctx context.Context, filter AuditFilter) ([]models.AuditLog, int64, error)
}

// AuditFilter holds filtering options for listing audit logs
type AuditFilter struct {
	TenantID     uint64
	UserID       *uint64
	Action       string
	ResourceType string
	ResourceID   string
	From         *time.Time
	To           *time.Time
	Page         int
	PageSize     int
}

