package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/taskhub-api/internal/audit"
	"github.com/yukikurage/taskhub-api/internal/authz"
	"github.com/yukikurage/taskhub-api/internal/models"
	"github.com/yukikurage/taskhub-api/internal/repository"
)

// ProjectService handles project business logic (category PROJECT).
type ProjectService struct {
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
	engine      *authz.Engine
	audit       AuditRecorder
}

func NewProjectService(projectRepo repository.ProjectRepository, userRepo repository.UserRepository, engine *authz.Engine, recorder AuditRecorder) *ProjectService {
	if recorder == nil {
		recorder = discardAudit{}
	}
	return &ProjectService{
		projectRepo: projectRepo,
		userRepo:    userRepo,
		engine:      engine,
		audit:       recorder,
	}
}

type CreateProjectInput struct {
	Name        string
	Description string
	ManagerID   *uint64
}

type UpdateProjectInput struct {
	Name        *string
	Description *string
	ManagerID   *uint64
}

type ListProjectsInput struct {
	// Mine restricts the listing to projects the actor takes part in.
	Mine     bool
	Page     int
	PageSize int
}

func (s *ProjectService) check(ctx context.Context, actor Actor, action authz.Action, facts authz.Facts) error {
	return s.engine.Check(ctx, actor.Principal, actor.Tenant, authz.Request{
		Action: action, Category: authz.CategoryProject, Facts: facts,
	})
}

func (s *ProjectService) find(ctx context.Context, actor Actor, id uint64) (*models.Project, error) {
	tenantID, err := actor.scope()
	if err != nil {
		return nil, err
	}
	project, err := s.projectRepo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, lookupError(err, ErrProjectNotFound, "project")
	}
	return project, nil
}

func (s *ProjectService) load(ctx context.Context, actor Actor, id uint64, action authz.Action) (*models.Project, error) {
	project, err := s.find(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	facts := project.Facts()
	if err := s.check(ctx, actor, action, authz.Facts{Project: &facts}); err != nil {
		return nil, err
	}
	return project, nil
}

func (s *ProjectService) ensureInTenant(ctx context.Context, tenantID, userID uint64, invalid error) error {
	count, err := s.userRepo.CountInTenant(ctx, tenantID, []uint64{userID})
	if err != nil {
		return fmt.Errorf("failed to verify user: %w", err)
	}
	if count != 1 {
		return invalid
	}
	return nil
}

// Create creates a project owned by the actor. The manager defaults to the
// actor as well.
func (s *ProjectService) Create(ctx context.Context, actor Actor, input CreateProjectInput) (*models.Project, error) {
	if err := s.check(ctx, actor, authz.ActionCreate, authz.Facts{}); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	managerID := actor.Principal.ID
	if input.ManagerID != nil && *input.ManagerID != managerID {
		if err := s.ensureInTenant(ctx, actor.Tenant.ID, *input.ManagerID, ErrInvalidManager); err != nil {
			return nil, err
		}
		managerID = *input.ManagerID
	}

	project := &models.Project{
		TenantID:    actor.Tenant.ID,
		Name:        name,
		Description: input.Description,
		OwnerID:     actor.Principal.ID,
		ManagerID:   managerID,
	}
	if err := s.projectRepo.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to create project: %w", err)
	}

	e := actor.entry(audit.ActionCreate, audit.ResourceProject, audit.ID(project.ID))
	e.After = project
	s.audit.Record(ctx, e)
	return project, nil
}

// List returns the projects of the bound tenant. Employees only ever see the
// projects they take part in.
func (s *ProjectService) List(ctx context.Context, actor Actor, input ListProjectsInput) ([]models.Project, int64, error) {
	if err := s.engine.Check(ctx, actor.Principal, actor.Tenant, authz.Request{
		Action: authz.ActionRead, Category: authz.CategoryProject, Collection: true,
	}); err != nil {
		return nil, 0, err
	}

	filter := repository.ProjectFilter{
		TenantID:     actor.Tenant.ID,
		MemberUserID: authz.ProjectListScope(actor.Principal),
		Page:         input.Page,
		PageSize:     input.PageSize,
	}
	if input.Mine && filter.MemberUserID == nil {
		id := actor.Principal.ID
		filter.MemberUserID = &id
	}

	projects, total, err := s.projectRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list projects: %w", err)
	}
	return projects, total, nil
}

func (s *ProjectService) Get(ctx context.Context, actor Actor, id uint64) (*models.Project, error) {
	return s.load(ctx, actor, id, authz.ActionRead)
}

func (s *ProjectService) Update(ctx context.Context, actor Actor, id uint64, input UpdateProjectInput) (*models.Project, error) {
	project, err := s.load(ctx, actor, id, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}
	before := *project

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		project.Name = name
	}
	if input.Description != nil {
		project.Description = *input.Description
	}
	if input.ManagerID != nil && *input.ManagerID != project.ManagerID {
		if err := s.ensureInTenant(ctx, project.TenantID, *input.ManagerID, ErrInvalidManager); err != nil {
			return nil, err
		}
		project.ManagerID = *input.ManagerID
	}

	if err := s.projectRepo.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("failed to update project: %w", err)
	}

	e := actor.entry(audit.ActionUpdate, audit.ResourceProject, audit.ID(project.ID))
	e.Before, e.After = before, project
	s.audit.Record(ctx, e)
	return project, nil
}

// Delete removes a project together with its tasks.
func (s *ProjectService) Delete(ctx context.Context, actor Actor, id uint64) error {
	project, err := s.load(ctx, actor, id, authz.ActionDelete)
	if err != nil {
		return err
	}
	if err := s.projectRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete project: %w", err)
	}

	e := actor.entry(audit.ActionDelete, audit.ResourceProject, audit.ID(id))
	e.Before = project
	s.audit.Record(ctx, e)
	return nil
}

// AddMember adds a user of the same tenant to the project or changes its
// member role. It requires the right to update the project.
func (s *ProjectService) AddMember(ctx context.Context, actor Actor, projectID, userID uint64, role authz.MemberRole) (*models.Project, error) {
	if role == "" {
		role = authz.MemberRoleMember
	}
	if !role.Valid() {
		return nil, ErrInvalidMemberRole
	}

	project, err := s.load(ctx, actor, projectID, authz.ActionUpdate)
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindVisible(ctx, actor.Tenant.ID, userID)
	if err != nil {
		return nil, lookupError(err, ErrUserNotFound, "user")
	}

	projectFacts, userFacts := project.Facts(), user.Facts()
	if err := s.check(ctx, actor, authz.ActionUpdate, authz.Facts{Project: &projectFacts, TargetUser: &userFacts}); err != nil {
		return nil, err
	}

	member := &models.ProjectMember{ProjectID: project.ID, UserID: user.ID, Role: role, JoinedAt: time.Now().UTC()}
	if err := s.projectRepo.UpsertMember(ctx, member); err != nil {
		return nil, fmt.Errorf("failed to add member: %w", err)
	}

	e := actor.entry(audit.ActionCreate, audit.ResourceMember, audit.ID(project.ID))
	e.After = map[string]any{"user_id": user.ID, "role": role}
	s.audit.Record(ctx, e)

	return s.find(ctx, actor, project.ID)
}

func (s *ProjectService) RemoveMember(ctx context.Context, actor Actor, projectID, userID uint64) error {
	project, err := s.load(ctx, actor, projectID, authz.ActionUpdate)
	if err != nil {
		return err
	}

	found := false
	for _, m := range project.Members {
		if m.UserID == userID {
			found = true
			break
		}
	}
	if !found {
		return ErrMemberNotFound
	}

	if err := s.projectRepo.RemoveMember(ctx, projectID, userID); err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}

	e := actor.entry(audit.ActionDelete, audit.ResourceMember, audit.ID(projectID))
	e.Before = map[string]any{"user_id": userID}
	s.audit.Record(ctx, e)
	return nil
}
