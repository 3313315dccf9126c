package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/yukikurage/taskhub-api/internal/audit"
	"github.com/yukikurage/taskhub-api/internal/authz"
	"github.com/yukikurage/taskhub-api/internal/constants"
	"github.com/yukikurage/taskhub-api/internal/models"
	"github.com/yukikurage/taskhub-api/internal/notify"
	"github.com/yukikurage/taskhub-api/internal/repository"
	"gorm.io/gorm"
)

var (
	ErrAIServiceNotConfigured = errors.New("AI service is not configured")
	ErrAINoTasksGenerated     = errors.New("AI did not generate any tasks")
	ErrAINoValidTasks         = errors.New("no valid tasks could be created from AI output")
	ErrAITooManyTasks         = fmt.Errorf("AI generated too many tasks (max %d)", constants.MaxAIGeneratedTasks)
)

// TaskService handles task and comment business logic (category TASK)
type TaskService struct {
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
	userRepo    repository.UserRepository
	engine      *authz.Engine
	audit       AuditRecorder
	notifier    notify.Publisher
	generator   TaskGenerator
}

// TaskServiceDeps groups the collaborators of TaskService. Audit, Notifier and
// Generator are optional.
type TaskServiceDeps struct {
	Tasks     repository.TaskRepository
	Projects  repository.ProjectRepository
	Users     repository.UserRepository
	Engine    *authz.Engine
	Audit     AuditRecorder
	Notifier  notify.Publisher
	Generator TaskGenerator
}

// NewTaskService creates a new TaskService
func NewTaskService(deps TaskServiceDeps) *TaskService {
	s := &TaskService{
		taskRepo:    deps.Tasks,
		projectRepo: deps.Projects,
		userRepo:    deps.Users,
		engine:      deps.Engine,
		audit:       deps.Audit,
		notifier:    deps.Notifier,
		generator:   deps.Generator,
	}
	if s.audit == nil {
		s.audit = discardAudit{}
	}
	if s.notifier == nil {
		s.notifier = notify.Discard{}
	}
	return s
}

// CreateTaskInput represents input for creating a task
type CreateTaskInput struct {
	ProjectID   uint64
	Title       string
	Description string
	DueDate     *time.Time
	AssigneeID  *uint64
}

// UpdateTaskInput represents input for updating a task
type UpdateTaskInput struct {
	Title        *string
	Description  *string
	Status       *authz.TaskStatus
	DueDate      *time.Time
	ClearDueDate bool
}

// ListTasksInput represents filters for listing tasks
type ListTasksInput struct {
	ProjectID     *uint64
	Status        *authz.TaskStatus
	AssigneeID    *uint64
	AssignedToMe  bool
	DueToday      bool
	SortByDueDate bool
	Page          int
	PageSize      int
}

// GenerateTasksInput represents input for AI task generation
type GenerateTasksInput struct {
	ProjectID uint64
	Text      string
	// Save persists the suggestions as TODO tasks of the project.
	Save bool
}

func (s *TaskService) check(ctx context.Context, actor Actor, action authz.Action, facts authz.Facts) error {
	return s.engine.Check(ctx, actor.Principal, actor.Tenant, authz.Request{
		Action: action, Category: authz.CategoryTask, Facts: facts,
	})
}

func (s *TaskService) findTask(ctx context.Context, actor Actor, id uint64, preload ...string) (*models.Task, error) {
	tenantID, err := actor.scope()
	if err != nil {
		return nil, err
	}
	task, err := s.taskRepo.FindByID(ctx, tenantID, id, preload...)
	if err != nil {
		return nil, lookupError(err, ErrTaskNotFound, "task")
	}
	return task, nil
}

func (s *TaskService) findProject(ctx context.Context, actor Actor, id uint64) (*models.Project, error) {
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

// checkAssignee authorizes assigning the task before loading the prospective
// assignee, then checks the assignee itself.
func (s *TaskService) checkAssignee(ctx context.Context, actor Actor, task authz.TaskFacts, project *authz.ProjectFacts, assigneeID uint64) (*models.User, error) {
	if err := s.check(ctx, actor, authz.ActionAssign, authz.Facts{Project: project, Task: &task}); err != nil {
		return nil, err
	}
	assignee, err := s.userRepo.FindVisible(ctx, actor.Tenant.ID, assigneeID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidAssignee
		}
		return nil, fmt.Errorf("failed to find assignee: %w", err)
	}
	target := assignee.Facts()
	if err := s.check(ctx, actor, authz.ActionAssign, authz.Facts{Project: project, Task: &task, TargetUser: &target}); err != nil {
		return nil, err
	}
	if !assignee.IsActive {
		return nil, ErrInvalidAssignee
	}
	return assignee, nil
}

// CreateTask creates a TODO task in a project. Setting an assignee at creation
// additionally requires the assign capability.
func (s *TaskService) CreateTask(ctx context.Context, actor Actor, input CreateTaskInput) (*models.Task, error) {
	project, err := s.findProject(ctx, actor, input.ProjectID)
	if err != nil {
		return nil, err
	}
	projectFacts := project.Facts()
	if err := s.check(ctx, actor, authz.ActionCreate, authz.Facts{Project: &projectFacts}); err != nil {
		return nil, err
	}

	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, ErrTitleRequired
	}

	task := &models.Task{
		TenantID:    project.TenantID,
		ProjectID:   project.ID,
		Title:       title,
		Description: input.Description,
		Status:      authz.TaskStatusTodo,
		DueDate:     input.DueDate,
		ReporterID:  actor.Principal.ID,
	}

	if input.AssigneeID != nil {
		if _, err := s.checkAssignee(ctx, actor, task.Facts(), &projectFacts, *input.AssigneeID); err != nil {
			return nil, err
		}
		task.AssigneeID = input.AssigneeID
	}

	if err := s.taskRepo.Create(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}

	e := actor.entry(audit.ActionCreate, audit.ResourceTask, audit.ID(task.ID))
	e.After = task
	s.audit.Record(ctx, e)

	if task.AssigneeID != nil {
		s.notifyAssigned(actor, task)
	}
	return s.findTask(ctx, actor, task.ID, "Assignee", "Reporter")
}

// ListTasks returns tasks of the bound tenant. Employees only ever see the
// tasks assigned to them.
func (s *TaskService) ListTasks(ctx context.Context, actor Actor, input ListTasksInput) ([]models.Task, int64, error) {
	if err := s.engine.Check(ctx, actor.Principal, actor.Tenant, authz.Request{
		Action: authz.ActionRead, Category: authz.CategoryTask, Collection: true,
	}); err != nil {
		return nil, 0, err
	}

	filter := repository.TaskFilter{
		TenantID:      actor.Tenant.ID,
		ProjectID:     input.ProjectID,
		Status:        input.Status,
		AssigneeID:    input.AssigneeID,
		SortByDueDate: input.SortByDueDate,
		Page:          input.Page,
		PageSize:      input.PageSize,
	}
	if input.AssignedToMe {
		id := actor.Principal.ID
		filter.AssigneeID = &id
	}
	if scope := authz.TaskListScope(actor.Principal); scope != nil {
		if filter.AssigneeID != nil && *filter.AssigneeID != *scope {
			return []models.Task{}, 0, nil
		}
		filter.AssigneeID = scope
	}
	if input.DueToday {
		now := time.Now()
		startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
		endOfDay := startOfDay.Add(24 * time.Hour)
		filter.DueDateFrom = &startOfDay
		filter.DueDateTo = &endOfDay
	}

	tasks, total, err := s.taskRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tasks: %w", err)
	}
	return tasks, total, nil
}

// GetTask returns a task with related data
func (s *TaskService) GetTask(ctx context.Context, actor Actor, taskID uint64) (*models.Task, error) {
	task, err := s.findTask(ctx, actor, taskID, "Assignee", "Reporter")
	if err != nil {
		return nil, err
	}
	facts := task.Facts()
	if err := s.check(ctx, actor, authz.ActionRead, authz.Facts{Task: &facts}); err != nil {
		return nil, err
	}
	return task, nil
}

// UpdateTask updates an existing task. A status change must follow the task
// lifecycle; setting the current status again is a no-op.
func (s *TaskService) UpdateTask(ctx context.Context, actor Actor, taskID uint64, input UpdateTaskInput) (*models.Task, error) {
	task, err := s.findTask(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	facts := task.Facts()
	if err := s.check(ctx, actor, authz.ActionUpdate, authz.Facts{Task: &facts}); err != nil {
		return nil, err
	}
	before := *task

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if title == "" {
			return nil, ErrTitleRequired
		}
		task.Title = title
	}
	if input.Description != nil {
		task.Description = *input.Description
	}
	statusChanged := false
	if input.Status != nil && *input.Status != task.Status {
		if err := authz.CheckTransition(task.Status, *input.Status); err != nil {
			return nil, err
		}
		task.Status = *input.Status
		statusChanged = true
	}
	if input.ClearDueDate {
		task.DueDate = nil
	} else if input.DueDate != nil {
		task.DueDate = input.DueDate
	}

	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to update task: %w", err)
	}

	action := audit.ActionUpdate
	if statusChanged {
		action = audit.ActionStatusChange
	}
	e := actor.entry(action, audit.ResourceTask, audit.ID(task.ID))
	e.Before, e.After = before, task
	s.audit.Record(ctx, e)

	if statusChanged {
		payload := map[string]any{
			"task_id":    task.ID,
			"project_id": task.ProjectID,
			"title":      task.Title,
			"from":       before.Status,
			"to":         task.Status,
			"changed_by": actor.Principal.ID,
		}
		s.notifyParticipants(actor, task, notify.EventTaskStatusChanged, payload)
	}
	return s.findTask(ctx, actor, task.ID, "Assignee", "Reporter")
}

// ChangeStatus moves a task to another lifecycle state.
func (s *TaskService) ChangeStatus(ctx context.Context, actor Actor, taskID uint64, status authz.TaskStatus) (*models.Task, error) {
	return s.UpdateTask(ctx, actor, taskID, UpdateTaskInput{Status: &status})
}

// AssignTask sets or, with a nil assignee, clears the assignee of a task.
func (s *TaskService) AssignTask(ctx context.Context, actor Actor, taskID uint64, assigneeID *uint64) (*models.Task, error) {
	task, err := s.findTask(ctx, actor, taskID)
	if err != nil {
		return nil, err
	}
	facts := task.Facts()

	if assigneeID == nil {
		if err := s.check(ctx, actor, authz.ActionAssign, authz.Facts{Task: &facts}); err != nil {
			return nil, err
		}
	} else if _, err := s.checkAssignee(ctx, actor, facts, nil, *assigneeID); err != nil {
		return nil, err
	}

	before := task.AssigneeID
	task.AssigneeID = assigneeID
	if err := s.taskRepo.Update(ctx, task); err != nil {
		return nil, fmt.Errorf("failed to assign task: %w", err)
	}

	e := actor.entry(audit.ActionAssign, audit.ResourceTask, audit.ID(task.ID))
	e.Before = map[string]any{"assignee_id": before}
	e.After = map[string]any{"assignee_id": assigneeID}
	s.audit.Record(ctx, e)

	if assigneeID != nil && (before == nil || *before != *assigneeID) {
		s.notifyAssigned(actor, task)
	}
	return s.findTask(ctx, actor, task.ID, "Assignee", "Reporter")
}

// DeleteTask deletes a task and its comments
func (s *TaskService) DeleteTask(ctx context.Context, actor Actor, taskID uint64) error {
	task, err := s.findTask(ctx, actor, taskID)
	if err != nil {
		return err
	}
	facts := task.Facts()
	if err := s.check(ctx, actor, authz.ActionDelete, authz.Facts{Task: &facts}); err != nil {
		return err
	}

	if err := s.taskRepo.Delete(ctx, taskID); err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	e := actor.entry(audit.ActionDelete, audit.ResourceTask, audit.ID(taskID))
	e.Before = task
	s.audit.Record(ctx, e)
	return nil
}

// GenerateTasks uses AI to suggest tasks for a project from free text. With
// Save set the suggestions are stored as TODO tasks.
func (s *TaskService) GenerateTasks(ctx context.Context, actor Actor, input GenerateTasksInput) ([]GeneratedTask, error) {
	project, err := s.findProject(ctx, actor, input.ProjectID)
	if err != nil {
		return nil, err
	}
	projectFacts := project.Facts()
	if err := s.check(ctx, actor, authz.ActionCreate, authz.Facts{Project: &projectFacts}); err != nil {
		return nil, err
	}
	if s.generator == nil {
		return nil, ErrAIServiceNotConfigured
	}

	aiTasks, err := s.generator.GenerateTasksFromText(ctx, project.Name, input.Text)
	if err != nil {
		return nil, fmt.Errorf("failed to generate tasks: %w", err)
	}

	if len(aiTasks) == 0 {
		return nil, ErrAINoTasksGenerated
	}
	if len(aiTasks) > constants.MaxAIGeneratedTasks {
		return nil, ErrAITooManyTasks
	}

	validTasks := make([]GeneratedTask, 0, len(aiTasks))
	cutoff := time.Now().Add(-24 * time.Hour)
	for _, aiTask := range aiTasks {
		aiTask.Title = strings.TrimSpace(aiTask.Title)
		if aiTask.Title == "" {
			continue
		}
		if aiTask.DueDate != nil && aiTask.DueDate.Before(cutoff) {
			aiTask.DueDate = nil
		}
		validTasks = append(validTasks, aiTask)
	}

	if len(validTasks) == 0 {
		return nil, ErrAINoValidTasks
	}
	if !input.Save {
		return validTasks, nil
	}

	tasks := make([]models.Task, len(validTasks))
	for i, g := range validTasks {
		tasks[i] = models.Task{
			TenantID:    project.TenantID,
			ProjectID:   project.ID,
			Title:       g.Title,
			Description: g.Description,
			Status:      authz.TaskStatusTodo,
			DueDate:     g.DueDate,
			ReporterID:  actor.Principal.ID,
		}
	}
	if err := s.taskRepo.CreateBatch(ctx, tasks); err != nil {
		return nil, fmt.Errorf("failed to save generated tasks: %w", err)
	}
	for i := range tasks {
		e := actor.entry(audit.ActionCreate, audit.ResourceTask, audit.ID(tasks[i].ID))
		e.After = tasks[i]
		e.Metadata = map[string]any{"source": "ai"}
		s.audit.Record(ctx, e)
	}
	return validTasks, nil
}

func (s *TaskService) notifyAssigned(actor Actor, task *models.Task) {
	if task.AssigneeID == nil || *task.AssigneeID == actor.Principal.ID {
		return
	}
	s.notifier.Publish(*task.AssigneeID, notify.EventTaskAssigned, map[string]any{
		"task_id":     task.ID,
		"project_id":  task.ProjectID,
		"title":       task.Title,
		"assigned_by": actor.Principal.ID,
	})
}

// notifyParticipants sends an event to the assignee and the reporter of a
// task, skipping the actor who caused it.
func (s *TaskService) notifyParticipants(actor Actor, task *models.Task, t notify.EventType, payload any) {
	recipients := []uint64{task.ReporterID}
	if task.AssigneeID != nil {
		recipients = append(recipients, *task.AssigneeID)
	}
	for _, id := range uniqueUint64(recipients) {
		if id == actor.Principal.ID {
			continue
		}
		s.notifier.Publish(id, t, payload)
	}
}
