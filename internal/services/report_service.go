package services

import (
	"context"
	"fmt"

	"github.com/yukikurage/taskhub-api/internal/authz"
	"github.com/yukikurage/taskhub-api/internal/repository"
)

// ReportService builds read-only reports (category REPORT).
type ReportService struct {
	taskRepo    repository.TaskRepository
	projectRepo repository.ProjectRepository
	engine      *authz.Engine
}

func NewReportService(taskRepo repository.TaskRepository, projectRepo repository.ProjectRepository, engine *authz.Engine) *ReportService {
	return &ReportService{taskRepo: taskRepo, projectRepo: projectRepo, engine: engine}
}

// TaskSummary counts the tasks of a tenant, or of one of its projects, per
// status. Every status is present in ByStatus.
type TaskSummary struct {
	TenantID  uint64                     `json:"tenant_id"`
	ProjectID *uint64                    `json:"project_id,omitempty"`
	Total     int64                      `json:"total"`
	ByStatus  map[authz.TaskStatus]int64 `json:"by_status"`
}

func (s *ReportService) TaskSummary(ctx context.Context, actor Actor, projectID *uint64) (*TaskSummary, error) {
	req := authz.Request{Action: authz.ActionRead, Category: authz.CategoryReport}
	if projectID != nil {
		tenantID, err := actor.scope()
		if err != nil {
			return nil, err
		}
		project, err := s.projectRepo.FindByID(ctx, tenantID, *projectID)
		if err != nil {
			return nil, lookupError(err, ErrProjectNotFound, "project")
		}
		facts := project.Facts()
		req.Facts.Project = &facts
	}
	if err := s.engine.Check(ctx, actor.Principal, actor.Tenant, req); err != nil {
		return nil, err
	}

	rows, err := s.taskRepo.StatusSummary(ctx, actor.Tenant.ID, projectID)
	if err != nil {
		return nil, fmt.Errorf("failed to summarize tasks: %w", err)
	}

	summary := &TaskSummary{
		TenantID:  actor.Tenant.ID,
		ProjectID: projectID,
		ByStatus:  make(map[authz.TaskStatus]int64, len(authz.AllTaskStatuses())),
	}
	for _, st := range authz.AllTaskStatuses() {
		summary.ByStatus[st] = 0
	}
	for _, row := range rows {
		summary.ByStatus[row.Status] = row.Count
		summary.Total += row.Count
	}
	return summary, nil
}
