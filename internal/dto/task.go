package dto

import (
	"time"

	"github.com/yukikurage/taskhub-api/internal/authz"
	"github.com/yukikurage/taskhub-api/internal/models"
)

// TaskDTO represents a task in API responses
type TaskDTO struct {
	ID          uint64           `json:"id"`
	TenantID    uint64           `json:"tenant_id"`
	ProjectID   uint64           `json:"project_id"`
	Title       string           `json:"title"`
	Description string           `json:"description"`
	Status      authz.TaskStatus `json:"status"`
	DueDate     *time.Time       `json:"due_date"`
	AssigneeID  *uint64          `json:"assignee_id"`
	ReporterID  uint64           `json:"reporter_id"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	Assignee    *UserSummaryDTO  `json:"assignee,omitempty"`
	Reporter    *UserSummaryDTO  `json:"reporter,omitempty"`
}

// CommentDTO represents a task comment in API responses
type CommentDTO struct {
	ID        uint64          `json:"id"`
	TaskID    uint64          `json:"task_id"`
	AuthorID  uint64          `json:"author_id"`
	Body      string          `json:"body"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Author    *UserSummaryDTO `json:"author,omitempty"`
}

// ListResponse represents one page of a listing
type ListResponse[T any] struct {
	Items      []T   `json:"items"`
	Page       int   `json:"page"`
	PageSize   int   `json:"page_size"`
	TotalCount int64 `json:"total_count"`
	TotalPages int   `json:"total_pages"`
}

// Conversion functions

func ToTaskDTO(task models.Task) TaskDTO {
	return TaskDTO{
		ID:          task.ID,
		TenantID:    task.TenantID,
		ProjectID:   task.ProjectID,
		Title:       task.Title,
		Description: task.Description,
		Status:      task.Status,
		DueDate:     task.DueDate,
		AssigneeID:  task.AssigneeID,
		ReporterID:  task.ReporterID,
		CreatedAt:   task.CreatedAt,
		UpdatedAt:   task.UpdatedAt,
		Assignee:    toUserSummary(task.Assignee),
		Reporter:    toUserSummary(&task.Reporter),
	}
}

func ToTaskDTOs(tasks []models.Task) []TaskDTO {
	out := make([]TaskDTO, len(tasks))
	for i, t := range tasks {
		out[i] = ToTaskDTO(t)
	}
	return out
}

func ToCommentDTO(comment models.TaskComment) CommentDTO {
	return CommentDTO{
		ID:        comment.ID,
		TaskID:    comment.TaskID,
		AuthorID:  comment.AuthorID,
		Body:      comment.Body,
		CreatedAt: comment.CreatedAt,
		UpdatedAt: comment.UpdatedAt,
		Author:    toUserSummary(&comment.Author),
	}
}

func ToCommentDTOs(comments []models.TaskComment) []CommentDTO {
	out := make([]CommentDTO, len(comments))
	for i, c := range comments {
		out[i] = ToCommentDTO(c)
	}
	return out
}

// NewListResponse wraps a page of items with pagination metadata
func NewListResponse[T any](items []T, page, pageSize int, totalCount int64) ListResponse[T] {
	totalPages := 0
	if pageSize > 0 {
		totalPages = int(totalCount) / pageSize
		if int(totalCount)%pageSize > 0 {
			totalPages++
		}
	}

	return ListResponse[T]{
		Items:      items,
		Page:       page,
		PageSize:   pageSize,
		TotalCount: totalCount,
		TotalPages: totalPages,
	}
}
