package repository

import (
	"context"

	"github.com/yukikurage/taskhub-api/internal/database"
	"github.com/yukikurage/taskhub-api/internal/models"
	"github.com/yukikurage/taskhub-api/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormTaskRepository is a GORM implementation of TaskRepository
type GormTaskRepository struct {
	db *gorm.DB
}

// NewTaskRepository creates a new TaskRepository
func NewTaskRepository(db *gorm.DB) TaskRepository {
	return &GormTaskRepository{db: db}
}

// Create creates a new task
func (r *GormTaskRepository) Create(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Create(task).Error
}

// CreateBatch creates several tasks in one transaction
func (r *GormTaskRepository) CreateBatch(ctx context.Context, tasks []models.Task) error {
	if len(tasks) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return tx.Omit(clause.Associations).Create(&tasks).Error
	})
}

// FindByID finds a task of the tenant by ID with optional preloading
func (r *GormTaskRepository) FindByID(ctx context.Context, tenantID, id uint64, preload ...string) (*models.Task, error) {
	var task models.Task
	query := r.db.WithContext(ctx).Scopes(database.ForTenant("tasks", tenantID))

	// Apply preloading if specified
	for _, p := range preload {
		query = query.Preload(p)
	}

	if err := query.First(&task, id).Error; err != nil {
		return nil, err
	}
	return &task, nil
}

// List retrieves tasks with filtering and pagination
func (r *GormTaskRepository) List(ctx context.Context, filter TaskFilter) ([]models.Task, int64, error) {
	var tasks []models.Task

	query := r.db.WithContext(ctx).Model(&models.Task{}).Scopes(database.ForTenant("tasks", filter.TenantID))

	// Apply filters
	if filter.ProjectID != nil {
		query = query.Where("tasks.project_id = ?", *filter.ProjectID)
	}
	if filter.Status != nil {
		query = query.Where("tasks.status = ?", *filter.Status)
	}
	if filter.AssigneeID != nil {
		query = query.Where("tasks.assignee_id = ?", *filter.AssigneeID)
	}
	if filter.ReporterID != nil {
		query = query.Where("tasks.reporter_id = ?", *filter.ReporterID)
	}
	if filter.DueDateFrom != nil {
		query = query.Where("tasks.due_date >= ?", *filter.DueDateFrom)
	}
	if filter.DueDateTo != nil {
		query = query.Where("tasks.due_date < ?", *filter.DueDateTo)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query
	if filter.SortByDueDate {
		listQuery = listQuery.Order("CASE WHEN tasks.due_date IS NULL THEN 1 ELSE 0 END, tasks.due_date ASC")
	} else {
		listQuery = listQuery.Order("tasks.created_at DESC, tasks.id DESC")
	}

	if page, ok := utils.NewPage(filter.Page, filter.PageSize); ok {
		listQuery = listQuery.Scopes(database.Paginate(page))
	}

	if err := listQuery.Preload("Assignee").Find(&tasks).Error; err != nil {
		return nil, 0, err
	}
	return tasks, total, nil
}

// Update updates a task
func (r *GormTaskRepository) Update(ctx context.Context, task *models.Task) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(task).Error
}

// Delete soft deletes a task and its comments
func (r *GormTaskRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("task_id = ?", id).Delete(&models.TaskComment{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Task{}, id).Error
	})
}

// StatusSummary counts tasks per status, optionally within one project
func (r *GormTaskRepository) StatusSummary(ctx context.Context, tenantID uint64, projectID *uint64) ([]StatusCount, error) {
	query := r.db.WithContext(ctx).Model(&models.Task{}).
		Select("status, COUNT(*) AS count").
		Where("tenant_id = ?", tenantID)
	if projectID != nil {
		query = query.Where("project_id = ?", *projectID)
	}

	var rows []StatusCount
	if err := query.Group("status").Order("status").Scan(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

// CreateComment adds a comment to a task
func (r *GormTaskRepository) CreateComment(ctx context.Context, comment *models.TaskComment) error {
	return r.db.WithContext(ctx).Omit("Author").Create(comment).Error
}

// FindComment finds a comment of a task
func (r *GormTaskRepository) FindComment(ctx context.Context, taskID, commentID uint64) (*models.TaskComment, error) {
	var comment models.TaskComment
	if err := r.db.WithContext(ctx).
		Where("task_id = ?", taskID).
		First(&comment, commentID).Error; err != nil {
		return nil, err
	}
	return &comment, nil
}

// ListComments lists the comments of a task, oldest first
func (r *GormTaskRepository) ListComments(ctx context.Context, taskID uint64) ([]models.TaskComment, error) {
	var comments []models.TaskComment
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Where("task_id = ?", taskID).
		Order("created_at ASC, id ASC").
		Find(&comments).Error; err != nil {
		return nil, err
	}
	return comments, nil
}

// UpdateComment updates the body of a comment
func (r *GormTaskRepository) UpdateComment(ctx context.Context, comment *models.TaskComment) error {
	return r.db.WithContext(ctx).Omit("Author").Save(comment).Error
}

// DeleteComment soft deletes a comment
func (r *GormTaskRepository) DeleteComment(ctx context.Context, commentID uint64) error {
	return r.db.WithContext(ctx).Delete(&models.TaskComment{}, commentID).Error
}
