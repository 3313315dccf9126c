package repository

import (
	"context"

	"github.com/yukikurage/taskhub-api/internal/database"
	"github.com/yukikurage/taskhub-api/internal/models"
	"github.com/yukikurage/taskhub-api/internal/utils"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProjectRepository is a GORM implementation of ProjectRepository
type GormProjectRepository struct {
	db *gorm.DB
}

// NewProjectRepository creates a new ProjectRepository
func NewProjectRepository(db *gorm.DB) ProjectRepository {
	return &GormProjectRepository{db: db}
}

// Create creates a project together with its initial members
func (r *GormProjectRepository) Create(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		members := project.Members
		if err := tx.Omit(clause.Associations).Create(project).Error; err != nil {
			return err
		}
		if len(members) == 0 {
			return nil
		}

		for i := range members {
			members[i].ProjectID = project.ID
		}
		return tx.Omit("User").Create(&members).Error
	})
}

// FindByID finds a project of the tenant by ID with its members
func (r *GormProjectRepository) FindByID(ctx context.Context, tenantID, id uint64) (*models.Project, error) {
	var project models.Project
	query := r.db.WithContext(ctx).Scopes(database.ForTenant("projects", tenantID)).Preload("Members")
	if err := query.First(&project, id).Error; err != nil {
		return nil, err
	}
	return &project, nil
}

func (r *GormProjectRepository) List(ctx context.Context, filter ProjectFilter) ([]models.Project, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Project{}).Scopes(database.ForTenant("projects", filter.TenantID))

	if filter.MemberUserID != nil {
		uid := *filter.MemberUserID
		memberSubQuery := r.db.Model(&models.ProjectMember{}).
			Select("1").
			Where("project_members.project_id = projects.id").
			Where("project_members.user_id = ?", uid)
		query = query.Where("(projects.owner_id = ? OR projects.manager_id = ? OR EXISTS (?))", uid, uid, memberSubQuery)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("projects.created_at DESC, projects.id DESC")
	if page, ok := utils.NewPage(filter.Page, filter.PageSize); ok {
		listQuery = listQuery.Scopes(database.Paginate(page))
	}

	var projects []models.Project
	if err := listQuery.Preload("Members").Find(&projects).Error; err != nil {
		return nil, 0, err
	}
	return projects, total, nil
}

// Update updates the project row without touching members
func (r *GormProjectRepository) Update(ctx context.Context, project *models.Project) error {
	return r.db.WithContext(ctx).Omit(clause.Associations).Save(project).Error
}

// Delete soft deletes a project, its members, its tasks and their comments in
// a transaction
func (r *GormProjectRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		taskIDs := tx.Model(&models.Task{}).Select("id").Where("project_id = ?", id)
		if err := tx.Where("task_id IN (?)", taskIDs).Delete(&models.TaskComment{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.Task{}).Error; err != nil {
			return err
		}
		if err := tx.Where("project_id = ?", id).Delete(&models.ProjectMember{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Project{}, id).Error
	})
}

// UpsertMember adds a member or changes the role of an existing one
func (r *GormProjectRepository) UpsertMember(ctx context.Context, member *models.ProjectMember) error {
	return r.db.WithContext(ctx).
		Omit("User").
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "project_id"}, {Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"role"}),
		}).
		Create(member).Error
}

// RemoveMember removes a member from a project
func (r *GormProjectRepository) RemoveMember(ctx context.Context, projectID, userID uint64) error {
	return r.db.WithContext(ctx).
		Where("project_id = ? AND user_id = ?", projectID, userID).
		Delete(&models.ProjectMember{}).Error
}
