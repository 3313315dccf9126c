package repository

import (
	"context"

	"github.com/yukikurage/taskhub-api/internal/authz"
	"github.com/yukikurage/taskhub-api/internal/database"
	"github.com/yukikurage/taskhub-api/internal/models"
	"github.com/yukikurage/taskhub-api/internal/utils"
	"gorm.io/gorm"
)

// GormAuditRepository is a GORM implementation of AuditRepository
type GormAuditRepository struct {
	db *gorm.DB
}

// NewAuditRepository creates a new AuditRepository
func NewAuditRepository(db *gorm.DB) AuditRepository {
	return &GormAuditRepository{db: db}
}

// Create appends an entry
func (r *GormAuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	return r.db.WithContext(ctx).Create(entry).Error
}

// List retrieves entries of a tenant, newest first. The super admin exclusion
// is part of the base query so it applies to both the page and the total.
func (r *GormAuditRepository) List(ctx context.Context, filter AuditFilter) ([]models.AuditLog, int64, error) {
	superAdmins := r.db.Unscoped().Model(&models.User{}).
		Select("id").
		Where("role = ?", authz.RoleSuperAdmin)

	query := r.db.WithContext(ctx).Model(&models.AuditLog{}).
		Scopes(database.ForTenant("audit_logs", filter.TenantID)).
		Where("(audit_logs.user_id IS NULL OR audit_logs.user_id NOT IN (?))", superAdmins)

	if filter.UserID != nil {
		query = query.Where("audit_logs.user_id = ?", *filter.UserID)
	}
	if filter.Action != "" {
		query = query.Where("audit_logs.action = ?", filter.Action)
	}
	if filter.ResourceType != "" {
		query = query.Where("audit_logs.resource_type = ?", filter.ResourceType)
	}
	if filter.ResourceID != "" {
		query = query.Where("audit_logs.resource_id = ?", filter.ResourceID)
	}
	if filter.From != nil {
		query = query.Where("audit_logs.created_at >= ?", *filter.From)
	}
	if filter.To != nil {
		query = query.Where("audit_logs.created_at < ?", *filter.To)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("audit_logs.created_at DESC, audit_logs.id DESC")
	if page, ok := utils.NewPage(filter.Page, filter.PageSize); ok {
		listQuery = listQuery.Scopes(database.Paginate(page))
	}

	var entries []models.AuditLog
	if err := listQuery.Find(&entries).Error; err != nil {
		return nil, 0, err
	}
	return entries, total, nil
}
