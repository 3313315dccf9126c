package repository

import (
	"context"
	"strings"

	"github.com/yukikurage/taskhub-api/internal/authz"
	"github.com/yukikurage/taskhub-api/internal/database"
	"github.com/yukikurage/taskhub-api/internal/models"
	"github.com/yukikurage/taskhub-api/internal/utils"
	"gorm.io/gorm"
)

// GormUserRepository is a GORM implementation of UserRepository
type GormUserRepository struct {
	db *gorm.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	return &GormUserRepository{db: db}
}

// Create creates a new user
func (r *GormUserRepository) Create(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Create(user).Error
}

// FindByID finds a user by ID
func (r *GormUserRepository) FindByID(ctx context.Context, id uint64) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

// FindVisible finds a user of the tenant or a super admin by ID
func (r *GormUserRepository) FindVisible(ctx context.Context, tenantID, id uint64) (*models.User, error) {
	var user models.User
	err := r.db.WithContext(ctx).
		Where("(users.tenant_id = ? OR users.role = ?)", tenantID, authz.RoleSuperAdmin).
		First(&user, id).Error
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// FindByEmail finds a user by email, case-insensitively
func (r *GormUserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", strings.ToLower(email)).First(&user).Error; err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *GormUserRepository) List(ctx context.Context, filter UserFilter) ([]models.User, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.User{})

	if filter.TenantID != nil {
		query = query.Where("users.tenant_id = ?", *filter.TenantID)
	}
	if len(filter.Roles) > 0 {
		query = query.Where("users.role IN ?", filter.Roles)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("(LOWER(users.name) LIKE ? OR users.email LIKE ?)", like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("users.id ASC")
	if page, ok := utils.NewPage(filter.Page, filter.PageSize); ok {
		listQuery = listQuery.Scopes(database.Paginate(page))
	}

	var users []models.User
	if err := listQuery.Find(&users).Error; err != nil {
		return nil, 0, err
	}
	return users, total, nil
}

// Update updates a user
func (r *GormUserRepository) Update(ctx context.Context, user *models.User) error {
	return r.db.WithContext(ctx).Omit("Tenant").Save(user).Error
}

// Delete soft deletes a user
func (r *GormUserRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&models.User{}, id).Error
}

// CountInTenant counts how many of the given user IDs belong to the tenant
func (r *GormUserRepository) CountInTenant(ctx context.Context, tenantID uint64, userIDs []uint64) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("tenant_id = ? AND id IN ?", tenantID, userIDs).
		Count(&count).Error
	return count, err
}

// ListIDsByRole returns the IDs of active users with the role in a tenant
func (r *GormUserRepository) ListIDsByRole(ctx context.Context, tenantID uint64, role authz.Role) ([]uint64, error) {
	var ids []uint64
	err := r.db.WithContext(ctx).Model(&models.User{}).
		Where("tenant_id = ? AND role = ? AND is_active = ?", tenantID, role, true).
		Order("id").
		Pluck("id", &ids).Error
	return ids, err
}
