package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/yukikurage/taskhub-api/internal/database"
	"github.com/yukikurage/taskhub-api/internal/models"
	"github.com/yukikurage/taskhub-api/internal/utils"
	"gorm.io/gorm"
)

var (
	// ErrCreateTenant is returned when creating the tenant row fails.
	ErrCreateTenant = errors.New("tenant repository: create tenant failed")
	// ErrCreateTenantAdmin is returned when creating the initial administrator fails.
	ErrCreateTenantAdmin = errors.New("tenant repository: create tenant admin failed")
)

// GormTenantRepository is a GORM implementation of TenantRepository
type GormTenantRepository struct {
	db *gorm.DB
}

// NewTenantRepository creates a new TenantRepository
func NewTenantRepository(db *gorm.DB) TenantRepository {
	return &GormTenantRepository{db: db}
}

func (r *GormTenantRepository) Create(ctx context.Context, tenant *models.Tenant, admin *models.User) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(tenant).Error; err != nil {
			return fmt.Errorf("%w: %w", ErrCreateTenant, err)
		}
		if admin == nil {
			return nil
		}

		admin.TenantID = &tenant.ID
		if err := tx.Create(admin).Error; err != nil {
			return fmt.Errorf("%w: %w", ErrCreateTenantAdmin, err)
		}
		return nil
	})
}

func (r *GormTenantRepository) FindByID(ctx context.Context, id uint64) (*models.Tenant, error) {
	var tenant models.Tenant
	if err := r.db.WithContext(ctx).First(&tenant, id).Error; err != nil {
		return nil, err
	}
	return &tenant, nil
}

func (r *GormTenantRepository) List(ctx context.Context, page, pageSize int) ([]models.Tenant, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Tenant{})

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	listQuery := query.Order("created_at DESC, id DESC")
	if p, ok := utils.NewPage(page, pageSize); ok {
		listQuery = listQuery.Scopes(database.Paginate(p))
	}

	var tenants []models.Tenant
	if err := listQuery.Find(&tenants).Error; err != nil {
		return nil, 0, err
	}
	return tenants, total, nil
}

func (r *GormTenantRepository) Update(ctx context.Context, tenant *models.Tenant) error {
	return r.db.WithContext(ctx).Save(tenant).Error
}

func (r *GormTenantRepository) Delete(ctx context.Context, id uint64) error {
	return r.db.WithContext(ctx).Delete(&models.Tenant{}, id).Error
}
