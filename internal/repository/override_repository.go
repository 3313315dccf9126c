package repository

import (
	"context"

	"github.com/yukikurage/taskhub-api/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormOverrideRepository is a GORM implementation of OverrideRepository
type GormOverrideRepository struct {
	db *gorm.DB
}

// NewOverrideRepository creates a new OverrideRepository
func NewOverrideRepository(db *gorm.DB) OverrideRepository {
	return &GormOverrideRepository{db: db}
}

func (r *GormOverrideRepository) FindByUserID(ctx context.Context, userID uint64) (*models.PermissionOverride, error) {
	var override models.PermissionOverride
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&override).Error; err != nil {
		return nil, err
	}
	return &override, nil
}

// Upsert relies on the unique user_id index so concurrent writers for the same
// user converge on a single row; the last write wins.
func (r *GormOverrideRepository) Upsert(ctx context.Context, override *models.PermissionOverride) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "user_id"}},
			DoUpdates: clause.AssignmentColumns([]string{"tenant_id", "permissions", "is_active", "updated_by", "updated_at"}),
		}).
		Create(override).Error
}

func (r *GormOverrideRepository) ListByUserIDs(ctx context.Context, userIDs []uint64) ([]models.PermissionOverride, error) {
	if len(userIDs) == 0 {
		return []models.PermissionOverride{}, nil
	}
	var overrides []models.PermissionOverride
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&overrides).Error; err != nil {
		return nil, err
	}
	return overrides, nil
}
