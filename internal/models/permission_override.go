package models

import (
	"time"

	"github.com/yukikurage/taskhub-api/internal/authz"
)

// PermissionOverride replaces the role defaults of a single user.
type PermissionOverride struct {
	ID          uint64       `gorm:"primarykey" json:"id"`
	UserID      uint64       `gorm:"uniqueIndex;not null" json:"user_id"`
	TenantID    *uint64      `gorm:"index" json:"tenant_id"`
	Permissions authz.Matrix `gorm:"serializer:json;type:text;not null" json:"permissions"`
	IsActive    bool         `gorm:"not null;default:true" json:"is_active"`
	UpdatedBy   uint64       `json:"updated_by"`
	CreatedAt   time.Time    `json:"created_at"`
	UpdatedAt   time.Time    `json:"updated_at"`
}
