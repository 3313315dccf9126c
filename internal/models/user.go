package models

import (
	"time"

	"github.com/yukikurage/taskhub-api/internal/authz"
	"gorm.io/gorm"
)

type User struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	TenantID     *uint64        `gorm:"index" json:"tenant_id"`
	Email        string         `gorm:"type:varchar(255);uniqueIndex;not null" json:"email"`
	Name         string         `gorm:"type:varchar(255);not null" json:"name"`
	PasswordHash string         `gorm:"type:varchar(255);not null" json:"-"`
	Role         authz.Role     `gorm:"type:varchar(32);not null;index" json:"role"`
	IsActive     bool           `gorm:"not null;default:true" json:"is_active"`
	CreatedAt    time.Time      `json:"created_at"`
	UpdatedAt    time.Time      `json:"updated_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Tenant *Tenant `gorm:"foreignKey:TenantID" json:"-"`
}

// Facts returns the authorization view of the user.
func (u User) Facts() authz.UserFacts {
	return authz.UserFacts{ID: u.ID, TenantID: u.TenantID, Role: u.Role}
}

// Principal returns the principal this user acts as.
func (u User) Principal() authz.Principal {
	return authz.Principal{ID: u.ID, Role: u.Role, TenantID: u.TenantID}
}
