package models

import (
	"time"

	"github.com/yukikurage/taskhub-api/internal/authz"
	"gorm.io/gorm"
)

type Project struct {
	ID          uint64         `gorm:"primarykey" json:"id"`
	TenantID    uint64         `gorm:"not null;index" json:"tenant_id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Description string         `gorm:"type:text" json:"description"`
	OwnerID     uint64         `gorm:"not null" json:"owner_id"`
	ManagerID   uint64         `gorm:"not null;index" json:"manager_id"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Members []ProjectMember `gorm:"foreignKey:ProjectID" json:"members,omitempty"`
}

// Facts returns the snapshot consulted by ownership checks. Members must be
// preloaded for LEAD membership to count.
func (p Project) Facts() authz.ProjectFacts {
	members := make([]authz.MemberFacts, len(p.Members))
	for i, m := range p.Members {
		members[i] = authz.MemberFacts{UserID: m.UserID, Role: m.Role}
	}
	return authz.ProjectFacts{
		ID:        p.ID,
		TenantID:  p.TenantID,
		OwnerID:   p.OwnerID,
		ManagerID: p.ManagerID,
		Members:   members,
	}
}

type ProjectMember struct {
	ProjectID uint64           `gorm:"primarykey" json:"project_id"`
	UserID    uint64           `gorm:"primarykey" json:"user_id"`
	Role      authz.MemberRole `gorm:"type:varchar(20);not null" json:"role"`
	JoinedAt  time.Time        `json:"joined_at"`

	// Relations
	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
