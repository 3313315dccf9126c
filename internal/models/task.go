package models

import (
	"time"

	"github.com/yukikurage/taskhub-api/internal/authz"
	"gorm.io/gorm"
)

type Task struct {
	ID          uint64           `gorm:"primarykey" json:"id"`
	TenantID    uint64           `gorm:"not null;index" json:"tenant_id"`
	ProjectID   uint64           `gorm:"not null;index" json:"project_id"`
	Title       string           `gorm:"not null" json:"title"`
	Description string           `gorm:"type:text" json:"description"`
	Status      authz.TaskStatus `gorm:"type:varchar(20);not null;default:'TODO';index" json:"status"`
	DueDate     *time.Time       `json:"due_date"`
	AssigneeID  *uint64          `gorm:"index" json:"assignee_id"`
	ReporterID  uint64           `gorm:"not null" json:"reporter_id"`
	CreatedAt   time.Time        `json:"created_at"`
	UpdatedAt   time.Time        `json:"updated_at"`
	DeletedAt   gorm.DeletedAt   `gorm:"index" json:"-"`

	// Relations
	Project  Project       `gorm:"foreignKey:ProjectID" json:"project,omitempty"`
	Assignee *User         `gorm:"foreignKey:AssigneeID" json:"assignee,omitempty"`
	Reporter User          `gorm:"foreignKey:ReporterID" json:"reporter,omitempty"`
	Comments []TaskComment `gorm:"foreignKey:TaskID" json:"comments,omitempty"`
}

func (t Task) Facts() authz.TaskFacts {
	return authz.TaskFacts{
		ID:         t.ID,
		TenantID:   t.TenantID,
		ProjectID:  t.ProjectID,
		AssigneeID: t.AssigneeID,
		ReporterID: t.ReporterID,
	}
}

type TaskComment struct {
	ID        uint64         `gorm:"primarykey" json:"id"`
	TaskID    uint64         `gorm:"not null;index" json:"task_id"`
	AuthorID  uint64         `gorm:"not null" json:"author_id"`
	Body      string         `gorm:"type:text;not null" json:"body"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`

	// Relations
	Author User `gorm:"foreignKey:AuthorID" json:"author,omitempty"`
}

func (c TaskComment) Facts() authz.CommentFacts {
	return authz.CommentFacts{ID: c.ID, AuthorID: c.AuthorID}
}
