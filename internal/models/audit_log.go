package models

import "time"

// AuditLog is an append-only record of a state change. Rows are never updated
// or deleted by the application.
type AuditLog struct {
	ID           uint64         `gorm:"primarykey" json:"id"`
	TenantID     *uint64        `gorm:"index" json:"tenant_id"`
	UserID       *uint64        `gorm:"index" json:"user_id"`
	Action       string         `gorm:"type:varchar(64);not null;index" json:"action"`
	ResourceType string         `gorm:"type:varchar(64);not null" json:"resource_type"`
	ResourceID   string         `gorm:"type:varchar(64)" json:"resource_id"`
	Before       map[string]any `gorm:"serializer:json;type:text" json:"before,omitempty"`
	After        map[string]any `gorm:"serializer:json;type:text" json:"after,omitempty"`
	IPAddress    string         `gorm:"type:varchar(64)" json:"ip_address,omitempty"`
	UserAgent    string         `gorm:"type:varchar(512)" json:"user_agent,omitempty"`
	Metadata     map[string]any `gorm:"serializer:json;type:text" json:"metadata,omitempty"`
	CreatedAt    time.Time      `gorm:"index" json:"created_at"`
}
