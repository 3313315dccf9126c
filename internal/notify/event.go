package notify

import (
	"fmt"
	"time"
)

// EventType names a notification kind.
type EventType string

const (
	EventTaskAssigned       EventType = "task.assigned"
	EventTaskStatusChanged  EventType = "task.status_changed"
	EventCommentAdded       EventType = "comment.added"
	EventPermissionsUpdated EventType = "permissions.updated"

	// EventReady is sent once when a stream is established.
	EventReady EventType = "ready"
)

// Event is what subscribers receive over the wire.
type Event struct {
	Type      EventType `json:"type"`
	Topic     string    `json:"topic"`
	Payload   any       `json:"payload,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// UserTopic is the topic of a single user.
func UserTopic(userID uint64) string {
	return fmt.Sprintf("user:%d", userID)
}

// TenantAdminsTopic is the topic shared by the administrators of a tenant.
func TenantAdminsTopic(tenantID uint64) string {
	return fmt.Sprintf("tenant-admins:%d", tenantID)
}
