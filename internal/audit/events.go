package audit

import (
	"encoding/json"
	"strconv"
)

// Action is the kind of audited operation.
type Action string

const (
	ActionCreate          Action = "CREATE"
	ActionUpdate          Action = "UPDATE"
	ActionDelete          Action = "DELETE"
	ActionStatusChange    Action = "STATUS_CHANGE"
	ActionAssign          Action = "ASSIGN"
	ActionLogin           Action = "LOGIN"
	ActionLoginFailed     Action = "LOGIN_FAILED"
	ActionLogout          Action = "LOGOUT"
	ActionPermissionSet   Action = "PERMISSION_SET"
	ActionPermissionReset Action = "PERMISSION_RESET"
)

// Resource types recorded in the trail.
const (
	ResourceTenant     = "tenant"
	ResourceUser       = "user"
	ResourceProject    = "project"
	ResourceMember     = "project_member"
	ResourceTask       = "task"
	ResourceComment    = "task_comment"
	ResourcePermission = "permission_override"
	ResourceSession    = "session"
)

// Entry is a single state change to append to the trail.
type Entry struct {
	TenantID     *uint64
	UserID       *uint64
	Action       Action
	ResourceType string
	ResourceID   string
	Before       any
	After        any
	IPAddress    string
	UserAgent    string
	Metadata     map[string]any
}

// ID formats a numeric resource id.
func ID(id uint64) string {
	return strconv.FormatUint(id, 10)
}

// Snapshot converts a value into the opaque JSON object stored in before/after
// columns. Values that do not encode to an object are wrapped under "value".
func Snapshot(v any) map[string]any {
	if v == nil {
		return nil
	}
	if m, ok := v.(map[string]any); ok {
		return m
	}

	raw, err := json.Marshal(v)
	if err != nil {
		return map[string]any{"error": err.Error()}
	}
	var out map[string]any
	if err := json.Unmarshal(raw, &out); err != nil {
		var value any
		_ = json.Unmarshal(raw, &value)
		return map[string]any{"value": value}
	}
	return out
}
