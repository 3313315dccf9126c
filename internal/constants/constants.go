package constants

import "time"

// Context keys shared between middleware and handlers
const (
	ContextKeyUserID    = "user_id"
	ContextKeyPrincipal = "principal"
	ContextKeyTenant    = "tenant"
	ContextKeyToken     = "access_token"
	ContextKeyRequestID = "request_id"
)

// Session
const (
	SessionCookieName = "taskhub_session"
	SessionKeyToken   = "access_token"
)

// Tenant resolution sources, in precedence order
const (
	HeaderTenantID  = "X-Tenant-ID"
	QueryTenantID   = "tenant_id"
	HeaderRequestID = "X-Request-ID"
)

// Validation
const (
	MinPasswordLength     = 8
	TemporaryPasswordSize = 12
	MaxAIGeneratedTasks   = 20
)

// Pagination
const (
	MinPageSize     = 1
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Background work
const (
	DefaultAuditWriteTimeout = 5 * time.Second
	DefaultNotifyQueueSize   = 256
)
