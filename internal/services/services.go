package services

import (
	"context"
	"errors"
	"fmt"
	"net/mail"
	"strings"

	"github.com/yukikurage/taskhub-api/internal/audit"
	"github.com/yukikurage/taskhub-api/internal/authz"
	"gorm.io/gorm"
)

// Not found errors
var (
	ErrTenantNotFound   = errors.New("tenant not found")
	ErrUserNotFound     = errors.New("user not found")
	ErrProjectNotFound  = errors.New("project not found")
	ErrMemberNotFound   = errors.New("project member not found")
	ErrTaskNotFound     = errors.New("task not found")
	ErrCommentNotFound  = errors.New("comment not found")
	ErrOverrideNotFound = errors.New("permission override not found")
)

// Validation errors
var (
	ErrNameRequired       = errors.New("name is required")
	ErrSlugInvalid        = errors.New("slug must be 2-100 lowercase letters, digits or dashes")
	ErrSlugTaken          = errors.New("slug already exists")
	ErrInvalidEmail       = errors.New("invalid email address")
	ErrEmailTaken         = errors.New("email already exists")
	ErrPasswordTooShort   = errors.New("password too short")
	ErrInvalidRole        = errors.New("invalid role")
	ErrInvalidMemberRole  = errors.New("invalid project member role")
	ErrInvalidAssignee    = errors.New("assignee does not belong to the tenant")
	ErrInvalidManager     = errors.New("manager does not belong to the tenant")
	ErrTitleRequired      = errors.New("title is required")
	ErrCommentEmpty       = errors.New("comment cannot be empty")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrUserInactive       = errors.New("user account is inactive")
	ErrTenantInactive     = errors.New("tenant is inactive")
)

// Actor is the authenticated caller of a service operation together with the
// tenant bound to the request.
type Actor struct {
	Principal authz.Principal
	Tenant    authz.TenantContext
	ClientIP  string
	UserAgent string
}

// AuditRecorder appends to the audit trail without blocking.
type AuditRecorder interface {
	Record(ctx context.Context, e audit.Entry)
}

type discardAudit struct{}

func (discardAudit) Record(context.Context, audit.Entry) {}

// entry starts an audit entry attributed to the actor.
func (a Actor) entry(action audit.Action, resourceType, resourceID string) audit.Entry {
	e := audit.Entry{
		Action:       action,
		ResourceType: resourceType,
		ResourceID:   resourceID,
		IPAddress:    a.ClientIP,
		UserAgent:    a.UserAgent,
	}
	if a.Principal.ID != 0 {
		id := a.Principal.ID
		e.UserID = &id
	}
	if a.Tenant.ID != 0 {
		id := a.Tenant.ID
		e.TenantID = &id
	}
	return e
}

// scope returns the tenant that resource lookups are bound to. Rows of any
// other tenant then read as missing.
func (a Actor) scope() (uint64, error) {
	if err := authz.RequireResourceScope(a.Principal, a.Tenant); err != nil {
		return 0, err
	}
	return a.Tenant.ID, nil
}

// lookupError maps a missing row to notFound and wraps anything else.
func lookupError(err, notFound error, what string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return notFound
	}
	return fmt.Errorf("failed to find %s: %w", what, err)
}

func normalizeEmail(email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	addr, err := mail.ParseAddress(email)
	if err != nil || addr.Address != email {
		return "", ErrInvalidEmail
	}
	return email, nil
}

func uniqueUint64(values []uint64) []uint64 {
	seen := make(map[uint64]struct{}, len(values))
	result := make([]uint64, 0, len(values))
	for _, v := range values {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		result = append(result, v)
	}
	return result
}
