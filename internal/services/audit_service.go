package services

import (
	"context"
	"fmt"
	"time"

	"github.com/yukikurage/taskhub-api/internal/authz"
	"github.com/yukikurage/taskhub-api/internal/models"
	"github.com/yukikurage/taskhub-api/internal/repository"
)

// AuditService lists the audit trail of the bound tenant (category AUDIT).
type AuditService struct {
	auditRepo repository.AuditRepository
	engine    *authz.Engine
}

func NewAuditService(auditRepo repository.AuditRepository, engine *authz.Engine) *AuditService {
	return &AuditService{auditRepo: auditRepo, engine: engine}
}

type ListAuditInput struct {
	UserID       *uint64
	Action       string
	ResourceType string
	ResourceID   string
	From         *time.Time
	To           *time.Time
	Page         int
	PageSize     int
}

// List returns entries newest first. Entries caused by super admins never
// appear, not even when filtering by their user id.
func (s *AuditService) List(ctx context.Context, actor Actor, input ListAuditInput) ([]models.AuditLog, int64, error) {
	if err := s.engine.Check(ctx, actor.Principal, actor.Tenant, authz.Request{
		Action: authz.ActionRead, Category: authz.CategoryAudit, Collection: true,
	}); err != nil {
		return nil, 0, err
	}

	entries, total, err := s.auditRepo.List(ctx, repository.AuditFilter{
		TenantID:     actor.Tenant.ID,
		UserID:       input.UserID,
		Action:       input.Action,
		ResourceType: input.ResourceType,
		ResourceID:   input.ResourceID,
		From:         input.From,
		To:           input.To,
		Page:         input.Page,
		PageSize:     input.PageSize,
	})
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list audit logs: %w", err)
	}
	return entries, total, nil
}
