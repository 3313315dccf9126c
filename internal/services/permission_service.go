package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/yukikurage/taskhub-api/internal/audit"
	"github.com/yukikurage/taskhub-api/internal/authz"
	"github.com/yukikurage/taskhub-api/internal/models"
	"github.com/yukikurage/taskhub-api/internal/notify"
	"github.com/yukikurage/taskhub-api/internal/repository"
	"gorm.io/gorm"
)

// PermissionService stores per-user permission overrides and answers which
// capabilities a user effectively holds.
type PermissionService struct {
	overrideRepo repository.OverrideRepository
	userRepo     repository.UserRepository
	audit        AuditRecorder
	notifier     notify.Publisher
}

func NewPermissionService(overrideRepo repository.OverrideRepository, userRepo repository.UserRepository, recorder AuditRecorder, notifier notify.Publisher) *PermissionService {
	if recorder == nil {
		recorder = discardAudit{}
	}
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &PermissionService{
		overrideRepo: overrideRepo,
		userRepo:     userRepo,
		audit:        recorder,
		notifier:     notifier,
	}
}

// UserPermissions is the effective matrix of one user.
type UserPermissions struct {
	User        models.User  `json:"user"`
	Permissions authz.Matrix `json:"permissions"`
	Overridden  bool         `json:"overridden"`
}

// Get returns the stored override of a user, active or not. ErrOverrideNotFound
// means the user runs on role defaults.
func (s *PermissionService) Get(ctx context.Context, userID uint64) (*models.PermissionOverride, error) {
	override, err := s.overrideRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, lookupError(err, ErrOverrideNotFound, "permission override")
	}
	return override, nil
}

// ActiveOverride implements authz.OverrideSource.
func (s *PermissionService) ActiveOverride(ctx context.Context, userID uint64) (*authz.Matrix, error) {
	override, err := s.overrideRepo.FindByUserID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	if !override.IsActive {
		return nil, nil
	}
	m := override.Permissions
	return &m, nil
}

func effective(user models.User, override *models.PermissionOverride) UserPermissions {
	if override != nil && override.IsActive {
		return UserPermissions{User: user, Permissions: override.Permissions.ClampTo(user.Role), Overridden: true}
	}
	return UserPermissions{User: user, Permissions: authz.RoleDefaults(user.Role)}
}

func (s *PermissionService) loadTarget(ctx context.Context, userID uint64) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		return nil, lookupError(err, ErrUserNotFound, "user")
	}
	return user, nil
}

// EffectivePermissions returns the matrix a user is authorized with. Everyone
// may read their own.
func (s *PermissionService) EffectivePermissions(ctx context.Context, actor Actor, userID uint64) (*UserPermissions, error) {
	user, err := s.loadTarget(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := authz.CanViewPermissions(actor.Principal, user.Facts()); err != nil {
		return nil, err
	}

	override, err := s.overrideRepo.FindByUserID(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to find permission override: %w", err)
	}
	result := effective(*user, override)
	return &result, nil
}

// List returns the effective permissions of every user the actor may manage:
// all users for super admins, project managers and employees of the own
// tenant for org admins.
func (s *PermissionService) List(ctx context.Context, actor Actor, page, pageSize int) ([]UserPermissions, int64, error) {
	filter := repository.UserFilter{Page: page, PageSize: pageSize}
	switch actor.Principal.Role {
	case authz.RoleSuperAdmin:
	case authz.RoleOrgAdmin:
		home, ok := actor.Principal.HomeTenant()
		if !ok {
			return nil, 0, authz.ErrTenantAccessDenied
		}
		filter.TenantID = &home
		filter.Roles = authz.OverrideScope(authz.RoleOrgAdmin)
	default:
		return nil, 0, authz.ErrInsufficientCapability
	}

	users, total, err := s.userRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}

	ids := make([]uint64, len(users))
	for i, u := range users {
		ids[i] = u.ID
	}
	overrides, err := s.overrideRepo.ListByUserIDs(ctx, ids)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list permission overrides: %w", err)
	}
	byUser := make(map[uint64]*models.PermissionOverride, len(overrides))
	for i := range overrides {
		byUser[overrides[i].UserID] = &overrides[i]
	}

	result := make([]UserPermissions, len(users))
	for i, u := range users {
		result[i] = effective(u, byUser[u.ID])
	}
	return result, total, nil
}

// Set replaces the override of a user.
func (s *PermissionService) Set(ctx context.Context, actor Actor, userID uint64, m authz.Matrix) (*UserPermissions, error) {
	return s.write(ctx, actor, userID, audit.ActionPermissionSet, func(models.User) authz.Matrix { return m })
}

// ResetToDefault stores the role defaults of the user as its override. The
// result is a snapshot: later changes to role defaults do not flow into it.
func (s *PermissionService) ResetToDefault(ctx context.Context, actor Actor, userID uint64) (*UserPermissions, error) {
	return s.write(ctx, actor, userID, audit.ActionPermissionReset, func(u models.User) authz.Matrix {
		return authz.RoleDefaults(u.Role)
	})
}

func (s *PermissionService) write(ctx context.Context, actor Actor, userID uint64, action audit.Action, matrixFor func(models.User) authz.Matrix) (*UserPermissions, error) {
	user, err := s.loadTarget(ctx, userID)
	if err != nil {
		return nil, err
	}
	if err := authz.CanEditPermissions(actor.Principal, user.Facts()); err != nil {
		return nil, err
	}

	previous, err := s.overrideRepo.FindByUserID(ctx, userID)
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to find permission override: %w", err)
	}
	before := effective(*user, previous).Permissions

	override := &models.PermissionOverride{
		UserID:      user.ID,
		TenantID:    user.TenantID,
		Permissions: matrixFor(*user).ClampTo(user.Role),
		IsActive:    true,
		UpdatedBy:   actor.Principal.ID,
		UpdatedAt:   time.Now().UTC(),
	}
	if err := s.overrideRepo.Upsert(ctx, override); err != nil {
		return nil, fmt.Errorf("failed to save permission override: %w", err)
	}

	e := actor.entry(action, audit.ResourcePermission, audit.ID(user.ID))
	e.TenantID = user.TenantID
	e.Before, e.After = before, override.Permissions
	s.audit.Record(ctx, e)

	payload := map[string]any{"user_id": user.ID, "permissions": override.Permissions}
	s.notifier.Publish(user.ID, notify.EventPermissionsUpdated, payload)
	if user.TenantID != nil {
		s.notifier.PublishToTenantAdmins(*user.TenantID, notify.EventPermissionsUpdated, payload)
	}

	result := effective(*user, override)
	return &result, nil
}
