package services

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/yukikurage/taskhub-api/internal/audit"
	"github.com/yukikurage/taskhub-api/internal/authz"
	"github.com/yukikurage/taskhub-api/internal/constants"
	"github.com/yukikurage/taskhub-api/internal/models"
	"github.com/yukikurage/taskhub-api/internal/repository"
	"github.com/yukikurage/taskhub-api/internal/utils"
	"gorm.io/gorm"
)

var slugPattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]{1,99}$`)

// TenantService manages tenants. Every operation is in the TENANT category,
// which only super admins hold by default.
type TenantService struct {
	tenantRepo repository.TenantRepository
	userRepo   repository.UserRepository
	engine     *authz.Engine
	audit      AuditRecorder
}

func NewTenantService(tenantRepo repository.TenantRepository, userRepo repository.UserRepository, engine *authz.Engine, recorder AuditRecorder) *TenantService {
	if recorder == nil {
		recorder = discardAudit{}
	}
	return &TenantService{
		tenantRepo: tenantRepo,
		userRepo:   userRepo,
		engine:     engine,
		audit:      recorder,
	}
}

// InitialAdminInput describes the first ORG_ADMIN of a new tenant. A blank
// password is replaced by a generated temporary one.
type InitialAdminInput struct {
	Email    string
	Name     string
	Password string
}

type CreateTenantInput struct {
	Name  string
	Slug  string
	Admin *InitialAdminInput
}

// CreateTenantResult carries the new tenant and, when requested, its first
// administrator. TemporaryPassword is only set when one was generated.
type CreateTenantResult struct {
	Tenant            *models.Tenant
	Admin             *models.User
	TemporaryPassword string
}

type UpdateTenantInput struct {
	Name     *string
	IsActive *bool
}

func (s *TenantService) authorize(ctx context.Context, actor Actor, action authz.Action) error {
	return s.engine.Check(ctx, actor.Principal, actor.Tenant, authz.Request{Action: action, Category: authz.CategoryTenant})
}

func (s *TenantService) Create(ctx context.Context, actor Actor, input CreateTenantInput) (*CreateTenantResult, error) {
	if err := s.authorize(ctx, actor, authz.ActionCreate); err != nil {
		return nil, err
	}

	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}
	slug := strings.ToLower(strings.TrimSpace(input.Slug))
	if !slugPattern.MatchString(slug) {
		return nil, ErrSlugInvalid
	}

	tenant := &models.Tenant{Name: name, Slug: slug, IsActive: true}
	result := &CreateTenantResult{Tenant: tenant}

	var admin *models.User
	if input.Admin != nil {
		var err error
		admin, result.TemporaryPassword, err = s.newAdmin(ctx, *input.Admin)
		if err != nil {
			return nil, err
		}
		result.Admin = admin
	}

	if err := s.tenantRepo.Create(ctx, tenant, admin); err != nil {
		switch {
		case errors.Is(err, repository.ErrCreateTenant) && errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, ErrSlugTaken
		case errors.Is(err, repository.ErrCreateTenantAdmin) && errors.Is(err, gorm.ErrDuplicatedKey):
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create tenant: %w", err)
	}

	e := actor.entry(audit.ActionCreate, audit.ResourceTenant, audit.ID(tenant.ID))
	e.TenantID = &tenant.ID
	e.After = tenant
	s.audit.Record(ctx, e)

	if admin != nil {
		e := actor.entry(audit.ActionCreate, audit.ResourceUser, audit.ID(admin.ID))
		e.TenantID = &tenant.ID
		e.After = admin
		s.audit.Record(ctx, e)
	}
	return result, nil
}

func (s *TenantService) newAdmin(ctx context.Context, input InitialAdminInput) (*models.User, string, error) {
	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, "", err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, "", ErrNameRequired
	}

	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, "", ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", fmt.Errorf("failed to check email: %w", err)
	}

	password, temporary := input.Password, ""
	if password == "" {
		if temporary, err = utils.GenerateTemporaryPassword(constants.TemporaryPasswordSize); err != nil {
			return nil, "", err
		}
		password = temporary
	} else if len(password) < constants.MinPasswordLength {
		return nil, "", ErrPasswordTooShort
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, "", err
	}
	return &models.User{
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         authz.RoleOrgAdmin,
		IsActive:     true,
	}, temporary, nil
}

func (s *TenantService) List(ctx context.Context, actor Actor, page, pageSize int) ([]models.Tenant, int64, error) {
	if err := s.authorize(ctx, actor, authz.ActionRead); err != nil {
		return nil, 0, err
	}
	tenants, total, err := s.tenantRepo.List(ctx, page, pageSize)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list tenants: %w", err)
	}
	return tenants, total, nil
}

func (s *TenantService) Get(ctx context.Context, actor Actor, id uint64) (*models.Tenant, error) {
	if err := s.authorize(ctx, actor, authz.ActionRead); err != nil {
		return nil, err
	}
	tenant, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, ErrTenantNotFound, "tenant")
	}
	return tenant, nil
}

func (s *TenantService) Update(ctx context.Context, actor Actor, id uint64, input UpdateTenantInput) (*models.Tenant, error) {
	if err := s.authorize(ctx, actor, authz.ActionUpdate); err != nil {
		return nil, err
	}
	tenant, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		return nil, lookupError(err, ErrTenantNotFound, "tenant")
	}
	before := *tenant

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		tenant.Name = name
	}
	if input.IsActive != nil {
		tenant.IsActive = *input.IsActive
	}

	if err := s.tenantRepo.Update(ctx, tenant); err != nil {
		return nil, fmt.Errorf("failed to update tenant: %w", err)
	}

	e := actor.entry(audit.ActionUpdate, audit.ResourceTenant, audit.ID(tenant.ID))
	e.TenantID = &tenant.ID
	e.Before, e.After = before, tenant
	s.audit.Record(ctx, e)
	return tenant, nil
}

// Delete soft deletes the tenant row. Data owned by the tenant is kept.
func (s *TenantService) Delete(ctx context.Context, actor Actor, id uint64) error {
	if err := s.authorize(ctx, actor, authz.ActionDelete); err != nil {
		return err
	}
	tenant, err := s.tenantRepo.FindByID(ctx, id)
	if err != nil {
		return lookupError(err, ErrTenantNotFound, "tenant")
	}
	if err := s.tenantRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete tenant: %w", err)
	}

	e := actor.entry(audit.ActionDelete, audit.ResourceTenant, audit.ID(id))
	e.TenantID = &id
	e.Before = tenant
	s.audit.Record(ctx, e)
	return nil
}
