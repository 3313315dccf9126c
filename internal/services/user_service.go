package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/yukikurage/taskhub-api/internal/audit"
	"github.com/yukikurage/taskhub-api/internal/authz"
	"github.com/yukikurage/taskhub-api/internal/constants"
	"github.com/yukikurage/taskhub-api/internal/models"
	"github.com/yukikurage/taskhub-api/internal/repository"
	"github.com/yukikurage/taskhub-api/internal/utils"
	"gorm.io/gorm"
)

// UserService manages the users of the bound tenant (category USER).
type UserService struct {
	userRepo repository.UserRepository
	engine   *authz.Engine
	audit    AuditRecorder
}

func NewUserService(userRepo repository.UserRepository, engine *authz.Engine, recorder AuditRecorder) *UserService {
	if recorder == nil {
		recorder = discardAudit{}
	}
	return &UserService{userRepo: userRepo, engine: engine, audit: recorder}
}

type CreateUserInput struct {
	Email    string
	Name     string
	Password string
	Role     string
}

// CreateUserResult carries the created user. TemporaryPassword is only set when
// the caller did not supply a password.
type CreateUserResult struct {
	User              *models.User
	TemporaryPassword string
}

type UpdateUserInput struct {
	Name     *string
	Role     *string
	IsActive *bool
	Password *string
}

type ListUsersInput struct {
	Role     *string
	Search   string
	Page     int
	PageSize int
}

func (s *UserService) check(ctx context.Context, actor Actor, action authz.Action, target *models.User) error {
	req := authz.Request{Action: action, Category: authz.CategoryUser}
	if target != nil {
		facts := target.Facts()
		req.Facts.TargetUser = &facts
	}
	return s.engine.Check(ctx, actor.Principal, actor.Tenant, req)
}

func (s *UserService) Create(ctx context.Context, actor Actor, input CreateUserInput) (*CreateUserResult, error) {
	role, err := authz.ParseRole(input.Role)
	if err != nil {
		return nil, ErrInvalidRole
	}

	// The prospective user is checked as a target so that creating a super
	// admin is refused like managing one.
	tenantID := actor.Tenant.ID
	prospect := &models.User{TenantID: &tenantID, Role: role}
	if err := s.check(ctx, actor, authz.ActionCreate, prospect); err != nil {
		return nil, err
	}

	email, err := normalizeEmail(input.Email)
	if err != nil {
		return nil, err
	}
	name := strings.TrimSpace(input.Name)
	if name == "" {
		return nil, ErrNameRequired
	}

	if _, err := s.userRepo.FindByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	password, temporary := input.Password, ""
	if password == "" {
		if temporary, err = utils.GenerateTemporaryPassword(constants.TemporaryPasswordSize); err != nil {
			return nil, err
		}
		password = temporary
	} else if len(password) < constants.MinPasswordLength {
		return nil, ErrPasswordTooShort
	}
	hash, err := HashPassword(password)
	if err != nil {
		return nil, err
	}

	user := &models.User{
		TenantID:     &tenantID,
		Email:        email,
		Name:         name,
		PasswordHash: hash,
		Role:         role,
		IsActive:     true,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}

	e := actor.entry(audit.ActionCreate, audit.ResourceUser, audit.ID(user.ID))
	e.After = user
	s.audit.Record(ctx, e)

	return &CreateUserResult{User: user, TemporaryPassword: temporary}, nil
}

func (s *UserService) List(ctx context.Context, actor Actor, input ListUsersInput) ([]models.User, int64, error) {
	if err := s.engine.Check(ctx, actor.Principal, actor.Tenant, authz.Request{
		Action: authz.ActionRead, Category: authz.CategoryUser, Collection: true,
	}); err != nil {
		return nil, 0, err
	}

	tenantID := actor.Tenant.ID
	filter := repository.UserFilter{
		TenantID: &tenantID,
		Search:   input.Search,
		Page:     input.Page,
		PageSize: input.PageSize,
	}
	if input.Role != nil {
		role, err := authz.ParseRole(*input.Role)
		if err != nil {
			return nil, 0, ErrInvalidRole
		}
		filter.Roles = []authz.Role{role}
	}

	users, total, err := s.userRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list users: %w", err)
	}
	return users, total, nil
}

// find loads a user of the actor's tenant or a super admin, so that managing
// one is refused rather than reported missing.
func (s *UserService) find(ctx context.Context, actor Actor, id uint64) (*models.User, error) {
	tenantID, err := actor.scope()
	if err != nil {
		return nil, err
	}
	user, err := s.userRepo.FindVisible(ctx, tenantID, id)
	if err != nil {
		return nil, lookupError(err, ErrUserNotFound, "user")
	}
	return user, nil
}

func (s *UserService) Get(ctx context.Context, actor Actor, id uint64) (*models.User, error) {
	user, err := s.find(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx, actor, authz.ActionRead, user); err != nil {
		return nil, err
	}
	return user, nil
}

// Update changes profile fields, role, activation or password. Nobody can
// change their own role or deactivate themselves.
func (s *UserService) Update(ctx context.Context, actor Actor, id uint64, input UpdateUserInput) (*models.User, error) {
	user, err := s.find(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if err := s.check(ctx, actor, authz.ActionUpdate, user); err != nil {
		return nil, err
	}
	before := *user

	if input.Name != nil {
		name := strings.TrimSpace(*input.Name)
		if name == "" {
			return nil, ErrNameRequired
		}
		user.Name = name
	}
	if input.Role != nil {
		role, err := authz.ParseRole(*input.Role)
		if err != nil {
			return nil, ErrInvalidRole
		}
		if role == authz.RoleSuperAdmin {
			return nil, authz.ErrCannotManageSuperAdmin
		}
		if role != user.Role && user.ID == actor.Principal.ID {
			return nil, authz.ErrCannotModifySelf
		}
		user.Role = role
	}
	if input.IsActive != nil {
		if !*input.IsActive && user.ID == actor.Principal.ID {
			return nil, authz.ErrCannotModifySelf
		}
		user.IsActive = *input.IsActive
	}
	if input.Password != nil {
		if len(*input.Password) < constants.MinPasswordLength {
			return nil, ErrPasswordTooShort
		}
		hash, err := HashPassword(*input.Password)
		if err != nil {
			return nil, err
		}
		user.PasswordHash = hash
	}

	if err := s.userRepo.Update(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	e := actor.entry(audit.ActionUpdate, audit.ResourceUser, audit.ID(user.ID))
	e.Before, e.After = before, user
	s.audit.Record(ctx, e)
	return user, nil
}

func (s *UserService) Delete(ctx context.Context, actor Actor, id uint64) error {
	user, err := s.find(ctx, actor, id)
	if err != nil {
		return err
	}
	if err := s.check(ctx, actor, authz.ActionDelete, user); err != nil {
		return err
	}
	if user.ID == actor.Principal.ID {
		return authz.ErrCannotModifySelf
	}

	if err := s.userRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	e := actor.entry(audit.ActionDelete, audit.ResourceUser, audit.ID(id))
	e.Before = user
	s.audit.Record(ctx, e)
	return nil
}
