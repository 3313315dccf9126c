package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/yukikurage/taskhub-api/internal/audit"
	"github.com/yukikurage/taskhub-api/internal/auth"
	"github.com/yukikurage/taskhub-api/internal/models"
	"github.com/yukikurage/taskhub-api/internal/repository"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// dummyPasswordHash is compared against when the email is unknown so that
// both failure paths cost one bcrypt comparison.
var dummyPasswordHash = sync.OnceValue(func() []byte {
	hash, err := bcrypt.GenerateFromPassword([]byte("taskhub-unknown-account"), bcrypt.DefaultCost)
	if err != nil {
		panic(fmt.Sprintf("failed to hash dummy password: %v", err))
	}
	return hash
})

// AuthService handles authentication related business logic.
type AuthService struct {
	userRepo   repository.UserRepository
	tenantRepo repository.TenantRepository
	auth       *auth.Authenticator
	audit      AuditRecorder
	compare    func(hash, password []byte) error
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repository.UserRepository, tenantRepo repository.TenantRepository, authenticator *auth.Authenticator, recorder AuditRecorder) *AuthService {
	if recorder == nil {
		recorder = discardAudit{}
	}
	return &AuthService{
		userRepo:   userRepo,
		tenantRepo: tenantRepo,
		auth:       authenticator,
		audit:      recorder,
		compare:    bcrypt.CompareHashAndPassword,
	}
}

// LoginInput holds the credentials for authentication.
type LoginInput struct {
	Email     string
	Password  string
	ClientIP  string
	UserAgent string
}

// LoginResult is a freshly issued credential.
type LoginResult struct {
	Token     string
	ExpiresAt time.Time
	User      *models.User
}

// Login verifies credentials and issues a signed token. Unknown emails, wrong
// passwords and inactive accounts are indistinguishable to the caller.
func (s *AuthService) Login(ctx context.Context, input LoginInput) (*LoginResult, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	actor := Actor{ClientIP: input.ClientIP, UserAgent: input.UserAgent}

	user, err := s.userRepo.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			_ = s.compare(dummyPasswordHash(), []byte(input.Password))
			s.recordFailure(ctx, actor, nil, email, "unknown_email")
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("failed to find user: %w", err)
	}

	actor.Principal = user.Principal()
	if user.TenantID != nil {
		actor.Tenant.ID = *user.TenantID
	}

	if err := s.compare([]byte(user.PasswordHash), []byte(input.Password)); err != nil {
		s.recordFailure(ctx, actor, user, email, "bad_password")
		return nil, ErrInvalidCredentials
	}
	if !user.IsActive {
		s.recordFailure(ctx, actor, user, email, "inactive_user")
		return nil, ErrInvalidCredentials
	}
	if user.TenantID != nil {
		tenant, err := s.tenantRepo.FindByID(ctx, *user.TenantID)
		if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("failed to find tenant: %w", err)
		}
		if err != nil || !tenant.IsActive {
			s.recordFailure(ctx, actor, user, email, "inactive_tenant")
			return nil, ErrTenantInactive
		}
	}

	token, claims, err := s.auth.Issue(user.Principal())
	if err != nil {
		return nil, fmt.Errorf("failed to issue token: %w", err)
	}

	e := actor.entry(audit.ActionLogin, audit.ResourceSession, claims.ID)
	s.audit.Record(ctx, e)

	return &LoginResult{Token: token, ExpiresAt: claims.ExpiresAt.Time, User: user}, nil
}

func (s *AuthService) recordFailure(ctx context.Context, actor Actor, user *models.User, email, reason string) {
	e := actor.entry(audit.ActionLoginFailed, audit.ResourceSession, "")
	if user != nil {
		e.ResourceID = audit.ID(user.ID)
	}
	e.Metadata = map[string]any{"email": email, "reason": reason}
	s.audit.Record(ctx, e)
}

// Logout revokes the presented token for the rest of its lifetime.
func (s *AuthService) Logout(ctx context.Context, actor Actor, token string, claims *auth.Claims) error {
	if err := s.auth.Revoke(ctx, token, claims); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}

	jti := ""
	if claims != nil {
		jti = claims.ID
	}
	s.audit.Record(ctx, actor.entry(audit.ActionLogout, audit.ResourceSession, jti))
	return nil
}

// Me returns the account of the authenticated actor.
func (s *AuthService) Me(ctx context.Context, actor Actor) (*models.User, error) {
	user, err := s.userRepo.FindByID(ctx, actor.Principal.ID)
	if err != nil {
		return nil, lookupError(err, ErrUserNotFound, "user")
	}
	return user, nil
}

// HashPassword hashes a plain-text password with bcrypt.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hashed), nil
}
