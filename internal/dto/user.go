package dto

import (
	"time"

	"github.com/yukikurage/taskhub-api/internal/authz"
	"github.com/yukikurage/taskhub-api/internal/models"
	"github.com/yukikurage/taskhub-api/internal/services"
)

// UserDTO represents a user in API responses
type UserDTO struct {
	ID        uint64     `json:"id"`
	TenantID  *uint64    `json:"tenant_id"`
	Email     string     `json:"email"`
	Name      string     `json:"name"`
	Role      authz.Role `json:"role"`
	IsActive  bool       `json:"is_active"`
	CreatedAt time.Time  `json:"created_at"`
}

// UserSummaryDTO is the compact form embedded in other resources
type UserSummaryDTO struct {
	ID   uint64 `json:"id"`
	Name string `json:"name"`
}

// CreatedUserDTO is returned once, on creation. TemporaryPassword is only
// present when the server generated it.
type CreatedUserDTO struct {
	User              UserDTO `json:"user"`
	TemporaryPassword string  `json:"temporary_password,omitempty"`
}

// TenantDTO represents a tenant in API responses
type TenantDTO struct {
	ID        uint64    `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	IsActive  bool      `json:"is_active"`
	CreatedAt time.Time `json:"created_at"`
}

type CreatedTenantDTO struct {
	Tenant            TenantDTO `json:"tenant"`
	Admin             *UserDTO  `json:"admin,omitempty"`
	TemporaryPassword string    `json:"temporary_password,omitempty"`
}

// LoginResponse carries the issued credential
type LoginResponse struct {
	Token     string    `json:"token"`
	TokenType string    `json:"token_type"`
	ExpiresAt time.Time `json:"expires_at"`
	User      UserDTO   `json:"user"`
}

// PermissionsDTO is the effective matrix of a user
type PermissionsDTO struct {
	User        UserDTO      `json:"user"`
	Permissions authz.Matrix `json:"permissions"`
	Overridden  bool         `json:"overridden"`
}

func ToUserDTO(user models.User) UserDTO {
	return UserDTO{
		ID:        user.ID,
		TenantID:  user.TenantID,
		Email:     user.Email,
		Name:      user.Name,
		Role:      user.Role,
		IsActive:  user.IsActive,
		CreatedAt: user.CreatedAt,
	}
}

func ToUserDTOs(users []models.User) []UserDTO {
	out := make([]UserDTO, len(users))
	for i, u := range users {
		out[i] = ToUserDTO(u)
	}
	return out
}

// toUserSummary returns nil unless the user was preloaded
func toUserSummary(user *models.User) *UserSummaryDTO {
	if user == nil || user.ID == 0 {
		return nil
	}
	return &UserSummaryDTO{ID: user.ID, Name: user.Name}
}

func ToTenantDTO(tenant models.Tenant) TenantDTO {
	return TenantDTO{
		ID:        tenant.ID,
		Name:      tenant.Name,
		Slug:      tenant.Slug,
		IsActive:  tenant.IsActive,
		CreatedAt: tenant.CreatedAt,
	}
}

func ToTenantDTOs(tenants []models.Tenant) []TenantDTO {
	out := make([]TenantDTO, len(tenants))
	for i, t := range tenants {
		out[i] = ToTenantDTO(t)
	}
	return out
}

func ToCreatedTenantDTO(r *services.CreateTenantResult) CreatedTenantDTO {
	out := CreatedTenantDTO{Tenant: ToTenantDTO(*r.Tenant), TemporaryPassword: r.TemporaryPassword}
	if r.Admin != nil {
		admin := ToUserDTO(*r.Admin)
		out.Admin = &admin
	}
	return out
}

func ToPermissionsDTO(p services.UserPermissions) PermissionsDTO {
	return PermissionsDTO{User: ToUserDTO(p.User), Permissions: p.Permissions, Overridden: p.Overridden}
}

func ToPermissionsDTOs(list []services.UserPermissions) []PermissionsDTO {
	out := make([]PermissionsDTO, len(list))
	for i, p := range list {
		out[i] = ToPermissionsDTO(p)
	}
	return out
}
