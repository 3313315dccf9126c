package dto

import (
	"time"

	"github.com/yukikurage/taskhub-api/internal/authz"
	"github.com/yukikurage/taskhub-api/internal/models"
)

// ProjectMemberDTO represents a member in a project
type ProjectMemberDTO struct {
	UserID   uint64           `json:"user_id"`
	Name     string           `json:"name,omitempty"`
	Role     authz.MemberRole `json:"role"`
	JoinedAt time.Time        `json:"joined_at"`
}

// ProjectDTO represents a project in API responses
type ProjectDTO struct {
	ID          uint64             `json:"id"`
	TenantID    uint64             `json:"tenant_id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	OwnerID     uint64             `json:"owner_id"`
	ManagerID   uint64             `json:"manager_id"`
	CreatedAt   time.Time          `json:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at"`
	Members     []ProjectMemberDTO `json:"members,omitempty"`
}

func ToProjectDTO(project models.Project) ProjectDTO {
	dto := ProjectDTO{
		ID:          project.ID,
		TenantID:    project.TenantID,
		Name:        project.Name,
		Description: project.Description,
		OwnerID:     project.OwnerID,
		ManagerID:   project.ManagerID,
		CreatedAt:   project.CreatedAt,
		UpdatedAt:   project.UpdatedAt,
	}

	// Include members if preloaded
	if len(project.Members) > 0 {
		dto.Members = make([]ProjectMemberDTO, len(project.Members))
		for i, m := range project.Members {
			dto.Members[i] = ProjectMemberDTO{UserID: m.UserID, Name: m.User.Name, Role: m.Role, JoinedAt: m.JoinedAt}
		}
	}
	return dto
}

func ToProjectDTOs(projects []models.Project) []ProjectDTO {
	out := make([]ProjectDTO, len(projects))
	for i, p := range projects {
		out[i] = ToProjectDTO(p)
	}
	return out
}
