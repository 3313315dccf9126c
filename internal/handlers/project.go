package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskhub-api/internal/authz"
	"github.com/yukikurage/taskhub-api/internal/dto"
	apierrors "github.com/yukikurage/taskhub-api/internal/errors"
	"github.com/yukikurage/taskhub-api/internal/services"
	"github.com/yukikurage/taskhub-api/internal/utils"
)

type ProjectHandler struct {
	projectService *services.ProjectService
}

func NewProjectHandler(projectService *services.ProjectService) *ProjectHandler {
	return &ProjectHandler{projectService: projectService}
}

func (h *ProjectHandler) CreateProject(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	type CreateProjectRequest struct {
		Name        string  `json:"name" binding:"required"`
		Description string  `json:"description"`
		ManagerID   *uint64 `json:"manager_id"`
	}
	var req CreateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.projectService.Create(c.Request.Context(), actor, services.CreateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		ManagerID:   req.ManagerID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToProjectDTO(*project))
}

// ListProjects returns the projects of the tenant. mine=true keeps only the
// projects the caller takes part in.
func (h *ProjectHandler) ListProjects(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	page := utils.PageFromQuery(c)

	projects, total, err := h.projectService.List(c.Request.Context(), actor, services.ListProjectsInput{
		Mine:     c.Query("mine") == "true",
		Page:     page.Number,
		PageSize: page.Size,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(dto.ToProjectDTOs(projects), page.Number, page.Size, total))
}

func (h *ProjectHandler) GetProject(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	project, err := h.projectService.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

func (h *ProjectHandler) UpdateProject(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	type UpdateProjectRequest struct {
		Name        *string `json:"name"`
		Description *string `json:"description"`
		ManagerID   *uint64 `json:"manager_id"`
	}
	var req UpdateProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	project, err := h.projectService.Update(c.Request.Context(), actor, id, services.UpdateProjectInput{
		Name:        req.Name,
		Description: req.Description,
		ManagerID:   req.ManagerID,
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

func (h *ProjectHandler) DeleteProject(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.projectService.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Project deleted successfully"})
}

// PutMember adds a member or changes its member role.
func (h *ProjectHandler) PutMember(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	userID, ok := parseID(c, "user_id")
	if !ok {
		return
	}

	type PutMemberRequest struct {
		Role authz.MemberRole `json:"role"`
	}
	var req PutMemberRequest
	// An empty body means the default member role
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			apierrors.BadRequest(c, "Invalid request body")
			return
		}
	}

	project, err := h.projectService.AddMember(c.Request.Context(), actor, projectID, userID, req.Role)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToProjectDTO(*project))
}

func (h *ProjectHandler) RemoveMember(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	projectID, ok := parseID(c, "id")
	if !ok {
		return
	}
	userID, ok := parseID(c, "user_id")
	if !ok {
		return
	}

	if err := h.projectService.RemoveMember(c.Request.Context(), actor, projectID, userID); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Member removed successfully"})
}
