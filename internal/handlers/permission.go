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

// PermissionHandler serves per-user permission overrides.
type PermissionHandler struct {
	permissionService *services.PermissionService
}

func NewPermissionHandler(permissionService *services.PermissionService) *PermissionHandler {
	return &PermissionHandler{permissionService: permissionService}
}

func (h *PermissionHandler) ListPermissions(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	page := utils.PageFromQuery(c)

	list, total, err := h.permissionService.List(c.Request.Context(), actor, page.Number, page.Size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(dto.ToPermissionsDTOs(list), page.Number, page.Size, total))
}

func (h *PermissionHandler) GetPermissions(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	userID, ok := parseID(c, "user_id")
	if !ok {
		return
	}

	result, err := h.permissionService.EffectivePermissions(c.Request.Context(), actor, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToPermissionsDTO(*result))
}

// SetPermissions replaces the override of a user with the full matrix in the
// body. Categories missing from the body are stored as no access.
func (h *PermissionHandler) SetPermissions(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	userID, ok := parseID(c, "user_id")
	if !ok {
		return
	}

	type SetPermissionsRequest struct {
		Permissions *authz.Matrix `json:"permissions" binding:"required"`
	}
	var req SetPermissionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	result, err := h.permissionService.Set(c.Request.Context(), actor, userID, *req.Permissions)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToPermissionsDTO(*result))
}

func (h *PermissionHandler) ResetPermissions(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	userID, ok := parseID(c, "user_id")
	if !ok {
		return
	}

	result, err := h.permissionService.ResetToDefault(c.Request.Context(), actor, userID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToPermissionsDTO(*result))
}
