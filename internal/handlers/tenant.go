package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskhub-api/internal/dto"
	apierrors "github.com/yukikurage/taskhub-api/internal/errors"
	"github.com/yukikurage/taskhub-api/internal/services"
	"github.com/yukikurage/taskhub-api/internal/utils"
)

// TenantHandler serves platform-level tenant management.
type TenantHandler struct {
	tenantService *services.TenantService
}

func NewTenantHandler(tenantService *services.TenantService) *TenantHandler {
	return &TenantHandler{tenantService: tenantService}
}

func (h *TenantHandler) CreateTenant(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}

	type AdminRequest struct {
		Email    string `json:"email" binding:"required"`
		Name     string `json:"name" binding:"required"`
		Password string `json:"password"`
	}
	type CreateTenantRequest struct {
		Name  string        `json:"name" binding:"required"`
		Slug  string        `json:"slug" binding:"required"`
		Admin *AdminRequest `json:"admin"`
	}

	var req CreateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	input := services.CreateTenantInput{Name: req.Name, Slug: req.Slug}
	if req.Admin != nil {
		input.Admin = &services.InitialAdminInput{Email: req.Admin.Email, Name: req.Admin.Name, Password: req.Admin.Password}
	}

	result, err := h.tenantService.Create(c.Request.Context(), actor, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, dto.ToCreatedTenantDTO(result))
}

func (h *TenantHandler) ListTenants(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	page := utils.PageFromQuery(c)

	tenants, total, err := h.tenantService.List(c.Request.Context(), actor, page.Number, page.Size)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(dto.ToTenantDTOs(tenants), page.Number, page.Size, total))
}

func (h *TenantHandler) GetTenant(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	tenant, err := h.tenantService.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTenantDTO(*tenant))
}

func (h *TenantHandler) UpdateTenant(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	type UpdateTenantRequest struct {
		Name     *string `json:"name"`
		IsActive *bool   `json:"is_active"`
	}
	var req UpdateTenantRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		apierrors.BadRequest(c, "Invalid request body")
		return
	}

	tenant, err := h.tenantService.Update(c.Request.Context(), actor, id, services.UpdateTenantInput{Name: req.Name, IsActive: req.IsActive})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.ToTenantDTO(*tenant))
}

func (h *TenantHandler) DeleteTenant(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	id, ok := parseID(c, "id")
	if !ok {
		return
	}

	if err := h.tenantService.Delete(c.Request.Context(), actor, id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Tenant deleted successfully"})
}
