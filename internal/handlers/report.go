package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskhub-api/internal/dto"
	apierrors "github.com/yukikurage/taskhub-api/internal/errors"
	"github.com/yukikurage/taskhub-api/internal/services"
	"github.com/yukikurage/taskhub-api/internal/utils"
)

// ReportHandler serves reports and the audit trail of the bound tenant.
type ReportHandler struct {
	reportService *services.ReportService
	auditService  *services.AuditService
}

func NewReportHandler(reportService *services.ReportService, auditService *services.AuditService) *ReportHandler {
	return &ReportHandler{reportService: reportService, auditService: auditService}
}

// TaskSummary counts tasks per status, optionally for one project_id.
func (h *ReportHandler) TaskSummary(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	projectID, ok := parseOptionalID(c, "project_id")
	if !ok {
		return
	}

	summary, err := h.reportService.TaskSummary(c.Request.Context(), actor, projectID)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

// ListAuditLogs returns the audit trail newest first.
// Filters: user_id, action, resource_type, resource_id, from, to (RFC 3339)
func (h *ReportHandler) ListAuditLogs(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		return
	}
	userID, ok := parseOptionalID(c, "user_id")
	if !ok {
		return
	}

	page := utils.PageFromQuery(c)
	input := services.ListAuditInput{
		UserID:       userID,
		Action:       c.Query("action"),
		ResourceType: c.Query("resource_type"),
		ResourceID:   c.Query("resource_id"),
		Page:         page.Number,
		PageSize:     page.Size,
	}
	for key, dst := range map[string]**time.Time{"from": &input.From, "to": &input.To} {
		raw := c.Query(key)
		if raw == "" {
			continue
		}
		t, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			apierrors.BadRequest(c, "Invalid "+key)
			return
		}
		*dst = &t
	}

	entries, total, err := h.auditService.List(c.Request.Context(), actor, input)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, dto.NewListResponse(entries, page.Number, page.Size, total))
}
