package handlers

import (
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskhub-api/internal/authz"
	"github.com/yukikurage/taskhub-api/internal/constants"
	apierrors "github.com/yukikurage/taskhub-api/internal/errors"
	"github.com/yukikurage/taskhub-api/internal/logger"
	"github.com/yukikurage/taskhub-api/internal/middleware"
	"github.com/yukikurage/taskhub-api/internal/services"
)

// actorFrom assembles the acting principal from the authenticated context.
func actorFrom(c *gin.Context) (services.Actor, bool) {
	principal, ok := middleware.GetPrincipal(c)
	if !ok {
		apierrors.Unauthorized(c, "Not authenticated")
		return services.Actor{}, false
	}
	tc, _ := middleware.GetTenant(c)
	return services.Actor{
		Principal: principal,
		Tenant:    tc,
		ClientIP:  c.ClientIP(),
		UserAgent: c.Request.UserAgent(),
	}, true
}

// parseID reads a positive numeric path parameter.
func parseID(c *gin.Context, name string) (uint64, bool) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		apierrors.BadRequest(c, fmt.Sprintf("Invalid %s", name))
		return 0, false
	}
	return id, true
}

// parseOptionalID reads a positive numeric query parameter when present.
func parseOptionalID(c *gin.Context, name string) (*uint64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return nil, true
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || id == 0 {
		apierrors.BadRequest(c, fmt.Sprintf("Invalid %s", name))
		return nil, false
	}
	return &id, true
}

// respondError maps a service error onto the API error taxonomy.
func respondError(c *gin.Context, err error) {
	var denied *authz.DeniedError
	switch {
	case errors.As(err, &denied):
		apierrors.Forbidden(c, string(denied.Reason), denied.Message)

	case errors.Is(err, authz.ErrTenantRequired):
		apierrors.BadRequestWithCode(c, apierrors.ErrCodeTenantRequired, "Tenant context is required")
	case errors.Is(err, authz.ErrInvalidStatusTransition):
		apierrors.BadRequestWithCode(c, apierrors.ErrCodeInvalidStatusTransition, err.Error())
	case errors.Is(err, authz.ErrUnknownStatus):
		apierrors.BadRequest(c, err.Error())

	case errors.Is(err, services.ErrInvalidCredentials):
		apierrors.RespondWithError(c, http.StatusUnauthorized, apierrors.NewAPIError(apierrors.ErrCodeInvalidCredentials, err.Error()))
	case errors.Is(err, services.ErrTenantInactive):
		apierrors.Forbidden(c, apierrors.ErrCodeTenantInactive, err.Error())

	case errors.Is(err, services.ErrTenantNotFound),
		errors.Is(err, services.ErrUserNotFound),
		errors.Is(err, services.ErrProjectNotFound),
		errors.Is(err, services.ErrMemberNotFound),
		errors.Is(err, services.ErrTaskNotFound),
		errors.Is(err, services.ErrCommentNotFound),
		errors.Is(err, services.ErrOverrideNotFound):
		apierrors.NotFound(c, err.Error())

	case errors.Is(err, services.ErrSlugTaken),
		errors.Is(err, services.ErrEmailTaken):
		apierrors.Conflict(c, err.Error())

	case errors.Is(err, services.ErrPasswordTooShort):
		apierrors.BadRequest(c, fmt.Sprintf("Password must be at least %d characters", constants.MinPasswordLength))
	case errors.Is(err, services.ErrNameRequired),
		errors.Is(err, services.ErrSlugInvalid),
		errors.Is(err, services.ErrInvalidEmail),
		errors.Is(err, services.ErrInvalidRole),
		errors.Is(err, services.ErrInvalidMemberRole),
		errors.Is(err, services.ErrInvalidAssignee),
		errors.Is(err, services.ErrInvalidManager),
		errors.Is(err, services.ErrTitleRequired),
		errors.Is(err, services.ErrCommentEmpty),
		errors.Is(err, services.ErrAINoTasksGenerated),
		errors.Is(err, services.ErrAINoValidTasks),
		errors.Is(err, services.ErrAITooManyTasks):
		apierrors.BadRequest(c, err.Error())

	case errors.Is(err, services.ErrAIServiceNotConfigured):
		apierrors.ServiceUnavailable(c, "AI service is not configured. Please set OPENAI_API_KEY environment variable.")

	default:
		slog.ErrorContext(c.Request.Context(), "request failed",
			slog.String("path", c.FullPath()),
			slog.String("request_id", c.GetString(constants.ContextKeyRequestID)),
			logger.Error(err))
		apierrors.InternalError(c, "")
	}
}
