package middleware

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskhub-api/internal/authz"
	"github.com/yukikurage/taskhub-api/internal/constants"
	apierrors "github.com/yukikurage/taskhub-api/internal/errors"
)

// ResolveTenant binds the tenant of the request. The X-Tenant-ID header wins
// over the tenant_id query parameter, which wins over the principal's home
// tenant. Must run after RequireAuth.
func ResolveTenant() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, ok := GetPrincipal(c)
		if !ok {
			apierrors.AbortWithError(c, http.StatusUnauthorized, apierrors.NewAPIError(apierrors.ErrCodeUnauthorized, "Authentication required"))
			return
		}

		raw := c.GetHeader(constants.HeaderTenantID)
		if raw == "" {
			raw = c.Query(constants.QueryTenantID)
		}
		var explicit *uint64
		if raw != "" {
			id, err := strconv.ParseUint(raw, 10, 64)
			if err != nil || id == 0 {
				apierrors.AbortWithError(c, http.StatusBadRequest, apierrors.NewAPIError(apierrors.ErrCodeInvalidInput, "Invalid tenant id"))
				return
			}
			explicit = &id
		}

		tc, err := authz.ResolveTenant(principal, explicit)
		if err != nil {
			var denied *authz.DeniedError
			switch {
			case errors.As(err, &denied):
				apierrors.AbortWithError(c, http.StatusForbidden, apierrors.NewAPIError(string(denied.Reason), denied.Message))
			case errors.Is(err, authz.ErrTenantRequired):
				apierrors.AbortWithError(c, http.StatusBadRequest, apierrors.NewAPIError(apierrors.ErrCodeTenantRequired, "Tenant context is required"))
			default:
				apierrors.AbortWithError(c, http.StatusInternalServerError, apierrors.NewAPIError(apierrors.ErrCodeInternalError, "Internal server error"))
			}
			return
		}

		c.Set(constants.ContextKeyTenant, tc)
		c.Next()
	}
}

// GetTenant retrieves the bound tenant from context
func GetTenant(c *gin.Context) (authz.TenantContext, bool) {
	v, exists := c.Get(constants.ContextKeyTenant)
	if !exists {
		return authz.TenantContext{}, false
	}
	tc, ok := v.(authz.TenantContext)
	return tc, ok
}
