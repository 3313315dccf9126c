package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskhub-api/internal/authz"
	apierrors "github.com/yukikurage/taskhub-api/internal/errors"
)

// RequireResourceScope guards routes serving tenant business data. Super
// admins are refused before any resource is loaded. Must run after
// ResolveTenant.
func RequireResourceScope() gin.HandlerFunc {
	return func(c *gin.Context) {
		principal, _ := GetPrincipal(c)
		tc, _ := GetTenant(c)

		if err := authz.RequireResourceScope(principal, tc); err != nil {
			var denied *authz.DeniedError
			if errors.As(err, &denied) {
				apierrors.AbortWithError(c, http.StatusForbidden, apierrors.NewAPIError(string(denied.Reason), denied.Message))
				return
			}
			apierrors.AbortWithError(c, http.StatusBadRequest, apierrors.NewAPIError(apierrors.ErrCodeTenantRequired, "Tenant context is required"))
			return
		}
		c.Next()
	}
}
