package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
	"github.com/yukikurage/taskhub-api/internal/auth"
	"github.com/yukikurage/taskhub-api/internal/authz"
	"github.com/yukikurage/taskhub-api/internal/constants"
	apierrors "github.com/yukikurage/taskhub-api/internal/errors"
	"github.com/yukikurage/taskhub-api/internal/logger"
)

const contextKeyClaims = "claims"

// RequireAuth authenticates the request with a bearer token, falling back to
// the token stored in the session cookie by login.
func RequireAuth(authn *auth.Authenticator) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c.GetHeader("Authorization"))
		if token == "" {
			if v, ok := sessions.Default(c).Get(constants.SessionKeyToken).(string); ok {
				token = v
			}
		}
		if token == "" {
			apierrors.AbortWithError(c, http.StatusUnauthorized, apierrors.NewAPIError(apierrors.ErrCodeUnauthorized, "Authentication required"))
			return
		}

		principal, claims, err := authn.Authenticate(c.Request.Context(), token)
		if err != nil {
			switch {
			case errors.Is(err, auth.ErrExpiredToken):
				apierrors.AbortWithError(c, http.StatusUnauthorized, apierrors.NewAPIError(apierrors.ErrCodeTokenExpired, "Token has expired"))
			case errors.Is(err, auth.ErrInvalidToken), errors.Is(err, auth.ErrRevokedToken):
				apierrors.AbortWithError(c, http.StatusUnauthorized, apierrors.NewAPIError(apierrors.ErrCodeUnauthorized, "Invalid or revoked token"))
			default:
				slog.ErrorContext(c.Request.Context(), "token verification failed", logger.Error(err))
				apierrors.AbortWithError(c, http.StatusServiceUnavailable, apierrors.NewAPIError(apierrors.ErrCodeServiceUnavailable, "Authentication is temporarily unavailable"))
			}
			return
		}

		c.Set(constants.ContextKeyPrincipal, principal)
		c.Set(constants.ContextKeyUserID, principal.ID)
		c.Set(constants.ContextKeyToken, token)
		c.Set(contextKeyClaims, claims)
		c.Next()
	}
}

func bearerToken(header string) string {
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return ""
	}
	return strings.TrimSpace(token)
}

// GetPrincipal retrieves the authenticated principal from context
func GetPrincipal(c *gin.Context) (authz.Principal, bool) {
	v, exists := c.Get(constants.ContextKeyPrincipal)
	if !exists {
		return authz.Principal{}, false
	}
	p, ok := v.(authz.Principal)
	return p, ok
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}
	id, ok := userID.(uint64)
	return id, ok
}

// GetToken returns the raw credential and its verified claims.
func GetToken(c *gin.Context) (string, *auth.Claims) {
	token := c.GetString(constants.ContextKeyToken)
	claims, _ := c.Get(contextKeyClaims)
	cl, _ := claims.(*auth.Claims)
	return token, cl
}
