package middleware

import (
	"errors"
	"net/http"
	"strings"

	"barberbook/models"
	"barberbook/services/identity"
	"barberbook/services/navigation"
	"barberbook/services/role"
	"barberbook/utils"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Context keys set by SessionMiddleware.
const (
	ContextSession    = "session"
	ContextToken      = "sessionToken"
	ContextResolution = "resolution"
)

// SessionMiddleware resolves the optional bearer token to a session and the
// session to a role. Requests without a token proceed as anonymous; an
// invalid token is rejected.
func SessionMiddleware(idp identity.IdentityProvider, tracker *role.Tracker, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		session, err := idp.CurrentSession(c.Request.Context(), token)
		if err != nil {
			if errors.Is(err, models.ErrAuthFailure) {
				utils.JSONError(c, http.StatusUnauthorized, "Insufficient authorization", "session is invalid or has expired")
				c.Abort()
				return
			}
			logger.Error("SessionMiddleware: failed to load session", zap.Error(err))
			utils.JSONError(c, http.StatusServiceUnavailable, "Session lookup unavailable", "please retry")
			c.Abort()
			return
		}

		c.Set(ContextToken, token)
		c.Set(ContextSession, session)
		c.Set(ContextResolution, tracker.Resolve(c.Request.Context(), session))
		c.Next()
	}
}

// RequireScreen admits the request only when the caller's navigation view
// can reach screen.
func RequireScreen(screen navigation.Screen) gin.HandlerFunc {
	return func(c *gin.Context) {
		res := ResolutionFrom(c)
		view := navigation.Gate(res)
		switch {
		case res.Status != role.StatusResolved:
			c.AbortWithStatusJSON(http.StatusServiceUnavailable, gin.H{
				"message": "Role could not be determined",
				"details": "please retry",
				"view":    view,
			})
		case view.Reachable(screen):
			c.Next()
		case SessionFrom(c) == nil:
			utils.JSONError(c, http.StatusUnauthorized, "Insufficient authorization", "sign in to continue")
			c.Abort()
		default:
			utils.JSONError(c, http.StatusForbidden, "Forbidden", "this screen is not available for your role")
			c.Abort()
		}
	}
}

// SessionFrom returns the session stored by SessionMiddleware, or nil.
func SessionFrom(c *gin.Context) *models.Session {
	v, ok := c.Get(ContextSession)
	if !ok {
		return nil
	}
	s, _ := v.(*models.Session)
	return s
}

// ResolutionFrom returns the role resolution stored by SessionMiddleware.
func ResolutionFrom(c *gin.Context) role.Resolution {
	v, ok := c.Get(ContextResolution)
	if !ok {
		return role.Undetermined
	}
	res, _ := v.(role.Resolution)
	return res
}

// TokenFrom returns the bearer token of the request, or "".
func TokenFrom(c *gin.Context) string {
	return c.GetString(ContextToken)
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if !strings.HasPrefix(header, "Bearer ") {
		return ""
	}
	return strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
}
