package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/labforge/labportal/internal/models"
	"github.com/labforge/labportal/internal/services"
	"github.com/labforge/labportal/internal/util"
)

// SessionCookieName is the cookie carrying the signed session token.
const SessionCookieName = "session_token"

// Context keys set by Auth for downstream handlers.
const (
	ContextUserKey    = "currentUser"
	ContextUserIDKey  = "userID"
	ContextIsAdminKey = "isAdmin"
)

// tokenFromRequest pulls the session token from the cookie or, for API
// clients, the Authorization header.
func tokenFromRequest(c *gin.Context) string {
	if cookie, err := c.Cookie(SessionCookieName); err == nil && cookie != "" {
		return cookie
	}
	if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}
	return ""
}

// Auth validates the session token and loads the principal into the request
// context. Disabled accounts are rejected even when their token is still
// valid.
func Auth(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := tokenFromRequest(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		claims, err := authService.ValidateToken(token)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		user, err := authService.GetUserByID(claims.UserID)
		if err != nil || !user.Active {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(ContextUserIDKey, user.ID)
		c.Set(ContextIsAdminKey, user.IsAdmin)
		c.Next()
	}
}

// CurrentUser returns the principal placed in the context by Auth.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, ok := c.Get(ContextUserKey)
	if !ok {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok
}

// RequireAdmin gates administrative operations on the principal's admin
// capability. Denials are audited; the check runs after Auth.
func RequireAdmin(audit *services.AuditService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			return
		}
		if !user.IsAdmin {
			uid := user.ID
			if _, err := audit.Record(services.AuditEntry{
				UserID:       &uid,
				Action:       models.ActionAccessDenied,
				ResourceType: "admin",
				Details:      "admin access denied for " + user.Username,
				IPAddress:    c.ClientIP(),
				UserAgent:    util.SanitizeForLog(c.Request.UserAgent()),
			}); err != nil {
				GetRequestLogger(c).WithError(err).Error("failed to audit access denial")
			}
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "administrator privileges required"})
			return
		}
		c.Next()
	}
}
