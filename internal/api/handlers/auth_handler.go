package handlers

import (
	"errors"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/labforge/labportal/internal/api/middleware"
	"github.com/labforge/labportal/internal/config"
	"github.com/labforge/labportal/internal/metrics"
	"github.com/labforge/labportal/internal/models"
	"github.com/labforge/labportal/internal/services"
	"github.com/labforge/labportal/internal/util"
)

// genericAuthFailure is the only credential-failure message clients ever see;
// the real reason lives in the audit trail.
const genericAuthFailure = "invalid username or password"

// defaultLanding is where logins land when no (valid) next path was supplied.
const defaultLanding = "/dashboard"

// AuthHandler serves login, logout, registration and the session status probe.
type AuthHandler struct {
	auth  *services.AuthService
	users *services.UserService
	audit *services.AuditService
	cfg   config.Config
}

// NewAuthHandler wires the handler to its collaborators.
func NewAuthHandler(auth *services.AuthService, users *services.UserService, audit *services.AuditService, cfg config.Config) *AuthHandler {
	return &AuthHandler{auth: auth, users: users, audit: audit, cfg: cfg}
}

// setSessionCookie sets the session cookie with security best practices:
// HttpOnly, Secure outside development, SameSite=Strict.
func (h *AuthHandler) setSessionCookie(c *gin.Context, value string, maxAge int) {
	secure := h.cfg.Environment == "production"
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.SessionCookieName, value, maxAge, "/", "", secure, true)
}

func (h *AuthHandler) clearSessionCookie(c *gin.Context) {
	h.setSessionCookie(c, "", -1)
}

// validateNextPath keeps post-login redirects on this origin. Anything that
// is not a plain relative path ("/x/y") collapses to the default landing
// page: absolute URLs, scheme-relative "//host" forms and backslash tricks
// would all be open redirects.
func validateNextPath(next string) string {
	if next == "" {
		return defaultLanding
	}
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") {
		return defaultLanding
	}
	if strings.ContainsAny(next, "\\") {
		return defaultLanding
	}
	u, err := url.Parse(next)
	if err != nil || u.IsAbs() || u.Host != "" {
		return defaultLanding
	}
	return next
}

// LoginRequest is the login form payload.
type LoginRequest struct {
	Username string `json:"username" binding:"required"`
	Password string `json:"password" binding:"required"`
	Remember bool   `json:"remember"`
	Next     string `json:"next"`
}

// Login authenticates the supplied credentials, records the outcome and, on
// success, establishes a session.
func (h *AuthHandler) Login(c *gin.Context) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	verdict := h.auth.Authenticate(c.Request.Context(), req.Username, req.Password)
	if !verdict.Success {
		metrics.IncLoginFailure()
		if verdict.Reason == services.ReasonExternalAuthError {
			metrics.IncExternalAuthError()
		}

		entry := services.AuditEntry{
			Action:       models.ActionLoginFailed,
			ResourceType: "authentication",
			Details:      string(verdict.Reason),
			IPAddress:    c.ClientIP(),
			UserAgent:    util.SanitizeForLog(c.Request.UserAgent()),
		}
		if verdict.User != nil {
			uid := verdict.User.ID
			entry.UserID = &uid
		} else {
			entry.Action = models.ActionLoginFailedUnknown
			entry.Details = "username " + util.SanitizeForLog(req.Username)
		}
		if _, err := h.audit.Record(entry); err != nil {
			middleware.GetRequestLogger(c).WithError(err).Error("failed to audit login failure")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
			return
		}
		metrics.IncAuditEntry()

		// Same message whether the username exists or not.
		c.JSON(http.StatusUnauthorized, gin.H{"error": genericAuthFailure})
		return
	}

	user := verdict.User
	if err := h.users.TouchLastLogin(user.ID); err != nil {
		middleware.GetRequestLogger(c).WithError(err).Error("failed to update last login")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	uid := user.ID
	if _, err := h.audit.Record(services.AuditEntry{
		UserID:       &uid,
		Action:       models.ActionLogin,
		ResourceType: "authentication",
		IPAddress:    c.ClientIP(),
		UserAgent:    util.SanitizeForLog(c.Request.UserAgent()),
	}); err != nil {
		middleware.GetRequestLogger(c).WithError(err).Error("failed to audit login")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	metrics.IncAuditEntry()
	metrics.IncLoginSuccess()

	token, err := h.auth.IssueToken(user, req.Remember)
	if err != nil {
		middleware.GetRequestLogger(c).WithError(err).Error("failed to issue session token")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}

	maxAge := int(h.cfg.SessionLifetime.Seconds())
	if req.Remember {
		maxAge = int(h.cfg.RememberLifetime.Seconds())
	}
	h.setSessionCookie(c, token, maxAge)

	c.JSON(http.StatusOK, gin.H{
		"token":    token,
		"redirect": validateNextPath(req.Next),
		"user": gin.H{
			"id":        user.ID,
			"username":  user.Username,
			"full_name": user.FullName(),
			"is_admin":  user.IsAdmin,
		},
	})
}

// Logout terminates the session. Registered behind the auth middleware so the
// audit entry always has a principal.
func (h *AuthHandler) Logout(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}

	uid := user.ID
	if _, err := h.audit.Record(services.AuditEntry{
		UserID:       &uid,
		Action:       models.ActionLogout,
		ResourceType: "authentication",
		IPAddress:    c.ClientIP(),
		UserAgent:    util.SanitizeForLog(c.Request.UserAgent()),
	}); err != nil {
		middleware.GetRequestLogger(c).WithError(err).Error("failed to audit logout")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	metrics.IncAuditEntry()

	h.clearSessionCookie(c)
	c.JSON(http.StatusOK, gin.H{"message": "logged out"})
}

// RegisterRequest is the registration form payload.
type RegisterRequest struct {
	Username        string `json:"username" binding:"required,min=3,max=80"`
	Email           string `json:"email" binding:"required,email,max=120"`
	FirstName       string `json:"first_name" binding:"required,min=2,max=50"`
	LastName        string `json:"last_name" binding:"required,min=2,max=50"`
	Password        string `json:"password" binding:"required,min=8"`
	PasswordConfirm string `json:"password_confirm" binding:"required,eqfield=Password"`
}

// Register creates a new local account. The first account ever registered is
// granted administrator privileges.
func (h *AuthHandler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	user, err := h.users.Register(services.RegisterInput{
		Username:  req.Username,
		Email:     req.Email,
		FirstName: req.FirstName,
		LastName:  req.LastName,
		Password:  req.Password,
	})
	if err != nil {
		switch {
		case errors.Is(err, services.ErrDuplicateUsername), errors.Is(err, services.ErrDuplicateEmail):
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		default:
			middleware.GetRequestLogger(c).WithError(err).Error("registration failed")
			c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		}
		return
	}

	uid := user.ID
	if _, err := h.audit.Record(services.AuditEntry{
		UserID:       &uid,
		Action:       models.ActionRegister,
		ResourceType: "user",
		ResourceID:   strconv.FormatUint(uint64(user.ID), 10),
		Details:      "new user registered: " + user.Username,
		IPAddress:    c.ClientIP(),
		UserAgent:    util.SanitizeForLog(c.Request.UserAgent()),
	}); err != nil {
		middleware.GetRequestLogger(c).WithError(err).Error("failed to audit registration")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	metrics.IncAuditEntry()

	c.JSON(http.StatusCreated, gin.H{
		"user":          user,
		"admin_granted": user.IsAdmin,
	})
}

// Status reports whether the request carries a valid session. Safe to call
// unauthenticated; never includes secrets.
func (h *AuthHandler) Status(c *gin.Context) {
	var token string
	if cookie, err := c.Cookie(middleware.SessionCookieName); err == nil && cookie != "" {
		token = cookie
	} else if header := c.GetHeader("Authorization"); strings.HasPrefix(header, "Bearer ") {
		token = strings.TrimPrefix(header, "Bearer ")
	}

	if token == "" {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}

	claims, err := h.auth.ValidateToken(token)
	if err != nil {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}

	user, err := h.auth.GetUserByID(claims.UserID)
	if err != nil || !user.Active {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"authenticated": true,
		"user": gin.H{
			"id":        user.ID,
			"username":  user.Username,
			"full_name": user.FullName(),
			"is_admin":  user.IsAdmin,
		},
	})
}
