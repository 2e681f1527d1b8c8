package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/labforge/labportal/internal/api/middleware"
	"github.com/labforge/labportal/internal/metrics"
	"github.com/labforge/labportal/internal/models"
	"github.com/labforge/labportal/internal/services"
	"github.com/labforge/labportal/internal/util"
)

// AdminHandler serves the admin panel: user management and the audit viewer.
// Every route is registered behind Auth + RequireAdmin, and every mutating
// operation writes an audit entry naming actor, target and resulting state.
type AdminHandler struct {
	users *services.UserService
	audit *services.AuditService
}

// NewAdminHandler wires the handler to its collaborators.
func NewAdminHandler(users *services.UserService, audit *services.AuditService) *AdminHandler {
	return &AdminHandler{users: users, audit: audit}
}

// RegisterRoutes attaches admin routes to an already-guarded group.
func (h *AdminHandler) RegisterRoutes(g *gin.RouterGroup) {
	g.GET("/users", h.ListUsers)
	g.GET("/stats", h.Stats)
	g.POST("/users/:id/toggle", h.ToggleActive)
	g.POST("/users/:id/toggle-pam", h.ToggleAuthMode)
	g.GET("/logs", h.Logs)
}

// ListUsers returns all users, newest first.
func (h *AdminHandler) ListUsers(c *gin.Context) {
	users, err := h.users.List()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, users)
}

// Stats returns dashboard counters and the most recent audit entries.
func (h *AdminHandler) Stats(c *gin.Context) {
	total, active, admins, err := h.users.Stats()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	recent, err := h.audit.Recent(10)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"total_users":  total,
		"active_users": active,
		"admin_users":  admins,
		"recent_logs":  recent,
	})
}

func targetID(c *gin.Context) (uint, bool) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid user id"})
		return 0, false
	}
	return uint(id), true
}

// ToggleActive flips a user's active flag. Self-deactivation is rejected.
func (h *AdminHandler) ToggleActive(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id, ok := targetID(c)
	if !ok {
		return
	}

	user, err := h.users.ToggleActive(actor.ID, id)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSelfDeactivation):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	action := models.ActionUserDeactivated
	state := "deactivated"
	if user.Active {
		action = models.ActionUserActivated
		state = "activated"
	}

	actorID := actor.ID
	if _, err := h.audit.Record(services.AuditEntry{
		UserID:       &actorID,
		Action:       action,
		ResourceType: "user",
		ResourceID:   strconv.FormatUint(uint64(user.ID), 10),
		Details:      "user " + user.Username + " " + state + " by " + actor.Username,
		IPAddress:    c.ClientIP(),
		UserAgent:    util.SanitizeForLog(c.Request.UserAgent()),
	}); err != nil {
		middleware.GetRequestLogger(c).WithError(err).Error("failed to audit user toggle")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	metrics.IncAuditEntry()

	c.JSON(http.StatusOK, user)
}

// ToggleAuthModeRequest optionally carries the fresh secret needed when
// switching a delegated account back to local authentication.
type ToggleAuthModeRequest struct {
	NewPassword string `json:"new_password"`
}

// ToggleAuthMode flips a user between local and delegated (PAM) auth.
func (h *AdminHandler) ToggleAuthMode(c *gin.Context) {
	actor, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
		return
	}
	id, ok := targetID(c)
	if !ok {
		return
	}

	var req ToggleAuthModeRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}

	user, err := h.users.ToggleAuthMode(id, req.NewPassword)
	if err != nil {
		switch {
		case errors.Is(err, services.ErrSecretRequired):
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		case errors.Is(err, gorm.ErrRecordNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "user not found"})
		default:
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return
	}

	action := models.ActionPAMDisabled
	state := "disabled"
	if user.UsePAMAuth {
		action = models.ActionPAMEnabled
		state = "enabled"
	}

	actorID := actor.ID
	if _, err := h.audit.Record(services.AuditEntry{
		UserID:       &actorID,
		Action:       action,
		ResourceType: "user",
		ResourceID:   strconv.FormatUint(uint64(user.ID), 10),
		Details:      "PAM authentication " + state + " for " + user.Username + " by " + actor.Username,
		IPAddress:    c.ClientIP(),
		UserAgent:    util.SanitizeForLog(c.Request.UserAgent()),
	}); err != nil {
		middleware.GetRequestLogger(c).WithError(err).Error("failed to audit auth mode toggle")
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
		return
	}
	metrics.IncAuditEntry()

	c.JSON(http.StatusOK, user)
}

// Logs serves the paginated audit trail, newest first, 50 per page.
func (h *AdminHandler) Logs(c *gin.Context) {
	page := 1
	if p := c.Query("page"); p != "" {
		if n, err := strconv.Atoi(p); err == nil && n > 0 {
			page = n
		}
	}

	entries, total, err := h.audit.Page(page)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"entries":   entries,
		"total":     total,
		"page":      page,
		"page_size": services.AuditPageSize,
	})
}
