package handlers

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/labforge/labportal/internal/api/middleware"
	"github.com/labforge/labportal/internal/config"
	"github.com/labforge/labportal/internal/models"
	"github.com/labforge/labportal/internal/pamauth"
	"github.com/labforge/labportal/internal/services"
)

// testEnv bundles a wired router and its collaborators for handler tests.
type testEnv struct {
	router *gin.Engine
	db     *gorm.DB
	cfg    config.Config
	auth   *services.AuthService
	users  *services.UserService
	audit  *services.AuditService
}

func newTestEnv(t *testing.T, oracle pamauth.Oracle) *testEnv {
	t.Helper()
	gin.SetMode(gin.TestMode)

	name := strings.ReplaceAll(t.Name(), "/", "_")
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.AuditLog{}))

	cfg := config.Config{
		Environment:      "testing",
		JWTSecret:        "test-secret",
		SessionLifetime:  time.Hour,
		RememberLifetime: 24 * time.Hour,
		BcryptCost:       bcrypt.MinCost,
		PAMService:       "login",
		PAMTimeout:       time.Second,
	}

	authService := services.NewAuthService(db, cfg, oracle)
	userService := services.NewUserService(db, cfg)
	auditService := services.NewAuditService(db)

	authHandler := NewAuthHandler(authService, userService, auditService, cfg)
	adminHandler := NewAdminHandler(userService, auditService)

	router := gin.New()
	api := router.Group("/api/v1")
	api.POST("/auth/login", authHandler.Login)
	api.POST("/auth/register", authHandler.Register)
	api.GET("/auth/status", authHandler.Status)

	protected := api.Group("/")
	protected.Use(middleware.Auth(authService))
	protected.POST("/auth/logout", authHandler.Logout)

	admin := protected.Group("/admin")
	admin.Use(middleware.RequireAdmin(auditService))
	adminHandler.RegisterRoutes(admin)

	return &testEnv{router: router, db: db, cfg: cfg, auth: authService, users: userService, audit: auditService}
}

// postJSON performs a JSON POST and returns the recorder.
func (e *testEnv) postJSON(t *testing.T, path string, body interface{}, token string) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req, _ := http.NewRequest("POST", path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func (e *testEnv) get(t *testing.T, path, token string) *httptest.ResponseRecorder {
	t.Helper()
	req, _ := http.NewRequest("GET", path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

// register creates a user through the service layer and returns it.
func (e *testEnv) register(t *testing.T, in services.RegisterInput) *models.User {
	t.Helper()
	user, err := e.users.Register(in)
	require.NoError(t, err)
	return user
}

// token mints a session token for the user.
func (e *testEnv) token(t *testing.T, user *models.User) string {
	t.Helper()
	token, err := e.auth.IssueToken(user, false)
	require.NoError(t, err)
	return token
}

// auditCount counts audit entries for an action.
func (e *testEnv) auditCount(t *testing.T, action string) int64 {
	t.Helper()
	var count int64
	require.NoError(t, e.db.Model(&models.AuditLog{}).Where("action = ?", action).Count(&count).Error)
	return count
}
