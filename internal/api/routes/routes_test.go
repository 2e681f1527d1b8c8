package routes

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/labforge/labportal/internal/config"
)

func setupRouter(t *testing.T) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file:routes_"+t.Name()+"?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	cfg := config.Config{
		Environment:      "testing",
		JWTSecret:        "test-secret",
		SessionLifetime:  time.Hour,
		RememberLifetime: 24 * time.Hour,
		BcryptCost:       bcrypt.MinCost,
		PAMService:       "login",
		PAMTimeout:       time.Second,
	}

	router := gin.New()
	require.NoError(t, Register(router, db, cfg))
	return router
}

func TestRegisterWiresCoreRoutes(t *testing.T) {
	router := setupRouter(t)

	cases := []struct {
		method string
		path   string
		status int
	}{
		{"GET", "/api/v1/health", http.StatusOK},
		{"GET", "/metrics", http.StatusOK},
		{"GET", "/api/v1/auth/status", http.StatusOK},
		{"POST", "/api/v1/auth/logout", http.StatusUnauthorized},
		{"GET", "/api/v1/admin/users", http.StatusUnauthorized},
	}
	for _, tc := range cases {
		req, _ := http.NewRequest(tc.method, tc.path, nil)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		assert.Equal(t, tc.status, w.Code, "%s %s", tc.method, tc.path)
	}
}

func TestRegisterRunsMigrations(t *testing.T) {
	gin.SetMode(gin.TestMode)
	db, err := gorm.Open(sqlite.Open("file:routes_migrate?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)

	router := gin.New()
	require.NoError(t, Register(router, db, config.Config{JWTSecret: "s", PAMTimeout: time.Second}))

	assert.True(t, db.Migrator().HasTable("users"))
	assert.True(t, db.Migrator().HasTable("audit_logs"))
}
