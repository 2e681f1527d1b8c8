package server

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/labforge/labportal/internal/config"
)

func TestNewServesHealth(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file:server_test?mode=memory&cache=shared"), &gorm.Config{})
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

	srv, err := New(db, cfg)
	require.NoError(t, err)

	req, _ := http.NewRequest("GET", "/api/v1/health", nil)
	w := httptest.NewRecorder()
	srv.Engine.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ok")

	// Every response carries the security headers and a request id.
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, "DENY", w.Header().Get("X-Frame-Options"))
}
