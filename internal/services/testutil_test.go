package services

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/labforge/labportal/internal/config"
	"github.com/labforge/labportal/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// One named in-memory database per test so suites stay isolated.
	name := strings.ReplaceAll(t.Name(), "/", "_")
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", name)
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&models.User{}, &models.AuditLog{}))
	return db
}

func testConfig() config.Config {
	return config.Config{
		Environment:      "testing",
		JWTSecret:        "test-secret",
		SessionLifetime:  time.Hour,
		RememberLifetime: 24 * time.Hour,
		BcryptCost:       bcrypt.MinCost,
		PAMService:       "login",
		PAMTimeout:       time.Second,
	}
}
