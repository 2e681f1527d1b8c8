package routes

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/gorm"

	"github.com/labforge/labportal/internal/api/handlers"
	"github.com/labforge/labportal/internal/api/middleware"
	"github.com/labforge/labportal/internal/config"
	"github.com/labforge/labportal/internal/database"
	"github.com/labforge/labportal/internal/metrics"
	"github.com/labforge/labportal/internal/pamauth"
	"github.com/labforge/labportal/internal/services"
)

// Register wires up API routes and performs automatic migrations.
func Register(router *gin.Engine, db *gorm.DB, cfg config.Config) error {
	if err := database.Migrate(db); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}

	oracle := pamauth.New(cfg.PAMService, cfg.PAMTimeout)
	authService := services.NewAuthService(db, cfg, oracle)
	userService := services.NewUserService(db, cfg)
	auditService := services.NewAuditService(db)

	authHandler := handlers.NewAuthHandler(authService, userService, auditService, cfg)
	adminHandler := handlers.NewAdminHandler(userService, auditService)

	registry := prometheus.NewRegistry()
	registry.MustRegister(collectors.NewGoCollector())
	metrics.Register(registry)

	router.GET("/api/v1/health", handlers.HealthHandler)
	router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(registry, promhttp.HandlerOpts{})))

	api := router.Group("/api/v1")

	// Credential endpoints carry per-IP limits: brute force on login,
	// account stuffing on register.
	loginLimiter := middleware.NewRateLimiter(5, time.Minute)
	registerLimiter := middleware.NewRateLimiter(3, time.Hour)

	api.POST("/auth/login", loginLimiter.Middleware(), authHandler.Login)
	api.POST("/auth/register", registerLimiter.Middleware(), authHandler.Register)
	api.GET("/auth/status", authHandler.Status)

	protected := api.Group("/")
	protected.Use(middleware.Auth(authService))
	{
		protected.POST("/auth/logout", authHandler.Logout)
	}

	admin := protected.Group("/admin")
	admin.Use(middleware.RequireAdmin(auditService))
	adminHandler.RegisterRoutes(admin)

	return nil
}
