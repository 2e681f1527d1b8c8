package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/robfig/cron/v3"
	"gorm.io/gorm"

	"github.com/labforge/labportal/internal/api/middleware"
	"github.com/labforge/labportal/internal/api/routes"
	"github.com/labforge/labportal/internal/config"
	"github.com/labforge/labportal/internal/logger"
	"github.com/labforge/labportal/internal/models"
)

// Server wraps the HTTP engine and shared dependencies for easier testing.
type Server struct {
	Engine *gin.Engine
	cfg    config.Config
	db     *gorm.DB
	cron   *cron.Cron
}

// New wires up the HTTP router, middleware stack and versioned routes.
func New(db *gorm.DB, cfg config.Config) (*Server, error) {
	gin.SetMode(gin.ReleaseMode)
	if cfg.Environment == "development" {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()
	router.Use(
		middleware.RequestID(),
		middleware.RequestLogger(),
		middleware.Recovery(cfg.Environment == "development"),
		middleware.SecurityHeaders(cfg.Environment == "development"),
	)

	if err := routes.Register(router, db, cfg); err != nil {
		return nil, fmt.Errorf("register routes: %w", err)
	}

	s := &Server{Engine: router, cfg: cfg, db: db, cron: cron.New()}
	if _, err := s.cron.AddFunc("0 6 * * *", s.logDailySummary); err != nil {
		return nil, fmt.Errorf("schedule summary job: %w", err)
	}

	return s, nil
}

// logDailySummary emits an operational snapshot: account counts and the audit
// volume of the last 24 hours.
func (s *Server) logDailySummary() {
	var users, active, entries int64
	s.db.Model(&models.User{}).Count(&users)
	s.db.Model(&models.User{}).Where("active = ?", true).Count(&active)
	s.db.Model(&models.AuditLog{}).
		Where("timestamp > ?", time.Now().Add(-24*time.Hour)).
		Count(&entries)

	logger.Log().WithFields(map[string]interface{}{
		"total_users":   users,
		"active_users":  active,
		"audit_entries": entries,
	}).Info("daily summary")
}

// Run starts the HTTP server and the background scheduler, shutting both down
// when the context is cancelled.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%s", s.cfg.HTTPPort),
		Handler: s.Engine,
	}

	s.cron.Start()
	defer s.cron.Stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("graceful shutdown: %w", err)
		}
		return nil
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
