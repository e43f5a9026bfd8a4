// Package api serves the diagnosis pipeline over HTTP.
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/breast-dx-server/internal/domain"
	"github.com/breast-dx-server/internal/metrics"
	"github.com/breast-dx-server/internal/middleware"
	"github.com/breast-dx-server/internal/service"
)

// Version is reported by the health endpoint.
const Version = "1.0.0"

// HealthCheck is one dependency probed by /health.
type HealthCheck struct {
	Name string
	Ping func(ctx context.Context) error
}

// Server represents the HTTP server
type Server struct {
	configManager domain.ConfigManager
	logger        *logrus.Logger
	diagnoses     *service.DiagnosisService
	reports       *service.ReportService
	checks        []HealthCheck
	router        *gin.Engine
	server        *http.Server
}

// NewServer creates a new HTTP server instance
func NewServer(
	configManager domain.ConfigManager,
	logger *logrus.Logger,
	diagnoses *service.DiagnosisService,
	reports *service.ReportService,
	checks ...HealthCheck,
) *Server {
	cfg := configManager.GetConfig()

	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.CorrelationID())
	router.Use(middleware.RequestLogger(logger))
	router.Use(middleware.SecurityHeaders())
	if cfg.Metrics.Enabled {
		router.Use(metrics.GinMiddleware())
	}

	server := &Server{
		configManager: configManager,
		logger:        logger,
		diagnoses:     diagnoses,
		reports:       reports,
		checks:        checks,
		router:        router,
	}

	server.setupRoutes()

	return server
}

// Router exposes the handler, mainly for tests.
func (s *Server) Router() http.Handler {
	return s.router
}

// Start starts the HTTP server and blocks until ctx is cancelled
func (s *Server) Start(ctx context.Context) error {
	cfg := s.configManager.GetServerConfig()
	addr := fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)

	s.server = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		var err error
		if cfg.TLSEnabled {
			err = s.server.ListenAndServeTLS(cfg.CertFile, cfg.KeyFile)
		} else {
			err = s.server.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	s.logger.WithField("addr", addr).Info("HTTP server listening")

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	// Graceful shutdown
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	return s.server.Shutdown(shutdownCtx)
}

// setupRoutes configures the API routes
func (s *Server) setupRoutes() {
	cfg := s.configManager.GetConfig()

	s.router.GET("/health", s.handleHealth)
	if cfg.Metrics.Enabled {
		s.router.GET(cfg.Metrics.Path, gin.WrapH(metrics.Handler()))
	}

	app := s.router.Group("/")
	app.Use(middleware.RequestTimeout(cfg.Server.RequestTimeout))
	app.Use(middleware.SessionCookie(cfg.Session.CookieName, cfg.Session.TTL, cfg.Session.SecureCookie))
	if cfg.RateLimit.Enabled {
		limiter := middleware.NewClientRateLimiter(cfg.RateLimit.RequestsPerSecond, cfg.RateLimit.Burst, 10000, 10*time.Minute)
		app.Use(limiter.Middleware())
	}
	{
		app.POST("/predict", s.handlePredict)
		app.GET("/api/refresh-patient-data", s.handleRefreshPatientData)
		app.GET("/get_previous_metrics", s.handleGetPreviousMetrics)
		app.POST("/generate-report", s.handleGenerateReport)
	}
}

// handleHealth reports liveness plus the state of each dependency
func (s *Server) handleHealth(c *gin.Context) {
	checks := make(map[string]string, len(s.checks))
	status, code := "healthy", http.StatusOK

	for _, check := range s.checks {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		err := check.Ping(ctx)
		cancel()
		if err != nil {
			checks[check.Name] = "unavailable"
			status, code = "degraded", http.StatusServiceUnavailable
			s.logger.WithError(err).WithField("check", check.Name).Warn("Health check failed")
			continue
		}
		checks[check.Name] = "ok"
	}

	c.JSON(code, gin.H{
		"status":    status,
		"timestamp": time.Now().UTC(),
		"version":   Version,
		"checks":    checks,
	})
}
