package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/breast-dx-server/internal/api"
	"github.com/breast-dx-server/internal/classifier"
	"github.com/breast-dx-server/internal/config"
	"github.com/breast-dx-server/internal/database"
	"github.com/breast-dx-server/internal/domain"
	"github.com/breast-dx-server/internal/logging"
	"github.com/breast-dx-server/internal/records"
	"github.com/breast-dx-server/internal/report"
	"github.com/breast-dx-server/internal/service"
	"github.com/breast-dx-server/internal/session"
)

func main() {
	// Load configuration
	configManager, err := config.NewManager()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Validate configuration
	if err := configManager.Validate(); err != nil {
		log.Fatalf("Configuration validation failed: %v", err)
	}

	cfg := configManager.GetConfig()
	logger := logging.NewWithOutput(cfg.Logging.Level, cfg.Logging.Format, logging.OutputFor(cfg.Logging.Output))

	// Setup graceful shutdown
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-sigChan
		logger.Info("Shutdown signal received, gracefully shutting down...")
		cancel()
	}()

	logger.WithFields(logrus.Fields{
		"host": cfg.Server.Host,
		"port": cfg.Server.Port,
	}).Info("Starting breast diagnosis server")

	if err := run(ctx, configManager, logger); err != nil {
		logger.WithError(err).Fatal("Server failed")
	}

	logger.Info("Server stopped")
}

func run(ctx context.Context, configManager *config.Manager, logger *logrus.Logger) error {
	cfg := configManager.GetConfig()

	// Load the classifier artifact
	artifact, err := classifier.LoadArtifact(cfg.Model.Path)
	if err != nil {
		return fmt.Errorf("failed to load model: %w", err)
	}
	adapter, err := classifier.NewAdapter(artifact, logger)
	if err != nil {
		return fmt.Errorf("failed to create classifier: %w", err)
	}

	var checks []api.HealthCheck

	store, check, release, err := openRecordStore(ctx, cfg.Database, logger)
	if err != nil {
		return err
	}
	defer release()
	checks = append(checks, check)

	sessions, check, err := openSessionStore(cfg.Session, logger)
	if err != nil {
		return err
	}
	defer sessions.Close()
	if check.Ping != nil {
		checks = append(checks, check)
	}

	diagnoses := service.NewDiagnosisService(logger, adapter, store, sessions)
	reports := service.NewReportService(logger, diagnoses, report.StyleFromConfig(cfg.Report))

	server := api.NewServer(configManager, logger, diagnoses, reports, checks...)
	return server.Start(ctx)
}

// openRecordStore selects the patient record backend from database.driver. The
// returned func releases the store and, for Postgres, the pool behind it.
func openRecordStore(ctx context.Context, cfg domain.DatabaseConfig, logger *logrus.Logger) (records.Store, api.HealthCheck, func(), error) {
	switch strings.ToLower(cfg.Driver) {
	case "postgres":
		db, err := database.NewConnection(ctx, database.ConfigFrom(cfg), logger)
		if err != nil {
			return nil, api.HealthCheck{}, nil, fmt.Errorf("failed to connect to database: %w", err)
		}
		store, err := records.NewPostgresStore(ctx, db.Pool)
		if err != nil {
			db.Close()
			return nil, api.HealthCheck{}, nil, fmt.Errorf("failed to create record store: %w", err)
		}
		release := func() {
			store.Close()
			db.Close()
		}
		return store, api.HealthCheck{Name: "records", Ping: db.Health}, release, nil
	default:
		store, err := records.NewSQLiteStore(cfg.SQLitePath)
		if err != nil {
			return nil, api.HealthCheck{}, nil, fmt.Errorf("failed to create record store: %w", err)
		}
		logger.WithField("path", cfg.SQLitePath).Info("Using SQLite record store")
		release := func() {
			if err := store.Close(); err != nil {
				logger.WithError(err).Error("Failed to close record store")
			}
		}
		return store, api.HealthCheck{Name: "records", Ping: store.Ping}, release, nil
	}
}

// openSessionStore selects the last-diagnosis cache from session.backend.
func openSessionStore(cfg domain.SessionConfig, logger *logrus.Logger) (session.Store, api.HealthCheck, error) {
	switch strings.ToLower(cfg.Backend) {
	case "redis":
		store, err := session.NewRedisStore(cfg, logger)
		if err != nil {
			return nil, api.HealthCheck{}, fmt.Errorf("failed to create session store: %w", err)
		}
		return store, api.HealthCheck{Name: "sessions", Ping: store.Ping}, nil
	default:
		store, err := session.NewMemoryStore(cfg.MaxEntries, cfg.TTL)
		if err != nil {
			return nil, api.HealthCheck{}, fmt.Errorf("failed to create session store: %w", err)
		}
		return store, api.HealthCheck{}, nil
	}
}
