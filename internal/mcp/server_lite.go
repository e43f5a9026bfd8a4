package mcp

import (
	"context"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/breast-dx-server/internal/classifier"
	litecfg "github.com/breast-dx-server/internal/config"
	"github.com/breast-dx-server/internal/domain"
	"github.com/breast-dx-server/internal/logging"
	"github.com/breast-dx-server/internal/records"
	"github.com/breast-dx-server/internal/report"
	"github.com/breast-dx-server/internal/service"
	"github.com/breast-dx-server/internal/session"
)

// LiteServer is a self-contained MCP server that requires no external databases.
// It uses an in-memory session cache and SQLite for patient records.
type LiteServer struct {
	*Server
	config   *litecfg.LiteConfig
	store    records.Store
	sessions session.Store
	logger   *logrus.Logger
}

// LiteServerOption is a functional option for LiteServer.
type LiteServerOption func(*LiteServer) error

// WithRecordStore sets a custom patient record store.
func WithRecordStore(store records.Store) LiteServerOption {
	return func(s *LiteServer) error {
		s.store = store
		return nil
	}
}

// WithLogger sets a custom logger.
func WithLogger(logger *logrus.Logger) LiteServerOption {
	return func(s *LiteServer) error {
		s.logger = logger
		return nil
	}
}

// NewLiteServer creates a new lightweight MCP server instance.
// Logs go to stderr because stdout carries the protocol.
func NewLiteServer(cfg *litecfg.LiteConfig, opts ...LiteServerOption) (*LiteServer, error) {
	server := &LiteServer{
		config: cfg,
		logger: logging.NewWithOutput(cfg.LogLevel, cfg.LogFormat, os.Stderr),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(server); err != nil {
			return nil, fmt.Errorf("failed to apply option: %w", err)
		}
	}

	// Ensure data directory exists
	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	// Load the classifier artifact
	artifact, err := classifier.LoadArtifact(cfg.ResolvedModelPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	adapter, err := classifier.NewAdapter(artifact, server.logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}

	// Initialize record store if not provided
	if server.store == nil {
		store, err := records.NewSQLiteStore(cfg.RecordsDBPath())
		if err != nil {
			return nil, fmt.Errorf("failed to create record store: %w", err)
		}
		server.store = store
	}

	sessions, err := session.NewMemoryStore(cfg.SessionMaxEntries, cfg.SessionTTL)
	if err != nil {
		server.store.Close()
		return nil, fmt.Errorf("failed to create session cache: %w", err)
	}
	server.sessions = sessions

	diagnoses := service.NewDiagnosisService(server.logger, adapter, server.store, sessions)
	style := report.StyleFromConfig(domain.ReportConfig{FontDir: cfg.FontDir})
	reports := service.NewReportService(server.logger, diagnoses, style)

	server.Server = NewServer(server.logger, diagnoses, reports, cfg.ReportDir())

	server.logger.WithFields(logrus.Fields{
		"data_dir":      cfg.DataDir,
		"model_version": adapter.Version(),
	}).Info("Lite server initialized successfully")
	return server, nil
}

// Start runs the server until ctx is cancelled.
func (s *LiteServer) Start(ctx context.Context) error {
	return s.Run(ctx)
}

// Close cleans up server resources.
func (s *LiteServer) Close() error {
	if s.sessions != nil {
		s.sessions.Close()
	}
	if s.store != nil {
		if err := s.store.Close(); err != nil {
			s.logger.WithError(err).Error("Failed to close record store")
			return err
		}
	}
	return nil
}

// Store returns the record store for external access.
func (s *LiteServer) Store() records.Store {
	return s.store
}
