package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/breast-dx-server/internal/classifier"
	"github.com/breast-dx-server/internal/config"
	"github.com/breast-dx-server/internal/domain"
	"github.com/breast-dx-server/internal/logging"
	"github.com/breast-dx-server/internal/records"
	"github.com/breast-dx-server/internal/report"
	"github.com/breast-dx-server/internal/service"
)

// app is the pipeline wired for one CLI invocation. Each run is its own process, so
// there is no session cache and "current" always means the latest record.
type app struct {
	cfg       *config.LiteConfig
	logger    *logrus.Logger
	store     *records.SQLiteStore
	diagnoses *service.DiagnosisService
	reports   *service.ReportService
}

func openApp(cfg *config.LiteConfig) (*app, error) {
	logger := logging.NewWithOutput(cfg.LogLevel, cfg.LogFormat, os.Stderr)

	if err := cfg.EnsureDataDir(); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	artifact, err := classifier.LoadArtifact(cfg.ResolvedModelPath())
	if err != nil {
		return nil, fmt.Errorf("failed to load model: %w", err)
	}
	adapter, err := classifier.NewAdapter(artifact, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create classifier: %w", err)
	}

	store, err := records.NewSQLiteStore(cfg.RecordsDBPath())
	if err != nil {
		return nil, fmt.Errorf("failed to open record store: %w", err)
	}

	diagnoses := service.NewDiagnosisService(logger, adapter, store, nil)
	style := report.StyleFromConfig(domain.ReportConfig{FontDir: cfg.FontDir})

	return &app{
		cfg:       cfg,
		logger:    logger,
		store:     store,
		diagnoses: diagnoses,
		reports:   service.NewReportService(logger, diagnoses, style),
	}, nil
}

func (a *app) Close() {
	if err := a.store.Close(); err != nil {
		a.logger.WithError(err).Error("Failed to close record store")
	}
}
