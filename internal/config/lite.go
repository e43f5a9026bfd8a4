// Package config provides configuration management for the diagnosis server.
// This file contains the lightweight configuration used by the MCP server and dxctl.
package config

import (
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// LiteConfig is a simplified configuration for standalone operation.
// It requires no external databases and uses sensible defaults.
type LiteConfig struct {
	// Data storage
	DataDir   string // Base directory for data files
	ModelPath string // Classifier artifact; empty means DataDir/breast_cancer_model.json
	FontDir   string // Optional TTF directory for PDF output

	// Session cache
	SessionMaxEntries int
	SessionTTL        time.Duration

	// Logging
	LogLevel  string // Log level: debug, info, warn, error
	LogFormat string // Log format: json, text
}

// DefaultLiteConfig returns a configuration with sensible defaults.
func DefaultLiteConfig() *LiteConfig {
	homeDir, _ := os.UserHomeDir()
	dataDir := filepath.Join(homeDir, ".breast-dx")

	return &LiteConfig{
		DataDir:           dataDir,
		SessionMaxEntries: 100,
		SessionTTL:        24 * time.Hour,
		LogLevel:          "info",
		LogFormat:         "json",
	}
}

// LoadLiteConfig loads configuration from environment variables.
// Falls back to defaults if not set.
func LoadLiteConfig() *LiteConfig {
	cfg := DefaultLiteConfig()

	if v := os.Getenv("BCDX_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("BCDX_MODEL_PATH"); v != "" {
		cfg.ModelPath = v
	}
	if v := os.Getenv("BCDX_FONT_DIR"); v != "" {
		cfg.FontDir = v
	}

	if v := os.Getenv("BCDX_SESSION_MAX_ENTRIES"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.SessionMaxEntries = n
		}
	}
	if v := os.Getenv("BCDX_SESSION_TTL"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.SessionTTL = d
		}
	}

	if v := os.Getenv("BCDX_LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("BCDX_LOG_FORMAT"); v != "" {
		cfg.LogFormat = v
	}

	return cfg
}

// RecordsDBPath returns the path to the patient records SQLite database.
func (c *LiteConfig) RecordsDBPath() string {
	return filepath.Join(c.DataDir, "patients.db")
}

// ResolvedModelPath returns ModelPath, or the default artifact location under DataDir.
func (c *LiteConfig) ResolvedModelPath() string {
	if c.ModelPath != "" {
		return c.ModelPath
	}
	return filepath.Join(c.DataDir, "breast_cancer_model.json")
}

// ReportDir returns the directory for generated report files.
func (c *LiteConfig) ReportDir() string {
	return filepath.Join(c.DataDir, "reports")
}

// EnsureDataDir creates the data directory if it doesn't exist.
func (c *LiteConfig) EnsureDataDir() error {
	if err := os.MkdirAll(c.DataDir, 0755); err != nil {
		return err
	}
	return os.MkdirAll(c.ReportDir(), 0755)
}
