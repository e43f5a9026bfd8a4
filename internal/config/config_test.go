package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewManager_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	m, err := NewManager()
	require.NoError(t, err)

	cfg := m.GetConfig()
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 30*time.Second, cfg.Server.RequestTimeout)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "models/breast_cancer_model.json", cfg.Model.Path)
	assert.Equal(t, "memory", m.GetSessionConfig().Backend)
	assert.Equal(t, "bcdx_session", m.GetSessionConfig().CookieName)
	assert.Equal(t, "#006D77", cfg.Report.AccentColor)
	assert.True(t, m.IsDevelopment())
	assert.False(t, m.IsProduction())
	assert.NoError(t, m.Validate())
}

func TestNewManager_EnvironmentOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("BCDX_SERVER_PORT", "9191")
	t.Setenv("BCDX_DATABASE_DRIVER", "postgres")
	t.Setenv("BCDX_ENVIRONMENT", "production")

	m, err := NewManager()
	require.NoError(t, err)

	assert.Equal(t, 9191, m.GetServerConfig().Port)
	assert.Equal(t, "postgres", m.GetDatabaseConfig().Driver)
	assert.True(t, m.IsProduction())
	assert.Contains(t, m.GetDatabaseConnectionString(), "dbname=breast_dx")
}

func TestNewManagerWithFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "server.yaml")
	content := []byte(`
server:
  port: 7070
session:
  backend: redis
  redis_url: redis://cache:6379/2
logging:
  level: debug
`)
	require.NoError(t, os.WriteFile(path, content, 0o644))

	m, err := NewManagerWithFile(path)
	require.NoError(t, err)

	assert.Equal(t, 7070, m.GetServerConfig().Port)
	assert.Equal(t, "redis", m.GetSessionConfig().Backend)
	assert.Equal(t, "redis://cache:6379/2", m.GetSessionConfig().RedisURL)
	assert.NoError(t, m.Validate())
}

func TestNewManagerWithFile_Missing(t *testing.T) {
	_, err := NewManagerWithFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Chdir(t.TempDir())

	tests := []struct {
		name    string
		mutate  func(m *Manager)
		wantErr string
	}{
		{
			name:    "bad port",
			mutate:  func(m *Manager) { m.config.Server.Port = 0 },
			wantErr: "invalid server port",
		},
		{
			name:    "unknown driver",
			mutate:  func(m *Manager) { m.config.Database.Driver = "mysql" },
			wantErr: "unsupported database driver",
		},
		{
			name:    "empty sqlite path",
			mutate:  func(m *Manager) { m.config.Database.SQLitePath = "" },
			wantErr: "sqlite path is required",
		},
		{
			name:    "unknown session backend",
			mutate:  func(m *Manager) { m.config.Session.Backend = "memcached" },
			wantErr: "unsupported session backend",
		},
		{
			name:    "missing model",
			mutate:  func(m *Manager) { m.config.Model.Path = "" },
			wantErr: "model path is required",
		},
		{
			name:    "bad log level",
			mutate:  func(m *Manager) { m.config.Logging.Level = "chatty" },
			wantErr: "invalid log level",
		},
		{
			name:    "rate limit without burst",
			mutate:  func(m *Manager) { m.config.RateLimit.Burst = 0 },
			wantErr: "rate limit",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m, err := NewManager()
			require.NoError(t, err)

			tt.mutate(m)

			err = m.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}
