package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/YuminosukeSato/automl/pkg/errors"
)

func writeFile(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "automl.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)
	assert.Equal(t, Default(), cfg)
	assert.Equal(t, ":8501", cfg.Server.Addr)
	assert.Equal(t, int64(200<<20), cfg.Upload.MaxBytes)
	assert.Equal(t, int64(0), cfg.Training.RandomSeed)
}

func TestLoadFile(t *testing.T) {
	path := writeFile(t, `
server:
  addr: ":9000"
  shutdown_timeout: 3s
upload:
  max_bytes: 1024
log:
  level: debug
session:
  idle_ttl: 15m
training:
  random_seed: 42
artifacts:
  compress: true
  level: 7
`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 3*time.Second, cfg.Server.ShutdownTimeout)
	assert.Equal(t, int64(1024), cfg.Upload.MaxBytes)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, 15*time.Minute, cfg.Session.IdleTTL)
	assert.Equal(t, time.Minute, cfg.Session.SweepInterval)
	assert.Equal(t, int64(42), cfg.Training.RandomSeed)
	assert.True(t, cfg.Artifacts.Compress)
	assert.Equal(t, 7, cfg.Artifacts.Level)
}

func TestEnvOverridesFile(t *testing.T) {
	path := writeFile(t, "server:\n  addr: \":9000\"\ntraining:\n  random_seed: 1\n")
	t.Setenv("AUTOML_SERVER_ADDR", ":7000")
	t.Setenv("AUTOML_TRAINING_RANDOM_SEED", "99")
	t.Setenv("AUTOML_SESSION_IDLE_TTL", "30s")
	t.Setenv("AUTOML_ARTIFACTS_COMPRESS", "true")
	t.Setenv("AUTOML_ARTIFACTS_LEVEL", "1")
	t.Setenv("AUTOML_LOG_LEVEL", " ")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":7000", cfg.Server.Addr)
	assert.Equal(t, int64(99), cfg.Training.RandomSeed)
	assert.Equal(t, 30*time.Second, cfg.Session.IdleTTL)
	assert.True(t, cfg.Artifacts.Compress)
	assert.Equal(t, 1, cfg.Artifacts.Level)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{name: "bad yaml", body: "server: [\n"},
		{name: "bad duration", body: "server:\n  shutdown_timeout: soon\n"},
		{name: "bad level", body: "log:\n  level: loud\n"},
		{name: "bad upload size", body: "upload:\n  max_bytes: 0\n"},
		{name: "bad compression level", body: "artifacts:\n  compress: true\n  level: 30\n"},
		{name: "bad env int", env: map[string]string{"AUTOML_UPLOAD_MAX_BYTES": "lots"}},
		{name: "bad env bool", env: map[string]string{"AUTOML_ARTIFACTS_COMPRESS": "maybe"}},
		{name: "bad env duration", env: map[string]string{"AUTOML_SESSION_IDLE_TTL": "10"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load(writeFile(t, tt.body))
			require.Error(t, err)
		})
	}
}

func TestValidateReportsField(t *testing.T) {
	cfg := Default()
	cfg.Session.IdleTTL = -time.Second
	err := cfg.Validate()
	var verr *errors.ValidationError
	require.True(t, errors.As(err, &verr))
	assert.Contains(t, err.Error(), "session.idle_ttl")
}
