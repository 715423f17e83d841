// Package config loads server configuration from a YAML file, a .env file and
// AUTOML_* environment variables, in increasing order of precedence.
package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/YuminosukeSato/automl/pkg/errors"
	"github.com/YuminosukeSato/automl/pkg/log"
)

// EnvPrefix is the prefix of every environment override.
const EnvPrefix = "AUTOML_"

// Config is the top-level configuration.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Upload    UploadConfig    `yaml:"upload"`
	Log       LogConfig       `yaml:"log"`
	Session   SessionConfig   `yaml:"session"`
	Training  TrainingConfig  `yaml:"training"`
	Artifacts ArtifactsConfig `yaml:"artifacts"`
}

// ServerConfig controls the HTTP listener.
type ServerConfig struct {
	Addr            string        `yaml:"addr"`             // default ":8501"
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"` // default 10s
}

// UploadConfig bounds the upload form.
type UploadConfig struct {
	MaxBytes int64 `yaml:"max_bytes"` // default 200 MiB
}

// LogConfig selects the library log level: debug, info, warn or error.
type LogConfig struct {
	Level string `yaml:"level"`
}

// SessionConfig controls session expiry.
type SessionConfig struct {
	IdleTTL       time.Duration `yaml:"idle_ttl"`       // 0 disables expiry
	SweepInterval time.Duration `yaml:"sweep_interval"` // default 1m
}

// TrainingConfig holds training defaults.
type TrainingConfig struct {
	RandomSeed int64 `yaml:"random_seed"` // 0 = time-based seed per run
}

// ArtifactsConfig controls the download encoding.
type ArtifactsConfig struct {
	Compress bool `yaml:"compress"`
	Level    int  `yaml:"level"` // zstd level 1-4
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		Server:    ServerConfig{Addr: ":8501", ShutdownTimeout: 10 * time.Second},
		Upload:    UploadConfig{MaxBytes: 200 << 20},
		Log:       LogConfig{Level: "info"},
		Session:   SessionConfig{IdleTTL: 2 * time.Hour, SweepInterval: time.Minute},
		Artifacts: ArtifactsConfig{Level: 3},
	}
}

// Load reads the YAML file at path when it exists, then applies .env and
// AUTOML_* overrides and validates the result. An empty path skips the file.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, errors.Wrapf(err, "config: parse %q", path)
			}
		case os.IsNotExist(err):
		default:
			return nil, errors.Wrapf(err, "config: read %q", path)
		}
	}

	// .env never overrides variables already set in the environment.
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		return nil, errors.Wrap(err, "config: load .env")
	}
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	var err error
	setString(&cfg.Server.Addr, "SERVER_ADDR")
	setString(&cfg.Log.Level, "LOG_LEVEL")
	if err = setDuration(&cfg.Server.ShutdownTimeout, "SERVER_SHUTDOWN_TIMEOUT"); err != nil {
		return err
	}
	if err = setInt64(&cfg.Upload.MaxBytes, "UPLOAD_MAX_BYTES"); err != nil {
		return err
	}
	if err = setDuration(&cfg.Session.IdleTTL, "SESSION_IDLE_TTL"); err != nil {
		return err
	}
	if err = setDuration(&cfg.Session.SweepInterval, "SESSION_SWEEP_INTERVAL"); err != nil {
		return err
	}
	if err = setInt64(&cfg.Training.RandomSeed, "TRAINING_RANDOM_SEED"); err != nil {
		return err
	}
	if v, ok := lookup("ARTIFACTS_COMPRESS"); ok {
		if cfg.Artifacts.Compress, err = strconv.ParseBool(v); err != nil {
			return errors.NewValidationError(EnvPrefix+"ARTIFACTS_COMPRESS", "must be a boolean", v)
		}
	}
	if v, ok := lookup("ARTIFACTS_LEVEL"); ok {
		if cfg.Artifacts.Level, err = strconv.Atoi(v); err != nil {
			return errors.NewValidationError(EnvPrefix+"ARTIFACTS_LEVEL", "must be an integer", v)
		}
	}
	return nil
}

func lookup(key string) (string, bool) {
	v, ok := os.LookupEnv(EnvPrefix + key)
	if !ok || strings.TrimSpace(v) == "" {
		return "", false
	}
	return strings.TrimSpace(v), true
}

func setString(dst *string, key string) {
	if v, ok := lookup(key); ok {
		*dst = v
	}
}

func setInt64(dst *int64, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return errors.NewValidationError(EnvPrefix+key, "must be an integer", v)
	}
	*dst = n
	return nil
}

func setDuration(dst *time.Duration, key string) error {
	v, ok := lookup(key)
	if !ok {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return errors.NewValidationError(EnvPrefix+key, "must be a duration", v)
	}
	*dst = d
	return nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	if c.Server.Addr == "" {
		return errors.NewValidationError("server.addr", "is required", c.Server.Addr)
	}
	if c.Upload.MaxBytes <= 0 {
		return errors.NewValidationError("upload.max_bytes", "must be positive", c.Upload.MaxBytes)
	}
	if _, err := log.ToLogLevel(c.Log.Level); err != nil {
		return errors.NewValidationError("log.level", "must be debug, info, warn or error", c.Log.Level)
	}
	if c.Session.IdleTTL < 0 {
		return errors.NewValidationError("session.idle_ttl", "must not be negative", c.Session.IdleTTL)
	}
	if c.Session.IdleTTL > 0 && c.Session.SweepInterval <= 0 {
		return errors.NewValidationError("session.sweep_interval", "must be positive when idle_ttl is set", c.Session.SweepInterval)
	}
	if c.Artifacts.Compress && (c.Artifacts.Level < 1 || c.Artifacts.Level > 22) {
		return errors.NewValidationError("artifacts.level", "must be in [1, 22]", c.Artifacts.Level)
	}
	return nil
}
