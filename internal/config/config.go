// Package config loads the vecscan command-line configuration.
package config

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/hupe1980/vecscan"
	"github.com/hupe1980/vecscan/codec"
)

// Config holds the complete CLI configuration.
type Config struct {
	Store       vecscan.Config `yaml:"store"`
	Backend     BackendConfig  `yaml:"backend"`
	Codec       string         `yaml:"codec"`
	Parallelism int            `yaml:"parallelism"`
	Embedder    EmbedderConfig `yaml:"embedder"`
	Accel       AccelConfig    `yaml:"accel"`
	Backup      BackupConfig   `yaml:"backup"`
	Log         LogConfig      `yaml:"log"`
}

// BackendConfig selects the key-value backend.
type BackendConfig struct {
	Type string `yaml:"type"` // bolt|sqlite|memory
	Path string `yaml:"path"`
}

// EmbedderConfig selects the embedding provider.
type EmbedderConfig struct {
	Type              string        `yaml:"type"` // none|hashing|ollama
	BaseURL           string        `yaml:"base_url"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Dim               int           `yaml:"dim"` // hashing only
}

// AccelConfig selects the accelerated Hamming module. An empty module
// disables acceleration.
type AccelConfig struct {
	Module string `yaml:"module"`
}

// BackupConfig selects the backup target.
type BackupConfig struct {
	Target      string `yaml:"target"` // local|minio|s3
	Path        string `yaml:"path"`   // local only
	Bucket      string `yaml:"bucket"`
	Prefix      string `yaml:"prefix"`
	Endpoint    string `yaml:"endpoint"` // minio only
	AccessKey   string `yaml:"access_key"`
	SecretKey   string `yaml:"secret_key"`
	Secure      bool   `yaml:"secure"`
	Region      string `yaml:"region"`
	Compression string `yaml:"compression"`
}

// LogConfig configures diagnostics written to stderr.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug|info|warn|error
	Format string `yaml:"format"` // text|json
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Store: vecscan.Config{
			Name:        vecscan.DefaultName,
			VectorField: vecscan.DefaultVectorField,
		},
		Backend: BackendConfig{
			Type: "bolt",
			Path: "vecscan.db",
		},
		Codec:       "go-json",
		Parallelism: 1,
		Embedder: EmbedderConfig{
			Type:    "none",
			BaseURL: "http://localhost:11434",
			Timeout: 30 * time.Second,
			Dim:     256,
		},
		Accel: AccelConfig{},
		Backup: BackupConfig{
			Target:      "local",
			Path:        "backups",
			Compression: "zstd",
		},
		Log: LogConfig{
			Level:  "warn",
			Format: "text",
		},
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	var errs []error

	if !slices.Contains([]string{"bolt", "sqlite", "memory"}, c.Backend.Type) {
		errs = append(errs, fmt.Errorf("invalid backend type: %q", c.Backend.Type))
	}
	if c.Backend.Type != "memory" && c.Backend.Path == "" {
		errs = append(errs, errors.New("backend path is required"))
	}
	if _, ok := codec.ByName(c.Codec); !ok {
		errs = append(errs, fmt.Errorf("unknown codec: %q", c.Codec))
	}
	if c.Parallelism < 1 {
		errs = append(errs, fmt.Errorf("parallelism must be at least 1, got %d", c.Parallelism))
	}

	switch c.Embedder.Type {
	case "none", "ollama":
	case "hashing":
		if c.Embedder.Dim <= 0 {
			errs = append(errs, fmt.Errorf("hashing dim must be positive, got %d", c.Embedder.Dim))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid embedder type: %q", c.Embedder.Type))
	}

	switch c.Backup.Target {
	case "local":
	case "minio", "s3":
		if c.Backup.Bucket == "" {
			errs = append(errs, fmt.Errorf("backup bucket is required for %s", c.Backup.Target))
		}
	default:
		errs = append(errs, fmt.Errorf("invalid backup target: %q", c.Backup.Target))
	}
	if _, err := codec.ParseCompression(c.Backup.Compression); err != nil {
		errs = append(errs, err)
	}

	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Log.Level) {
		errs = append(errs, fmt.Errorf("invalid log level: %q", c.Log.Level))
	}
	if !slices.Contains([]string{"text", "json"}, c.Log.Format) {
		errs = append(errs, fmt.Errorf("invalid log format: %q", c.Log.Format))
	}

	return errors.Join(errs...)
}
