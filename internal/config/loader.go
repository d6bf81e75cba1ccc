package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// ConfigPaths defines the config file search paths in priority order
var ConfigPaths = []string{
	"./.vecscan.yaml",               // Project-specific config (highest priority)
	"~/.config/vecscan/config.yaml", // User config
}

// EnvPrefix prefixes every environment override.
const EnvPrefix = "VECSCAN_"

// Loader handles configuration loading with priority merging
type Loader struct {
	configPaths []string
	getenv      func(string) string
}

// NewLoader creates a new config loader
func NewLoader() *Loader {
	return &Loader{
		configPaths: ConfigPaths,
		getenv:      os.Getenv,
	}
}

// LoadConfig loads configuration from these sources, later ones winning:
// built-in defaults, the first config file found (or customPath), and
// VECSCAN_* environment variables. Command line flags are applied by the
// caller.
func (l *Loader) LoadConfig(customPath string) (*Config, error) {
	config := DefaultConfig()

	path := customPath
	if path == "" {
		path, _ = l.findConfigFile()
	}
	if path != "" {
		if err := loadFromFile(config, path); err != nil {
			return nil, fmt.Errorf("failed to load config from %s: %w", path, err)
		}
	}

	if err := l.applyEnvOverrides(config); err != nil {
		return nil, fmt.Errorf("failed to apply environment overrides: %w", err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}
	return config, nil
}

// loadFromFile decodes the YAML file at path over config. Keys absent from
// the file keep their current values; unknown keys are ignored.
func loadFromFile(config *Config, path string) error {
	ext := strings.ToLower(filepath.Ext(path))
	if ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("config file must have .yaml or .yml extension")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}
	if err := yaml.Unmarshal(data, config); err != nil {
		return fmt.Errorf("failed to parse YAML: %w", err)
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config
func (l *Loader) applyEnvOverrides(config *Config) error {
	envMappings := map[string]func(string) error{
		// Store
		"STORE_NAME":         func(v string) error { config.Store.Name = v; return nil },
		"STORE_VECTOR_FIELD": func(v string) error { config.Store.VectorField = v; return nil },
		"STORE_MODEL_ID":     func(v string) error { config.Store.ModelID = v; return nil },

		// Backend
		"BACKEND_TYPE": func(v string) error { config.Backend.Type = v; return nil },
		"BACKEND_PATH": func(v string) error { config.Backend.Path = v; return nil },
		"CODEC":        func(v string) error { config.Codec = v; return nil },
		"PARALLELISM":  func(v string) error { return parseInt(v, &config.Parallelism) },

		// Embedder
		"EMBEDDER_TYPE":                func(v string) error { config.Embedder.Type = v; return nil },
		"EMBEDDER_BASE_URL":            func(v string) error { config.Embedder.BaseURL = v; return nil },
		"EMBEDDER_TIMEOUT":             func(v string) error { return parseDuration(v, &config.Embedder.Timeout) },
		"EMBEDDER_REQUESTS_PER_SECOND": func(v string) error { return parseFloat(v, &config.Embedder.RequestsPerSecond) },
		"EMBEDDER_DIM":                 func(v string) error { return parseInt(v, &config.Embedder.Dim) },

		"ACCEL_MODULE": func(v string) error { config.Accel.Module = v; return nil },

		// Backup
		"BACKUP_TARGET":      func(v string) error { config.Backup.Target = v; return nil },
		"BACKUP_PATH":        func(v string) error { config.Backup.Path = v; return nil },
		"BACKUP_BUCKET":      func(v string) error { config.Backup.Bucket = v; return nil },
		"BACKUP_PREFIX":      func(v string) error { config.Backup.Prefix = v; return nil },
		"BACKUP_ENDPOINT":    func(v string) error { config.Backup.Endpoint = v; return nil },
		"BACKUP_ACCESS_KEY":  func(v string) error { config.Backup.AccessKey = v; return nil },
		"BACKUP_SECRET_KEY":  func(v string) error { config.Backup.SecretKey = v; return nil },
		"BACKUP_SECURE":      func(v string) error { return parseBool(v, &config.Backup.Secure) },
		"BACKUP_REGION":      func(v string) error { config.Backup.Region = v; return nil },
		"BACKUP_COMPRESSION": func(v string) error { config.Backup.Compression = v; return nil },

		// Log
		"LOG_LEVEL":  func(v string) error { config.Log.Level = v; return nil },
		"LOG_FORMAT": func(v string) error { config.Log.Format = v; return nil },
	}

	for name, setter := range envMappings {
		envVar := EnvPrefix + name
		if value := l.getenv(envVar); value != "" {
			if err := setter(value); err != nil {
				return fmt.Errorf("invalid value for %s: %w", envVar, err)
			}
		}
	}
	return nil
}

// findConfigFile finds the first existing config file in the search paths
func (l *Loader) findConfigFile() (string, bool) {
	for _, path := range l.configPaths {
		expandedPath := expandPath(path)
		if fileExists(expandedPath) {
			return expandedPath, true
		}
	}
	return "", false
}

// Helper functions

// expandPath expands ~ to home directory
func expandPath(path string) string {
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, path[2:])
		}
	}
	return path
}

func fileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

func parseInt(v string, dst *int) error {
	n, err := strconv.Atoi(v)
	if err != nil {
		return err
	}
	*dst = n
	return nil
}

func parseFloat(v string, dst *float64) error {
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return err
	}
	*dst = f
	return nil
}

func parseBool(v string, dst *bool) error {
	b, err := strconv.ParseBool(v)
	if err != nil {
		return err
	}
	*dst = b
	return nil
}

func parseDuration(v string, dst *time.Duration) error {
	d, err := time.ParseDuration(v)
	if err != nil {
		return err
	}
	*dst = d
	return nil
}
