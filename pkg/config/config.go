package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the complete PartFS configuration.
//
// This structure captures all configurable aspects of the upload server:
//   - Logging configuration
//   - HTTP server settings
//   - Storage backend selection and configuration (backend-specific)
//   - Staging placement policy
//   - Metadata store selection
//   - Upload policy (size limits, blocked extensions)
//
// Configuration sources (in order of precedence):
//  1. Environment variables (PARTFS_*)
//  2. Configuration file (YAML or TOML)
//  3. Default values (lowest priority)
//
// Backend Configuration Pattern:
// Each storage backend defines its own configuration shape. The Config struct
// contains type-specific sections (storage.filesystem, storage.memory,
// storage.s3) and only the section matching the selected type is used.
type Config struct {
	// Logging controls log output behavior
	Logging LoggingConfig `mapstructure:"logging"`

	// Server contains HTTP listener settings
	Server ServerConfig `mapstructure:"server"`

	// Storage specifies the published-namespace backend
	Storage StorageConfig `mapstructure:"storage"`

	// Metadata specifies the metadata store receiving post-commit updates
	Metadata MetadataConfig `mapstructure:"metadata"`

	// Upload contains the ingestion policy
	Upload UploadConfig `mapstructure:"upload"`

	// Notify selects the post-commit event sink
	Notify NotifyConfig `mapstructure:"notify"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	// Level is the minimum log level to output
	// Valid values: DEBUG, INFO, WARN, ERROR (case-insensitive)
	Level string `mapstructure:"level" validate:"required,oneof=DEBUG INFO WARN ERROR debug info warn error"`

	// Format specifies the log output format
	// Valid values: text, json
	Format string `mapstructure:"format" validate:"required,oneof=text json"`

	// Output specifies where logs are written
	// Valid values: stdout, stderr, or a file path
	Output string `mapstructure:"output" validate:"required"`
}

// ServerConfig contains HTTP listener settings.
type ServerConfig struct {
	// ListenAddress is the address the HTTP server binds, in net.Listen form
	ListenAddress string `mapstructure:"listen_address" validate:"required"`

	// ShutdownTimeout is the maximum time to wait for graceful shutdown
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" validate:"required,gt=0"`
}

// StorageConfig specifies storage backend configuration.
//
// The Type field determines which backend is used. Only the corresponding
// type-specific section is read.
type StorageConfig struct {
	// Type specifies which storage backend to use
	// Valid values: filesystem, memory, s3
	Type string `mapstructure:"type" validate:"required,oneof=filesystem memory s3"`

	// Filesystem contains filesystem-specific configuration
	// Only used when Type = "filesystem"
	Filesystem map[string]any `mapstructure:"filesystem"`

	// Memory contains memory-specific configuration
	// Only used when Type = "memory"
	Memory map[string]any `mapstructure:"memory"`

	// S3 contains S3-specific configuration
	// Only used when Type = "s3"
	S3 map[string]any `mapstructure:"s3"`
}

// MetadataConfig specifies metadata store configuration.
type MetadataConfig struct {
	// Type specifies which metadata store to use
	// Valid values: none, badger
	Type string `mapstructure:"type" validate:"required,oneof=none badger"`

	// Badger contains BadgerDB-specific configuration
	// Only used when Type = "badger"
	Badger map[string]any `mapstructure:"badger"`
}

// UploadConfig contains the ingestion policy.
type UploadConfig struct {
	// MaxUploadBytes rejects payloads above this size. Zero means no limit.
	MaxUploadBytes int64 `mapstructure:"max_upload_bytes" validate:"gte=0"`

	// BlockedExtensions lists file extensions rejected at the HTTP surface
	// (e.g. ".exe", ".tmp")
	BlockedExtensions []string `mapstructure:"blocked_extensions"`

	// PartFileColocated places part files in the target's directory instead
	// of the flat staging prefix
	PartFileColocated bool `mapstructure:"part_file_colocated"`

	// PartsPrefix is the flat staging location for non-colocated part
	// files; it is always placed under the reserved staging namespace
	PartsPrefix string `mapstructure:"parts_prefix"`
}

// NotifyConfig selects the post-commit event sink.
type NotifyConfig struct {
	// Type specifies the notifier implementation
	// Valid values: none, log
	Type string `mapstructure:"type" validate:"required,oneof=none log"`
}

// Load loads configuration from file, environment, and defaults.
//
// Configuration precedence (highest to lowest):
//  1. Environment variables (PARTFS_*)
//  2. Configuration file
//  3. Default values
//
// Parameters:
//   - configPath: Path to config file (empty string uses default location)
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: Configuration loading or validation error
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setupViper(v, configPath)

	if err := readConfigFile(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// setupViper configures viper with environment variables and config file settings.
func setupViper(v *viper.Viper, configPath string) {
	// Environment variables use the PARTFS_ prefix and underscores
	// Example: PARTFS_LOGGING_LEVEL=DEBUG
	v.SetEnvPrefix("PARTFS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Default location: $XDG_CONFIG_HOME/partfs/config.{yaml,toml}
		v.AddConfigPath(getConfigDir())
		v.SetConfigName("config")
		v.SetConfigType("yaml")
	}
}

// readConfigFile reads the configuration file if it exists.
func readConfigFile(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		// Missing config file is acceptable: defaults apply. Viper reports
		// this differently for search paths vs explicit files.
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("failed to read config file: %w", err)
	}

	return nil
}

// getConfigDir returns the configuration directory path.
//
// Uses XDG_CONFIG_HOME if set, otherwise ~/.config, or falls back to the
// current directory if the home directory cannot be determined.
func getConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "partfs")
	}

	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}

	return filepath.Join(home, ".config", "partfs")
}

// GetDefaultConfigPath returns the default configuration file path.
func GetDefaultConfigPath() string {
	return filepath.Join(getConfigDir(), "config.yaml")
}
