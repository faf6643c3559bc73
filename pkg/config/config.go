package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration options for the archiver.
type Config struct {
	// Archive location and layout
	Archive ArchiveConfig `yaml:"archive" json:"archive"`

	// Authentication settings
	Auth AuthConfig `yaml:"auth" json:"auth"`

	// Download settings
	Download DownloadConfig `yaml:"download" json:"download"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// ArchiveConfig holds archive directory configuration.
type ArchiveConfig struct {
	// Directory is the archive root. Library, Albums, Shared Albums and
	// Favorites subdirectories plus the index database live under it.
	Directory string `yaml:"directory" json:"directory"`

	// Debug dumps raw API listing pages as JSON under <root>/debug.
	Debug bool `yaml:"debug" json:"debug"`
}

// AuthConfig holds OAuth client configuration.
type AuthConfig struct {
	// CredentialsFile is the OAuth client secrets JSON file. Required
	// before any remote call can be made.
	CredentialsFile string `yaml:"credentials_file" json:"credentials_file"`

	// TokenStore selects where the user token is kept: "file",
	// "keyring" or "encrypted". "auto" tries keyring, then
	// encrypted file, then plain file.
	TokenStore string `yaml:"token_store" json:"token_store"`
}

// DownloadConfig holds download-specific configuration.
type DownloadConfig struct {
	ConcurrentDownloads int           `yaml:"concurrent_downloads" json:"concurrent_downloads"`
	DownloadTimeout     time.Duration `yaml:"download_timeout" json:"download_timeout"`
}

// LoggingConfig holds logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level" json:"level"`
	File  string `yaml:"file" json:"file"`
}

// DefaultConfig returns a Config instance with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Archive: ArchiveConfig{
			Directory: "",
			Debug:     false,
		},
		Auth: AuthConfig{
			CredentialsFile: "credentials.json",
			TokenStore:      "auto",
		},
		Download: DownloadConfig{
			ConcurrentDownloads: 3,
			DownloadTimeout:     5 * time.Minute,
		},
		Logging: LoggingConfig{
			Level: "info",
			File:  "",
		},
	}
}

// LoadFromEnv loads configuration from environment variables.
func (c *Config) LoadFromEnv() error {
	if dir := os.Getenv("GPARCHIVER_DIRECTORY"); dir != "" {
		c.Archive.Directory = dir
	}
	if creds := os.Getenv("GPARCHIVER_CREDENTIALS_FILE"); creds != "" {
		c.Auth.CredentialsFile = creds
	}
	if store := os.Getenv("GPARCHIVER_TOKEN_STORE"); store != "" {
		c.Auth.TokenStore = store
	}
	if concurrent := os.Getenv("GPARCHIVER_CONCURRENT_DOWNLOADS"); concurrent != "" {
		var val int
		fmt.Sscanf(concurrent, "%d", &val)
		if val > 0 {
			c.Download.ConcurrentDownloads = val
		}
	}
	if debug := os.Getenv("GPARCHIVER_DEBUG"); debug != "" {
		c.Archive.Debug = strings.ToLower(debug) == "true"
	}
	if logLevel := os.Getenv("GPARCHIVER_LOG_LEVEL"); logLevel != "" {
		c.Logging.Level = logLevel
	}
	return nil
}

// LoadFromFile loads configuration from a YAML file.
func (c *Config) LoadFromFile(path string) error {
	if path == "" {
		path = c.findConfigFile()
		if path == "" {
			return nil // No config file found, not an error
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}

	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file: %w", err)
	}

	return nil
}

// findConfigFile searches for a config file in standard locations.
func (c *Config) findConfigFile() string {
	locations := []string{
		".gparchiver.yaml",
		".gparchiver.yml",
		filepath.Join(os.Getenv("HOME"), ".config", "gparchiver", "config.yaml"),
		filepath.Join(os.Getenv("HOME"), ".config", "gparchiver", "config.yml"),
		filepath.Join(os.Getenv("HOME"), ".gparchiver.yaml"),
	}

	for _, loc := range locations {
		if _, err := os.Stat(loc); err == nil {
			return loc
		}
	}

	return ""
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	var errs []error

	if c.Archive.Directory == "" {
		errs = append(errs, errors.New("archive directory is required"))
	}
	if c.Auth.CredentialsFile == "" {
		errs = append(errs, errors.New("credentials file is required"))
	}

	validStores := map[string]bool{
		"auto": true, "file": true, "keyring": true, "encrypted": true,
	}
	if !validStores[strings.ToLower(c.Auth.TokenStore)] {
		errs = append(errs, errors.New("invalid token store"))
	}

	if c.Download.ConcurrentDownloads <= 0 {
		errs = append(errs, errors.New("concurrent downloads must be positive"))
	}
	if c.Download.ConcurrentDownloads > 16 {
		errs = append(errs, errors.New("concurrent downloads should not exceed 16"))
	}
	if c.Download.DownloadTimeout <= 0 {
		errs = append(errs, errors.New("download timeout must be positive"))
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[strings.ToLower(c.Logging.Level)] {
		errs = append(errs, errors.New("invalid log level"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}

	return nil
}

// Save saves the configuration to a file.
func (c *Config) Save(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

// MergeCommandLineFlags merges command line flags into the configuration.
func (c *Config) MergeCommandLineFlags(flags map[string]interface{}) {
	if dir, ok := flags["directory"].(string); ok && dir != "" {
		c.Archive.Directory = dir
	}
	if creds, ok := flags["credentials"].(string); ok && creds != "" {
		c.Auth.CredentialsFile = creds
	}
	if concurrent, ok := flags["concurrent"].(int); ok && concurrent > 0 {
		c.Download.ConcurrentDownloads = concurrent
	}
	if debug, ok := flags["debug"].(bool); ok && debug {
		c.Archive.Debug = true
	}
	if logLevel, ok := flags["log-level"].(string); ok && logLevel != "" {
		c.Logging.Level = logLevel
	}
}

// Load loads configuration from all sources with proper precedence.
// Precedence order: flags > environment variables > .env file > config file > defaults.
func Load(configPath string, flags map[string]interface{}) (*Config, error) {
	_ = godotenv.Load(".env")
	_ = godotenv.Load(filepath.Join(os.Getenv("HOME"), ".gparchiver.env"))

	config := DefaultConfig()

	if err := config.LoadFromFile(configPath); err != nil {
		return nil, fmt.Errorf("failed to load config file: %w", err)
	}

	if err := config.LoadFromEnv(); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	config.MergeCommandLineFlags(flags)

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}
