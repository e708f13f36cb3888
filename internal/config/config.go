// Package config provides application configuration management with support for environment variables, command-line flags, and .env files.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
)

// Storage backends.
const (
	BackendBadger = "badger"
	BackendSQLite = "sqlite"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Storage StorageConfig
	Library LibraryConfig
	Relay   RelayConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// StorageConfig holds local durable storage configuration.
type StorageConfig struct {
	// DataPath is the directory holding the local database (default: ~/Marginalia).
	DataPath string
	// Backend selects the durable store: badger (default) or sqlite.
	Backend string
}

// LibraryConfig holds entity store policy.
type LibraryConfig struct {
	// MaxUploadSize caps attached files in bytes (default: 50MB).
	MaxUploadSize int64
	// FallbackCategory receives books whose category is deleted (default: cat-other).
	FallbackCategory string
}

// RelayConfig holds configuration for the sync relay, both for the server
// binary and for clients that publish to it.
type RelayConfig struct {
	URL          string        // Client side: base URL of the relay. Empty means local-only staging.
	Port         string        // Server side: listen port (default: 8787)
	ReadTimeout  time.Duration // default: 15s
	WriteTimeout time.Duration // default: 15s
	RateLimit    float64       // requests per second per client (default: 2)
	RateBurst    int           // default: 10
	TTL          time.Duration // lifetime of a published payload (default: 720h)
	MaxPayload   int64         // largest accepted payload in bytes (default: 16MB)
	// AllowedOrigins for CORS on the relay server. Empty allows any origin.
	AllowedOrigins []string
}

// Flags carries command-line values. Empty strings mean "not set".
type Flags struct {
	Env           string
	LogLevel      string
	DataPath      string
	Backend       string
	MaxUploadSize string
	RelayURL      string
	RelayPort     string
	EnvFile       string
}

// LoadConfig loads configuration from multiple sources with precedence:
// 1. Command-line flags (highest priority).
// 2. Environment variables.
// 3. .env file.
// 4. Default values (lowest priority).
func LoadConfig(flags Flags) (*Config, error) {
	envFile := flags.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// Load .env file if it exists (silently ignore if not found).
	_ = loadEnvFile(envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(flags.Env, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(flags.LogLevel, "LOG_LEVEL", "info"),
		},
		Storage: StorageConfig{
			DataPath: getConfigValue(flags.DataPath, "DATA_PATH", ""),
			Backend:  strings.ToLower(getConfigValue(flags.Backend, "STORAGE_BACKEND", BackendBadger)),
		},
		Library: LibraryConfig{
			FallbackCategory: getConfigValue("", "FALLBACK_CATEGORY", "cat-other"),
		},
		Relay: RelayConfig{
			URL:       strings.TrimRight(getConfigValue(flags.RelayURL, "RELAY_URL", ""), "/"),
			Port:      getConfigValue(flags.RelayPort, "RELAY_PORT", "8787"),
			RateLimit: getFloatConfigValue("", "RELAY_RATE", 2),
			RateBurst: getIntConfigValue("", "RELAY_BURST", 10),

			AllowedOrigins: splitList(getConfigValue("", "RELAY_ALLOWED_ORIGINS", "")),
		},
	}

	var err error
	if cfg.Library.MaxUploadSize, err = getSizeConfigValue(flags.MaxUploadSize, "MAX_UPLOAD_SIZE", "50MB"); err != nil {
		return nil, err
	}
	if cfg.Relay.MaxPayload, err = getSizeConfigValue("", "RELAY_MAX_PAYLOAD", "16MB"); err != nil {
		return nil, err
	}
	if cfg.Relay.ReadTimeout, err = getDurationConfigValue("", "RELAY_READ_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Relay.WriteTimeout, err = getDurationConfigValue("", "RELAY_WRITE_TIMEOUT", "15s"); err != nil {
		return nil, err
	}
	if cfg.Relay.TTL, err = getDurationConfigValue("", "RELAY_TTL", "720h"); err != nil {
		return nil, err
	}

	if err := cfg.expandDataPath(); err != nil {
		return nil, fmt.Errorf("invalid data path: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks that all required config values are present and valid.
func (c *Config) Validate() error {
	validEnvs := map[string]bool{
		"development": true,
		"staging":     true,
		"production":  true,
	}
	if !validEnvs[c.App.Environment] {
		return fmt.Errorf("invalid environment: %q (must be development, staging, or production)", c.App.Environment)
	}

	validLevels := map[string]bool{
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[strings.ToLower(c.Logger.Level)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.Logger.Level)
	}

	if c.Storage.DataPath == "" {
		return errors.New("data path cannot be empty after expansion")
	}

	switch c.Storage.Backend {
	case BackendBadger, BackendSQLite:
	default:
		return fmt.Errorf("invalid storage backend: %q (must be badger or sqlite)", c.Storage.Backend)
	}

	if c.Library.MaxUploadSize <= 0 {
		return errors.New("max upload size must be positive")
	}
	if c.Library.FallbackCategory == "" {
		return errors.New("fallback category cannot be empty")
	}

	if c.Relay.RateLimit <= 0 || c.Relay.RateBurst <= 0 {
		return errors.New("relay rate limit and burst must be positive")
	}

	return nil
}

// DatabasePath returns the on-disk location of the selected backend.
func (c *Config) DatabasePath() string {
	if c.Storage.Backend == BackendSQLite {
		return filepath.Join(c.Storage.DataPath, "marginalia.db")
	}
	return filepath.Join(c.Storage.DataPath, "db")
}

// expandPath expands ~ and makes the path absolute.
// If path is empty and defaultPath is provided, uses the default.
func expandPath(path, defaultPath string) (string, error) {
	if path == "" {
		return defaultPath, nil
	}

	if strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", fmt.Errorf("failed to get home directory: %w", err)
		}
		path = filepath.Join(homeDir, path[2:])
	}

	if !filepath.IsAbs(path) {
		absPath, err := filepath.Abs(path)
		if err != nil {
			return "", fmt.Errorf("failed to get absolute path: %w", err)
		}
		path = absPath
	}

	return filepath.Clean(path), nil
}

// expandDataPath expands ~ and makes the path absolute, defaulting to ~/Marginalia.
func (c *Config) expandDataPath() error {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return fmt.Errorf("failed to get home directory: %w", err)
	}
	defaultPath := filepath.Join(homeDir, "Marginalia")

	expanded, err := expandPath(c.Storage.DataPath, defaultPath)
	if err != nil {
		return err
	}
	c.Storage.DataPath = expanded
	return nil
}

// getConfigValue returns the first non-empty value from flag, env var, or default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if envValue := os.Getenv(envKey); envValue != "" {
		return envValue
	}
	return defaultValue
}

// getIntConfigValue returns an int from flag, env var, or default.
func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result int
	if _, err := fmt.Sscanf(strValue, "%d", &result); err != nil {
		return defaultValue
	}
	return result
}

// getFloatConfigValue returns a float from flag, env var, or default.
func getFloatConfigValue(flagValue, envKey string, defaultValue float64) float64 {
	strValue := getConfigValue(flagValue, envKey, "")
	if strValue == "" {
		return defaultValue
	}
	var result float64
	if _, err := fmt.Sscanf(strValue, "%g", &result); err != nil {
		return defaultValue
	}
	return result
}

// getDurationConfigValue parses a duration from flag, env var, or default.
func getDurationConfigValue(flagValue, envKey, defaultValue string) (time.Duration, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	d, err := time.ParseDuration(strValue)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, strValue, err)
	}
	return d, nil
}

// getSizeConfigValue parses a human byte size ("50MB", "1.5GiB") from flag, env var, or default.
func getSizeConfigValue(flagValue, envKey, defaultValue string) (int64, error) {
	strValue := getConfigValue(flagValue, envKey, defaultValue)
	n, err := humanize.ParseBytes(strValue)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", envKey, strValue, err)
	}
	return int64(n), nil
}

// splitList splits a comma-separated value, dropping empty entries.
func splitList(value string) []string {
	var out []string
	for part := range strings.SplitSeq(value, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// loadEnvFile loads environment variables from a .env file.
// Format: KEY=value (one per line, # for comments).
func loadEnvFile(path string) error {
	file, err := os.Open(path) //#nosec G304 -- Config file path from user input is expected
	if err != nil {
		return err
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		key, value, ok := strings.Cut(line, "=")
		if !ok {
			return fmt.Errorf("invalid format at line %d: %s", lineNum, line)
		}

		key = strings.TrimSpace(key)
		value = strings.Trim(strings.TrimSpace(value), `"'`)

		// Env vars take precedence over the .env file.
		if os.Getenv(key) == "" {
			if err := os.Setenv(key, value); err != nil {
				return fmt.Errorf("failed to set env var %s: %w", key, err)
			}
		}
	}

	return scanner.Err()
}
