// Package config resolves DiVino configuration from command-line flags,
// environment variables, a .env file and defaults, in that order.
package config

import (
	"bufio"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration.
type Config struct {
	App     AppConfig
	Logger  LoggerConfig
	Gemini  GeminiConfig
	Storage StorageConfig
	Server  ServerConfig
}

// AppConfig holds application-level configuration.
type AppConfig struct {
	Environment string
}

// LoggerConfig holds logging configuration.
type LoggerConfig struct {
	Level string
}

// GeminiConfig holds the generative model settings.
type GeminiConfig struct {
	APIKey     string
	Model      string
	ImageModel string
	BaseURL    string
	Timeout    time.Duration
	// Outbound token bucket, per model.
	RPS   float64
	Burst int
}

// StorageConfig selects the durable key-value backend.
type StorageConfig struct {
	Backend string // sqlite, badger or memory
	Path    string
}

// ServerConfig holds HTTP API configuration.
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
	// Inbound token bucket, per navigation session.
	RPS   float64
	Burst int
	// Browser origins allowed to call the API.
	AllowedOrigins []string
	// Sessions untouched for this long are ended.
	SessionIdleTimeout time.Duration
}

// Overrides carries values given on the command line. Empty fields fall
// through to the environment.
type Overrides struct {
	Environment string
	LogLevel    string
	Storage     string
	StoragePath string
	Port        string
	EnvFile     string
}

// Storage backends.
const (
	BackendSQLite = "sqlite"
	BackendBadger = "badger"
	BackendMemory = "memory"
)

// Load builds the configuration with precedence:
// 1. Overrides (command-line flags).
// 2. Environment variables.
// 3. .env file.
// 4. Defaults.
func Load(o Overrides) (*Config, error) {
	envFile := o.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	// A missing .env file is fine.
	_ = loadEnvFile(envFile)

	cfg := &Config{
		App: AppConfig{
			Environment: getConfigValue(o.Environment, "ENV", "development"),
		},
		Logger: LoggerConfig{
			Level: getConfigValue(o.LogLevel, "LOG_LEVEL", "info"),
		},
		Gemini: GeminiConfig{
			APIKey:     getConfigValue("", "GEMINI_API_KEY", ""),
			Model:      getConfigValue("", "GEMINI_MODEL", "gemini-2.5-flash"),
			ImageModel: getConfigValue("", "GEMINI_IMAGE_MODEL", "gemini-2.5-flash-image"),
			BaseURL:    getConfigValue("", "GEMINI_BASE_URL", "https://generativelanguage.googleapis.com"),
			Burst:      getIntConfigValue("", "GEMINI_BURST", 3),
		},
		Storage: StorageConfig{
			Backend: getConfigValue(o.Storage, "STORAGE_BACKEND", BackendSQLite),
			Path:    getConfigValue(o.StoragePath, "STORAGE_PATH", defaultStoragePath()),
		},
		Server: ServerConfig{
			Port:           getConfigValue(o.Port, "SERVER_PORT", "8080"),
			Burst:          getIntConfigValue("", "API_BURST", 5),
			AllowedOrigins: splitList(getConfigValue("", "CORS_ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		},
	}

	var err error
	if cfg.Gemini.RPS, err = getFloatConfigValue("GEMINI_RPS", 1); err != nil {
		return nil, err
	}
	if cfg.Server.RPS, err = getFloatConfigValue("API_RPS", 2); err != nil {
		return nil, err
	}

	durations := []struct {
		key    string
		def    string
		target *time.Duration
	}{
		{"GEMINI_TIMEOUT", "60s", &cfg.Gemini.Timeout},
		{"SERVER_READ_TIMEOUT", "15s", &cfg.Server.ReadTimeout},
		{"SERVER_WRITE_TIMEOUT", "90s", &cfg.Server.WriteTimeout},
		{"SERVER_IDLE_TIMEOUT", "60s", &cfg.Server.IdleTimeout},
		{"SESSION_IDLE_TIMEOUT", "30m", &cfg.Server.SessionIdleTimeout},
	}
	for _, d := range durations {
		raw := getConfigValue("", d.key, d.def)
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			return nil, fmt.Errorf("invalid %s %q: %w", strings.ToLower(d.key), raw, err)
		}
		*d.target = parsed
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	var errs []error

	switch c.App.Environment {
	case "development", "staging", "production":
	default:
		errs = append(errs, fmt.Errorf("invalid environment %q (want development, staging or production)", c.App.Environment))
	}

	switch c.Storage.Backend {
	case BackendSQLite, BackendBadger:
		if c.Storage.Path == "" {
			errs = append(errs, errors.New("storage path is required"))
		}
	case BackendMemory:
	default:
		errs = append(errs, fmt.Errorf("invalid storage backend %q", c.Storage.Backend))
	}

	if c.Gemini.RPS <= 0 || c.Gemini.Burst <= 0 {
		errs = append(errs, errors.New("gemini rate limit must be positive"))
	}
	if c.Server.RPS <= 0 || c.Server.Burst <= 0 {
		errs = append(errs, errors.New("api rate limit must be positive"))
	}

	return errors.Join(errs...)
}

// RequireAPIKey fails when no model credential is configured.
func (c *Config) RequireAPIKey() error {
	if c.Gemini.APIKey == "" {
		return errors.New("GEMINI_API_KEY environment variable not set")
	}
	return nil
}

// splitList splits a comma-separated value, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func defaultStoragePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".divino", "divino.db")
	}
	return filepath.Join(home, ".divino", "divino.db")
}

// getConfigValue returns the first non-empty of flag value, environment, default.
func getConfigValue(flagValue, envKey, defaultValue string) string {
	if flagValue != "" {
		return flagValue
	}
	if v := os.Getenv(envKey); v != "" {
		return v
	}
	return defaultValue
}

func getIntConfigValue(flagValue, envKey string, defaultValue int) int {
	raw := getConfigValue(flagValue, envKey, "")
	if raw == "" {
		return defaultValue
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return defaultValue
	}
	return v
}

func getFloatConfigValue(envKey string, defaultValue float64) (float64, error) {
	raw := os.Getenv(envKey)
	if raw == "" {
		return defaultValue, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q: %w", strings.ToLower(envKey), raw, err)
	}
	return v, nil
}

// loadEnvFile sets variables from a KEY=VALUE file without overriding the
// real environment.
func loadEnvFile(path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		key, value, ok := strings.Cut(line, "=")
		if !ok {
			continue
		}
		key = strings.TrimSpace(strings.TrimPrefix(key, "export "))
		value = strings.Trim(strings.TrimSpace(value), `"'`)
		if _, exists := os.LookupEnv(key); !exists {
			_ = os.Setenv(key, value)
		}
	}
	return scanner.Err()
}
