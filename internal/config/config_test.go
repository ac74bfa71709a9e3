package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noEnvFile(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "missing.env")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("ENV", "")
	t.Setenv("STORAGE_BACKEND", "")
	t.Setenv("GEMINI_MODEL", "")
	t.Setenv("SERVER_WRITE_TIMEOUT", "")
	t.Setenv("SESSION_IDLE_TIMEOUT", "")
	t.Setenv("CORS_ALLOWED_ORIGINS", "")

	cfg, err := Load(Overrides{EnvFile: noEnvFile(t)})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, "gemini-2.5-flash", cfg.Gemini.Model)
	assert.Equal(t, 90*time.Second, cfg.Server.WriteTimeout)
	assert.Equal(t, 1.0, cfg.Gemini.RPS)
	assert.Equal(t, 3, cfg.Gemini.Burst)
	assert.Equal(t, 30*time.Minute, cfg.Server.SessionIdleTimeout)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.Server.AllowedOrigins)
}

func TestLoad_AllowedOrigins(t *testing.T) {
	t.Setenv("CORS_ALLOWED_ORIGINS", " https://divino.app , ,http://localhost:5173")

	cfg, err := Load(Overrides{EnvFile: noEnvFile(t)})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://divino.app", "http://localhost:5173"}, cfg.Server.AllowedOrigins)
}

func TestLoad_Precedence(t *testing.T) {
	t.Setenv("LOG_LEVEL", "warn")
	t.Setenv("SERVER_PORT", "9000")

	cfg, err := Load(Overrides{LogLevel: "debug", EnvFile: noEnvFile(t)})
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logger.Level, "flag beats environment")
	assert.Equal(t, "9000", cfg.Server.Port, "environment beats default")
}

func TestLoad_EnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("# comment\nexport DIVINO_TEST_KEY=\"from-file\"\nbroken line\n"), 0o600))
	t.Cleanup(func() { os.Unsetenv("DIVINO_TEST_KEY") })

	_, err := Load(Overrides{EnvFile: path})
	require.NoError(t, err)
	assert.Equal(t, "from-file", os.Getenv("DIVINO_TEST_KEY"))
}

func TestLoad_InvalidDuration(t *testing.T) {
	t.Setenv("GEMINI_TIMEOUT", "soon")

	_, err := Load(Overrides{EnvFile: noEnvFile(t)})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "gemini_timeout")
}

func TestValidate(t *testing.T) {
	valid := func() *Config {
		return &Config{
			App:     AppConfig{Environment: "production"},
			Storage: StorageConfig{Backend: BackendBadger, Path: "/tmp/db"},
			Gemini:  GeminiConfig{RPS: 1, Burst: 1},
			Server:  ServerConfig{RPS: 1, Burst: 1},
		}
	}

	assert.NoError(t, valid().Validate())

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"bad environment", func(c *Config) { c.App.Environment = "test" }},
		{"bad backend", func(c *Config) { c.Storage.Backend = "postgres" }},
		{"missing path", func(c *Config) { c.Storage.Path = "" }},
		{"zero burst", func(c *Config) { c.Gemini.Burst = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}

	memory := valid()
	memory.Storage = StorageConfig{Backend: BackendMemory}
	assert.NoError(t, memory.Validate())
}

func TestRequireAPIKey(t *testing.T) {
	assert.Error(t, (&Config{}).RequireAPIKey())
	assert.NoError(t, (&Config{Gemini: GeminiConfig{APIKey: "k"}}).RequireAPIKey())
}
