package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:     AppConfig{Environment: "development"},
		Logger:  LoggerConfig{Level: "info"},
		Storage: StorageConfig{DataPath: "/some/path", Backend: BackendBadger},
		Library: LibraryConfig{MaxUploadSize: 1024, FallbackCategory: "cat-other"},
		Relay:   RelayConfig{RateLimit: 1, RateBurst: 1},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_AllEnvironments(t *testing.T) {
	tests := []struct {
		env   string
		valid bool
	}{
		{"development", true},
		{"staging", true},
		{"production", true},
		{"test", false},
		{"", false},
		{"DEVELOPMENT", false}, // case sensitive
	}

	for _, tt := range tests {
		t.Run(tt.env, func(t *testing.T) {
			cfg := validConfig()
			cfg.App.Environment = tt.env

			err := cfg.Validate()
			if tt.valid {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestValidate_Backends(t *testing.T) {
	for _, backend := range []string{BackendBadger, BackendSQLite} {
		cfg := validConfig()
		cfg.Storage.Backend = backend
		assert.NoError(t, cfg.Validate(), backend)
	}

	cfg := validConfig()
	cfg.Storage.Backend = "indexeddb"
	assert.Error(t, cfg.Validate())
}

func TestValidate_Library(t *testing.T) {
	cfg := validConfig()
	cfg.Library.MaxUploadSize = 0
	assert.Error(t, cfg.Validate())

	cfg = validConfig()
	cfg.Library.FallbackCategory = ""
	assert.Error(t, cfg.Validate())
}

func TestValidate_EmptyDataPath(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.DataPath = ""
	assert.Error(t, cfg.Validate())
}

func TestLoadConfig_Defaults(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_PATH", dir)

	cfg, err := LoadConfig(Flags{EnvFile: filepath.Join(dir, "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, BackendBadger, cfg.Storage.Backend)
	assert.Equal(t, int64(50_000_000), cfg.Library.MaxUploadSize)
	assert.Equal(t, "cat-other", cfg.Library.FallbackCategory)
	assert.Equal(t, 720*time.Hour, cfg.Relay.TTL)
	assert.Equal(t, filepath.Join(dir, "db"), cfg.DatabasePath())
}

func TestLoadConfig_FlagsOverrideEnv(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("DATA_PATH", dir)
	t.Setenv("STORAGE_BACKEND", "badger")
	t.Setenv("MAX_UPLOAD_SIZE", "1MB")

	cfg, err := LoadConfig(Flags{
		Backend:       "SQLite",
		MaxUploadSize: "2MiB",
		RelayURL:      "https://relay.example.com/",
		EnvFile:       filepath.Join(dir, "missing.env"),
	})
	require.NoError(t, err)

	assert.Equal(t, BackendSQLite, cfg.Storage.Backend)
	assert.Equal(t, int64(2<<20), cfg.Library.MaxUploadSize)
	assert.Equal(t, "https://relay.example.com", cfg.Relay.URL)
	assert.Equal(t, filepath.Join(dir, "marginalia.db"), cfg.DatabasePath())
}

func TestLoadConfig_InvalidSize(t *testing.T) {
	t.Setenv("DATA_PATH", t.TempDir())

	_, err := LoadConfig(Flags{MaxUploadSize: "lots", EnvFile: "/nonexistent/.env"})
	assert.Error(t, err)
}

func TestLoadConfig_AllowedOrigins(t *testing.T) {
	t.Setenv("DATA_PATH", t.TempDir())
	t.Setenv("RELAY_ALLOWED_ORIGINS", " https://a.example.com, ,https://b.example.com ")

	cfg, err := LoadConfig(Flags{EnvFile: "/nonexistent/.env"})
	require.NoError(t, err)
	assert.Equal(t, []string{"https://a.example.com", "https://b.example.com"}, cfg.Relay.AllowedOrigins)
}

func TestExpandDataPath_TildeExpansion(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := &Config{Storage: StorageConfig{DataPath: "~/notes"}}
	require.NoError(t, cfg.expandDataPath())
	assert.Equal(t, filepath.Join(homeDir, "notes"), cfg.Storage.DataPath)
}

func TestExpandDataPath_EmptyUsesDefault(t *testing.T) {
	homeDir, err := os.UserHomeDir()
	require.NoError(t, err)

	cfg := &Config{}
	require.NoError(t, cfg.expandDataPath())
	assert.Equal(t, filepath.Join(homeDir, "Marginalia"), cfg.Storage.DataPath)
}

func TestGetConfigValue_Precedence(t *testing.T) {
	t.Setenv("TEST_KEY", "from-env")

	assert.Equal(t, "from-flag", getConfigValue("from-flag", "TEST_KEY", "default"))
	assert.Equal(t, "from-env", getConfigValue("", "TEST_KEY", "default"))
	assert.Equal(t, "default", getConfigValue("", "TEST_KEY_UNSET", "default"))
}

func TestLoadEnvFile_ValidFile(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	content := "# comment\n\nMARGINALIA_TEST_A=alpha\nMARGINALIA_TEST_B=\"quoted value\"\n"
	require.NoError(t, os.WriteFile(envFile, []byte(content), 0o600))
	t.Setenv("MARGINALIA_TEST_A", "")
	t.Setenv("MARGINALIA_TEST_B", "")

	require.NoError(t, loadEnvFile(envFile))

	assert.Equal(t, "alpha", os.Getenv("MARGINALIA_TEST_A"))
	assert.Equal(t, "quoted value", os.Getenv("MARGINALIA_TEST_B"))
}

func TestLoadEnvFile_ExistingEnvVarsNotOverwritten(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("MARGINALIA_TEST_C=file\n"), 0o600))
	t.Setenv("MARGINALIA_TEST_C", "env")

	require.NoError(t, loadEnvFile(envFile))
	assert.Equal(t, "env", os.Getenv("MARGINALIA_TEST_C"))
}

func TestLoadEnvFile_InvalidFormat(t *testing.T) {
	envFile := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("NOT_A_PAIR\n"), 0o600))

	assert.Error(t, loadEnvFile(envFile))
}

func TestLoadEnvFile_NonExistentFile(t *testing.T) {
	assert.Error(t, loadEnvFile("/nonexistent/file/.env"))
}
