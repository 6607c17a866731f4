package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("ENVIRONMENT", "development")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 6, cfg.Dashboard.PageSize)
	assert.Equal(t, "pt-BR", cfg.Dashboard.DefaultLocale)
	assert.Equal(t, 3, cfg.Push.Attempts)
	assert.Equal(t, time.Second, cfg.Push.Delay)
	assert.Equal(t, "https://api.ultramsg.com", cfg.Relay.BaseURL)
	assert.Equal(t, []string{"http://localhost:5173", "http://localhost:3000"}, cfg.CORS.AllowedOrigins)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_ProductionRequiresSecrets(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("JWT_SECRET", "")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "DATABASE_URL")
	assert.Contains(t, err.Error(), "JWT_SECRET")
}

func TestLoad_YAMLWithEnvOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  port: 9090
dashboard:
  page_size: 12
relay:
  instance_id: "instance1"
  token: "tok"
`), 0o644))

	t.Setenv("CONFIG_PATH", path)
	t.Setenv("ENVIRONMENT", "development")
	t.Setenv("PUSH_ATTEMPTS", "5")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 12, cfg.Dashboard.PageSize)
	assert.Equal(t, 5, cfg.Push.Attempts)
	assert.True(t, cfg.RelayEnabled())
	assert.NoError(t, cfg.ValidateRelay())
}

func TestValidateRelay_MissingCredentials(t *testing.T) {
	cfg := &Config{}
	assert.Error(t, cfg.ValidateRelay())
}

func TestLocation_FallsBackToUTC(t *testing.T) {
	cfg := &Config{Dashboard: DashboardConfig{TimeZone: "Not/AZone"}}
	assert.Equal(t, time.UTC, cfg.Location())
}

func TestLoadRelay_IgnoresDashboardRequirements(t *testing.T) {
	t.Setenv("CONFIG_PATH", "")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("ULTRAMSG_INSTANCE_ID", "instance1")
	t.Setenv("ULTRAMSG_TOKEN", "tok")
	t.Setenv("RELAY_PORT", "9191")

	cfg, err := LoadRelay()
	require.NoError(t, err)
	assert.Equal(t, 9191, cfg.Relay.Port)

	t.Setenv("ULTRAMSG_TOKEN", "")
	_, err = LoadRelay()
	assert.Error(t, err)
}
