package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 3*time.Hour, cfg.DefaultInterval)
	assert.Equal(t, 3, cfg.DefaultWorkers)
	assert.Equal(t, 3, cfg.MaxRetries)
	assert.Equal(t, 30*time.Second, cfg.RetryDelay)
	assert.Equal(t, 7*24*time.Hour, cfg.RecencyWindow)
	assert.True(t, cfg.ValidateNetwork)
	assert.Equal(t, StorePostgres, cfg.StoreDriver)
	assert.Equal(t, "127.0.0.1:8088", cfg.ControlAddr)
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("CLI_APP_TIMER_INTERVAL", "90m")
	t.Setenv("CLI_APP_WORKERS_COUNT", "7")
	t.Setenv("REFRESH_RETRY_DELAY", "2s")
	t.Setenv("STORE_DRIVER", "Bolt")
	t.Setenv("POSTGRES_PORT", "6543")
	t.Setenv("VALIDATE_NETWORK", "false")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 90*time.Minute, cfg.DefaultInterval)
	assert.Equal(t, 7, cfg.DefaultWorkers)
	assert.Equal(t, 2*time.Second, cfg.RetryDelay)
	assert.Equal(t, StoreBolt, cfg.StoreDriver)
	assert.Equal(t, 6543, cfg.PGPort)
	assert.False(t, cfg.ValidateNetwork)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "rsswatch.yaml")
	body := "refresh_schedule: \"0 */3 * * *\"\nrefresh_max_retries: 5\ncontrol_addr: 127.0.0.1:9999\n"
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	t.Setenv("CONTROL_ADDR", "127.0.0.1:7777")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "0 */3 * * *", cfg.Schedule)
	assert.Equal(t, 5, cfg.MaxRetries)
	assert.Equal(t, "127.0.0.1:7777", cfg.ControlAddr, "environment wins over the file")
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("unknown driver", func(t *testing.T) {
		t.Setenv("STORE_DRIVER", "mongo")
		_, err := Load("")
		assert.ErrorContains(t, err, "STORE_DRIVER")
	})
	t.Run("zero workers", func(t *testing.T) {
		t.Setenv("CLI_APP_WORKERS_COUNT", "0")
		_, err := Load("")
		assert.ErrorContains(t, err, "CLI_APP_WORKERS_COUNT")
	})
	t.Run("missing file", func(t *testing.T) {
		_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
		assert.Error(t, err)
	})
}

func TestPostgresURL(t *testing.T) {
	cfg := Config{PGUser: "u", PGPassword: "p", PGHost: "db", PGPort: 5432, PGDatabase: "feeds"}
	assert.Equal(t, "postgres://u:p@db:5432/feeds?sslmode=disable", cfg.PostgresURL())
}
