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
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "relief_ledger", cfg.Database.DBName)
	assert.Equal(t, int64(15000), cfg.Ledger.DailyLimit)
	assert.Equal(t, "Asia/Kolkata", cfg.Ledger.AdminTimezone)
	assert.Equal(t, 500, cfg.Ledger.SyncMaxBatch)
	assert.Equal(t, 72*time.Hour, cfg.Ledger.SignatureTTL)
	assert.Equal(t, 5*time.Second, cfg.Ledger.LockHold)
	assert.Equal(t, "info", cfg.Log.Level)
}

func TestLoad_FromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
ledger:
  daily_limit: 20000
  admin_timezone: "Asia/Dhaka"
jwt:
  secret: "test-secret"
  expiry: "1h"
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, int64(20000), cfg.Ledger.DailyLimit)
	assert.Equal(t, "Asia/Dhaka", cfg.Ledger.AdminTimezone)
	assert.Equal(t, "test-secret", cfg.JWT.Secret)
	assert.Equal(t, time.Hour, cfg.JWT.Expiry)
	// Defaults fill what the file omits.
	assert.Equal(t, "localhost", cfg.Database.Host)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("RTL_DATABASE_HOST", "db.internal")
	t.Setenv("RTL_LEDGER_DAILY_LIMIT", "9000")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, int64(9000), cfg.Ledger.DailyLimit)
}

func TestDatabaseConfig_DSN(t *testing.T) {
	d := DatabaseConfig{
		Host: "localhost", Port: 5432,
		User: "u", Password: "p", DBName: "ledger", SSLMode: "disable",
	}
	assert.Equal(t, "postgres://u:p@localhost:5432/ledger?sslmode=disable", d.DSN())
}

func TestRedisConfig_Addr(t *testing.T) {
	r := RedisConfig{Host: "localhost", Port: 6379}
	assert.Equal(t, "localhost:6379", r.Addr())
}

func TestLoad_BadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("server: [not a map"), 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
