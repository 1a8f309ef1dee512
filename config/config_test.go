package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  debug: true
  admin_key: sekrit
  admin_allowed_ips: ["10.0.0.1"]
database:
  mode: mysql
  mysql_dsn: "user:pass@tcp(localhost:3306)/questlog"
game:
  timeline_max_days: 90
security:
  jwt_secret: abc
  jwt_ttl_h: 24h
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.True(t, cfg.Server.Debug)
	assert.Equal(t, "sekrit", cfg.Server.AdminKey)
	assert.Equal(t, []string{"10.0.0.1"}, cfg.Server.AdminAllowedIPs)
	assert.Equal(t, "mysql", cfg.Database.Mode)
	assert.Equal(t, 90, cfg.Game.TimelineMaxDays)
	assert.Equal(t, "abc", cfg.Security.JWTSecret)
	assert.Equal(t, 24*time.Hour, cfg.Security.JWTTTLH)
}

func TestLoad_Defaults(t *testing.T) {
	path := writeConfig(t, `
security:
  jwt_secret: abc
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "sqlite", cfg.Database.Mode)
	assert.Equal(t, 366, cfg.Game.TimelineMaxDays)
	assert.Equal(t, 100, cfg.Game.RankingTop)
	assert.Equal(t, 5*time.Minute, cfg.Game.RankingRefresh)
	assert.Equal(t, 72*time.Hour, cfg.Security.JWTTTLH)
	assert.Equal(t, float64(100), cfg.Security.RateLimitRPS)
	assert.Equal(t, 200, cfg.Security.RateLimitBurst)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}
