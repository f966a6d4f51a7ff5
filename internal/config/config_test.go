package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(viper.New(), writeConfig(t, "server:\n  port: 9090\n"))
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, 3*time.Second, cfg.Polling.Interval)
	assert.Equal(t, 5, cfg.Polling.PageSize)
	assert.True(t, cfg.Approval.Atomic)
	assert.Equal(t, "%s has been successfully approved.", cfg.Approval.ApprovedTemplate)
	assert.Equal(t, "department", cfg.Auth.RoleClaim)
}

func TestLoadEntitiesAndEnvOverride(t *testing.T) {
	t.Setenv("DATABASE_HOST", "db.internal")

	path := writeConfig(t, `
entities:
  generaladminaddyear: generaladminaddyear
  news: marquee_news
polling:
  interval: 1s
`)
	cfg, err := Load(viper.New(), path)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, time.Second, cfg.Polling.Interval)
	assert.Equal(t, "marquee_news", cfg.Entities["news"])
	assert.Len(t, cfg.Entities, 2)
}

func TestValidate(t *testing.T) {
	_, err := Load(viper.New(), writeConfig(t, "auth:\n  enabled: true\n"))
	assert.ErrorContains(t, err, "auth.secret")

	_, err = Load(viper.New(), writeConfig(t, "polling:\n  interval: 0s\n"))
	assert.ErrorContains(t, err, "polling.interval")

	_, err = Load(viper.New(), writeConfig(t, "database:\n  driver: sqlite\n"))
	assert.ErrorContains(t, err, "database.driver")
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(viper.New(), filepath.Join(t.TempDir(), "nope.yml"))
	assert.Error(t, err)
}
