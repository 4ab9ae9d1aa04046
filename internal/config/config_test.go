package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
bot:
  token: "123456:test-token"
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "123456:test-token", cfg.Bot.Token)
	assert.Equal(t, "", cfg.Bot.Webhook.Endpoint)
	assert.Equal(t, "8080", cfg.Bot.Webhook.ListenPort)
	assert.Equal(t, "sqlite", cfg.Database.Driver)
	assert.Equal(t, "tg-autodelete.db", cfg.Database.Path)
	assert.Equal(t, 300, cfg.Protection.DefaultDeleteDelay)
	assert.Equal(t, "INFO", cfg.Logger.Level)
	assert.Equal(t, 10, cfg.Logger.Rotation.MaxSize)
	assert.False(t, cfg.KeepAlive.Enabled)
	assert.Equal(t, 300, cfg.KeepAlive.IntervalSeconds)
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := writeConfig(t, `
bot:
  token: "123456:test-token"
  webhook:
    endpoint: "https://bot.example.com/webhook"
    listen_port: "9090"
database:
  driver: "mysql"
  host: "db.example.com"
  port: 3306
  dbname: "bots"
protection:
  default_delete_delay: 600
keepalive:
  enabled: true
  interval_seconds: 120
`)

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "https://bot.example.com/webhook", cfg.Bot.Webhook.Endpoint)
	assert.Equal(t, "9090", cfg.Bot.Webhook.ListenPort)
	assert.Equal(t, "mysql", cfg.Database.Driver)
	assert.Equal(t, "db.example.com", cfg.Database.Host)
	assert.Equal(t, 600, cfg.Protection.DefaultDeleteDelay)
	assert.True(t, cfg.KeepAlive.Enabled)
	assert.Equal(t, 120, cfg.KeepAlive.IntervalSeconds)
}

func TestLoadTokenFromEnvironment(t *testing.T) {
	t.Setenv("BOT_TOKEN", "999999:env-token")
	path := writeConfig(t, `
bot:
  token: ""
`)

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "999999:env-token", cfg.Bot.Token)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = Load("")
	assert.Error(t, err)
}
