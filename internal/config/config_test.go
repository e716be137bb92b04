package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestLoadFile_MissingFileUsesDefaults(t *testing.T) {
	cfg, err := LoadFile(filepath.Join(t.TempDir(), "nope.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 5, cfg.Automation.MaxSteps)
	assert.Equal(t, 3, cfg.Automation.MaxPages)
	assert.Equal(t, 30*time.Second, cfg.Automation.ApplyDelay())
	assert.Equal(t, 30*24*time.Hour, cfg.Automation.Retention())
	assert.Equal(t, 1920, cfg.Browser.ViewportW)
	assert.True(t, cfg.Browser.Headless)
}

func TestLoadFile_YAMLAndEnvOverride(t *testing.T) {
	path := writeConfig(t, `
automation:
  max_steps: 7
  max_pages: 2
  element_timeout_ms: 10000
  action_timeout_ms: 5000
  navigation_timeout_ms: 30000
  delay_between_applications: 5
  session_retention_days: 10
workers:
  count: 1
  queue_size: 10
  shutdown_timeout_seconds: 5
`)
	t.Setenv("HEADLESS", "false")
	t.Setenv("TELEGRAM_CHAT_ID", "12345")
	t.Setenv("TELEGRAM_BOT_TOKEN", "token")

	cfg, err := LoadFile(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.Automation.MaxSteps)
	assert.Equal(t, 2, cfg.Automation.MaxPages)
	assert.Equal(t, 1, cfg.Workers.Count)
	assert.False(t, cfg.Browser.Headless)
	assert.Equal(t, int64(12345), cfg.Telegram.ChatID)
}

func TestLoadFile_Validation(t *testing.T) {
	tests := []struct {
		name string
		body string
		env  map[string]string
	}{
		{
			name: "ai enabled without key",
			body: "ai:\n  enabled: true\n",
		},
		{
			name: "pacing max below min",
			body: "pacing:\n  fill_min_ms: 900\n  fill_max_ms: 100\n",
		},
		{
			name: "zero max steps",
			body: "automation:\n  max_steps: 0\n",
		},
		{
			name: "bad chat id",
			env:  map[string]string{"TELEGRAM_CHAT_ID": "abc"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := LoadFile(writeConfig(t, tt.body))
			assert.Error(t, err)
		})
	}
}

func TestNewLogger(t *testing.T) {
	log := NewLogger("debug", "json")
	assert.Equal(t, logrus.DebugLevel, log.GetLevel())
	assert.IsType(t, &logrus.JSONFormatter{}, log.Formatter)

	log = NewLogger("bogus", "text")
	assert.Equal(t, logrus.InfoLevel, log.GetLevel())
}
