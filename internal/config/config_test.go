package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, int64(2*1024*1024), cfg.Tickets.AttachmentMaxBytes)
	assert.Equal(t, 5, cfg.Tickets.TrackIDMaxAttempts)
	assert.Equal(t, OutboxInline, cfg.Notification.Outbox)
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9090")
	t.Setenv("APP_BASE_URL", "https://help.example.test/")
	t.Setenv("NOTIFY_OUTBOX", "REDIS")
	t.Setenv("SMTP_PORT", "2525")
	t.Setenv("AUTH_BCRYPT_COST", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "9090", cfg.App.Port)
	assert.Equal(t, "https://help.example.test", cfg.App.BaseURL)
	assert.Equal(t, OutboxRedis, cfg.Notification.Outbox)
	assert.Equal(t, 2525, cfg.SMTP.Port)
	assert.Equal(t, 12, cfg.Auth.BcryptCost)
}

func TestLoadRejectsBadValues(t *testing.T) {
	t.Run("outbox mode", func(t *testing.T) {
		t.Setenv("NOTIFY_OUTBOX", "kafka")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("redis db", func(t *testing.T) {
		t.Setenv("REDIS_DB", "x")
		_, err := Load()
		assert.Error(t, err)
	})
	t.Run("attachment limit", func(t *testing.T) {
		t.Setenv("ATTACHMENT_MAX_BYTES", "0")
		_, err := Load()
		assert.Error(t, err)
	})
}

func TestRequestTimeoutDisabled(t *testing.T) {
	assert.Zero(t, AppConfig{RequestTimeoutSeconds: 0}.RequestTimeout())
}
