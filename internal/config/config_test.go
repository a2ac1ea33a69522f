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

	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))

	return path
}

func TestLoad(t *testing.T) {
	t.Run("Defaults fill missing fields", func(t *testing.T) {
		// Given: a config that only sets the log level
		path := writeConfig(t, "log-level: debug\n")
		t.Setenv("API_KEY", "")

		// When: loading it
		conf, err := Load(path)

		// Then: everything else takes its default
		require.NoError(t, err)
		assert.Equal(t, "debug", conf.LogLevel)
		assert.Equal(t, "9090", conf.HTTPPort)
		assert.Equal(t, "9091", conf.SocketPort)
		assert.Equal(t, StorageRedis, conf.Storage)
		assert.Equal(t, 24*time.Hour, conf.SessionTTL)
		assert.Equal(t, time.Minute, conf.SessionSweep)
		assert.Equal(t, "localhost:6379", conf.Redis.GetRedisAddr())
		assert.Empty(t, conf.Gemini.APIKey)
		assert.Equal(t, "gemini-2.5-flash", conf.Gemini.Model)
		assert.Equal(t, 15*time.Second, conf.Gemini.Timeout)
		assert.Equal(t, 600*time.Millisecond, conf.Bot.MinThinkDelay)
		assert.Equal(t, "Thinking hard...", conf.Bot.FallbackTaunt)
	})

	t.Run("File values are read", func(t *testing.T) {
		path := writeConfig(t, `
storage: memory
session-ttl: 1h
redis:
  host: redis
  port: "6380"
bot:
  min-think-delay: 1s
  fallback-taunt: "Hmm..."
`)

		conf, err := Load(path)

		require.NoError(t, err)
		assert.Equal(t, StorageMemory, conf.Storage)
		assert.Equal(t, time.Hour, conf.SessionTTL)
		assert.Equal(t, "redis:6380", conf.Redis.GetRedisAddr())
		assert.Equal(t, time.Second, conf.Bot.MinThinkDelay)
		assert.Equal(t, "Hmm...", conf.Bot.FallbackTaunt)
	})

	t.Run("Environment overrides the file", func(t *testing.T) {
		// Given: a file port and an API key in the environment
		path := writeConfig(t, "http-port: \"8000\"\n")
		t.Setenv("HTTP_PORT", "8080")
		t.Setenv("API_KEY", "secret")

		// When: loading
		conf, err := Load(path)

		// Then: the environment wins
		require.NoError(t, err)
		assert.Equal(t, "8080", conf.HTTPPort)
		assert.Equal(t, "secret", conf.Gemini.APIKey)
	})

	t.Run("Unknown storage is rejected", func(t *testing.T) {
		path := writeConfig(t, "storage: sqlite\n")

		_, err := Load(path)

		require.Error(t, err)
	})

	t.Run("Non-positive sweep interval is rejected", func(t *testing.T) {
		path := writeConfig(t, "session-sweep-interval: -1s\n")

		_, err := Load(path)

		require.Error(t, err)
	})

	t.Run("Missing file panics in MustLoad", func(t *testing.T) {
		assert.Panics(t, func() {
			MustLoad(filepath.Join(t.TempDir(), "missing.yml"))
		})
	})
}
