package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/Sternrassler/wanikani-client/pkg/cache"
	"github.com/Sternrassler/wanikani-client/pkg/client"
	"github.com/Sternrassler/wanikani-client/pkg/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var allEnv = []string{
	"WANIKANI_API_STORE_URI",
	"WANIKANI_API_TOKEN",
	"WANIKANI_API_BASE_URL",
	"WANIKANI_API_REVISION",
	"WANIKANI_API_USER_AGENT",
	"WANIKANI_API_TIMEOUT",
	"WANIKANI_API_LOG_LEVEL",
	"WANIKANI_API_LOG_PRETTY",
}

// clearEnv unsets every config variable for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, name := range allEnv {
		t.Setenv(name, "")
		require.NoError(t, os.Unsetenv(name))
	}
}

func writeFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "wanikani.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

// TestLoadDefaults verifies that everything but the token has a default.
func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("WANIKANI_API_TOKEN", "env-token")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, cache.DefaultURI, cfg.Store.URI)
	assert.Equal(t, "env-token", cfg.API.Token)
	assert.Equal(t, client.DefaultBaseURL, cfg.API.BaseURL)
	assert.Equal(t, client.DefaultRevision, cfg.API.Revision)
	assert.Equal(t, client.DefaultUserAgent, cfg.API.UserAgent)
	assert.Equal(t, 30*time.Second, cfg.API.Timeout)
	assert.Equal(t, "info", cfg.Log.Level)
	assert.False(t, cfg.Log.Pretty)
}

func TestLoadFromEnv(t *testing.T) {
	clearEnv(t)
	t.Setenv("WANIKANI_API_TOKEN", "env-token")
	t.Setenv("WANIKANI_API_STORE_URI", "sqlite:///tmp/wanikani.db")
	t.Setenv("WANIKANI_API_BASE_URL", "http://localhost:9999/v2")
	t.Setenv("WANIKANI_API_TIMEOUT", "5s")
	t.Setenv("WANIKANI_API_LOG_LEVEL", "debug")
	t.Setenv("WANIKANI_API_LOG_PRETTY", "true")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "sqlite:///tmp/wanikani.db", cfg.Store.URI)
	assert.Equal(t, "http://localhost:9999/v2", cfg.API.BaseURL)
	assert.Equal(t, 5*time.Second, cfg.API.Timeout)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.Log.Pretty)
}

func TestLoadMissingToken(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Token")
}

func TestLoadInvalidValues(t *testing.T) {
	tests := []struct {
		name  string
		env   string
		value string
		field string
	}{
		{"relative base url", "WANIKANI_API_BASE_URL", "not a url", "BaseURL"},
		{"unknown log level", "WANIKANI_API_LOG_LEVEL", "verbose", "Level"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			t.Setenv("WANIKANI_API_TOKEN", "env-token")
			t.Setenv(tt.env, tt.value)

			_, err := Load()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.field)
		})
	}
}

func TestLoadFile(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, `
store:
  uri: leveldb:///var/lib/wanikani
api:
  token: file-token
  revision: "20170710"
log:
  level: warn
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "leveldb:///var/lib/wanikani", cfg.Store.URI)
	assert.Equal(t, "file-token", cfg.API.Token)
	assert.Equal(t, "warn", cfg.Log.Level)
	assert.Equal(t, client.DefaultBaseURL, cfg.API.BaseURL)
}

func TestLoadFileEnvWins(t *testing.T) {
	clearEnv(t)
	path := writeFile(t, "api:\n  token: file-token\nstore:\n  uri: memory://\n")
	t.Setenv("WANIKANI_API_TOKEN", "env-token")

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "env-token", cfg.API.Token)
	assert.Equal(t, "memory://", cfg.Store.URI)
}

func TestLoadFileErrors(t *testing.T) {
	clearEnv(t)

	_, err := LoadFile("")
	assert.Error(t, err)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)

	_, err = LoadFile(writeFile(t, "api: [unclosed"))
	assert.Error(t, err)
}

func TestClientConfig(t *testing.T) {
	cfg := &Config{API: APIConfig{
		Token:     "tok",
		BaseURL:   "http://localhost/v2",
		Revision:  "20170710",
		UserAgent: "test/1.0",
		Timeout:   time.Second,
	}}

	cc := cfg.ClientConfig()
	assert.Equal(t, "tok", cc.Token)
	assert.Equal(t, "http://localhost/v2", cc.BaseURL)
	assert.Equal(t, "test/1.0", cc.UserAgent)
	assert.Equal(t, time.Second, cc.Timeout)

	_, err := client.New(cc)
	assert.NoError(t, err)
}

func TestLoggingConfig(t *testing.T) {
	cfg := &Config{Log: LogConfig{Level: "warning", Pretty: true}}

	lc := cfg.LoggingConfig()
	assert.Equal(t, logging.LevelWarn, lc.Level)
	assert.True(t, lc.Pretty)
}
