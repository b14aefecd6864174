package config_test

import (
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/pulselink/config"
	"github.com/layer-3/pulselink/handshake"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{
		"LISTEN_ADDR", "STORE_BACKEND", "DATA_DIR", "REDIS_URL", "HANDSHAKE_TTL",
		"WALLET_CONNECT_URL", "APP_URL", "REDIRECT_SCHEME", "REDIRECT_PATH", "CLUSTER",
		"URL_OPENER", "JWT_SIGNING_KEY_FILE", "LOG_LEVEL",
	} {
		t.Setenv(key, "")
	}
}

func TestLoad_Defaults(t *testing.T) {
	clearEnv(t)

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "127.0.0.1:9000", cfg.ListenAddr)
	assert.Equal(t, config.BackendBadger, cfg.StoreBackend)
	assert.Equal(t, config.OpenerExec, cfg.URLOpener)
	assert.Equal(t, 15*time.Minute, cfg.HandshakeTTL)
	assert.Equal(t, logrus.InfoLevel, cfg.LogLevel)
	assert.Equal(t, handshake.DefaultRequestConfig(), cfg.Request)
	assert.NotEmpty(t, cfg.DataDir)
	assert.Equal(t, "http://127.0.0.1:9000", cfg.ServerURL())
}

func TestLoad_Overrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("LISTEN_ADDR", "localhost:8080")
	t.Setenv("STORE_BACKEND", "Memory")
	t.Setenv("HANDSHAKE_TTL", "90s")
	t.Setenv("REDIRECT_SCHEME", "myapp")
	t.Setenv("CLUSTER", "devnet")
	t.Setenv("URL_OPENER", "stdout")
	t.Setenv("LOG_LEVEL", "debug")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, config.BackendMemory, cfg.StoreBackend)
	assert.Equal(t, 90*time.Second, cfg.HandshakeTTL)
	assert.Equal(t, "myapp", cfg.Request.RedirectScheme)
	assert.Equal(t, "devnet", cfg.Request.Cluster)
	assert.Equal(t, config.OpenerStdout, cfg.URLOpener)
	assert.Equal(t, logrus.DebugLevel, cfg.NewLogger().GetLevel())
	assert.Equal(t, "http://localhost:8080", cfg.ServerURL())
}

func TestServerURL_WildcardListen(t *testing.T) {
	clearEnv(t)
	t.Setenv("LISTEN_ADDR", ":9100")

	cfg, err := config.Load()
	require.NoError(t, err)
	assert.Equal(t, "http://127.0.0.1:9100", cfg.ServerURL())
}

func TestLoad_Invalid(t *testing.T) {
	tests := []struct {
		key, value string
	}{
		{"HANDSHAKE_TTL", "soon"},
		{"STORE_BACKEND", "sqlite"},
		{"STORE_BACKEND", "redis"},
		{"URL_OPENER", "browser"},
		{"LOG_LEVEL", "loud"},
	}
	for _, tt := range tests {
		t.Run(tt.key+"="+tt.value, func(t *testing.T) {
			clearEnv(t)
			t.Setenv(tt.key, tt.value)
			_, err := config.Load()
			assert.Error(t, err)
		})
	}
}
