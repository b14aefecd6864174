// Package config loads pulselink settings from .env and the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/layer-3/pulselink/handshake"
	"github.com/layer-3/pulselink/service"
)

// DefaultListenAddr is loopback only: the API hands out session tokens to
// whoever delivers a redirect.
const DefaultListenAddr = "127.0.0.1:9000"

const (
	BackendBadger = "badger"
	BackendRedis  = "redis"
	BackendMemory = "memory"

	OpenerExec   = "exec"
	OpenerStdout = "stdout"
	OpenerNone   = "none"
)

type Config struct {
	ListenAddr   string
	StoreBackend string
	DataDir      string
	RedisURL     string
	HandshakeTTL time.Duration
	URLOpener    string
	// JWTKeyFile holds a PEM EC private key. Empty means an ephemeral key.
	JWTKeyFile string
	LogLevel   logrus.Level
	Request    handshake.RequestConfig
}

// Load reads .env if present, then the process environment. Unknown backend
// or opener names and unparsable durations are errors.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Config{
		ListenAddr:   envOrDefault("LISTEN_ADDR", DefaultListenAddr),
		StoreBackend: strings.ToLower(envOrDefault("STORE_BACKEND", BackendBadger)),
		DataDir:      envOrDefault("DATA_DIR", defaultDataDir()),
		RedisURL:     os.Getenv("REDIS_URL"),
		URLOpener:    strings.ToLower(envOrDefault("URL_OPENER", OpenerExec)),
		JWTKeyFile:   os.Getenv("JWT_SIGNING_KEY_FILE"),
		Request: handshake.RequestConfig{
			WalletConnectURL: envOrDefault("WALLET_CONNECT_URL", handshake.DefaultWalletConnectURL),
			AppURL:           envOrDefault("APP_URL", handshake.DefaultAppURL),
			RedirectScheme:   envOrDefault("REDIRECT_SCHEME", handshake.DefaultRedirectScheme),
			RedirectPath:     envOrDefault("REDIRECT_PATH", handshake.DefaultRedirectPath),
			Cluster:          envOrDefault("CLUSTER", handshake.DefaultCluster),
		},
	}

	ttl, err := envDurationOrDefault("HANDSHAKE_TTL", service.DefaultKeyTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.HandshakeTTL = ttl

	level, err := logrus.ParseLevel(envOrDefault("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, fmt.Errorf("LOG_LEVEL: %w", err)
	}
	cfg.LogLevel = level

	switch cfg.StoreBackend {
	case BackendBadger, BackendMemory:
	case BackendRedis:
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("STORE_BACKEND=redis requires REDIS_URL")
		}
	default:
		return Config{}, fmt.Errorf("unknown STORE_BACKEND %q", cfg.StoreBackend)
	}

	switch cfg.URLOpener {
	case OpenerExec, OpenerStdout, OpenerNone:
	default:
		return Config{}, fmt.Errorf("unknown URL_OPENER %q", cfg.URLOpener)
	}

	return cfg, nil
}

// ServerURL is the base URL a local client uses to reach the HTTP server.
func (c Config) ServerURL() string {
	addr := c.ListenAddr
	if strings.HasPrefix(addr, ":") {
		addr = "127.0.0.1" + addr
	}
	return "http://" + addr
}

// NewLogger returns a logrus logger at the configured level.
func (c Config) NewLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(c.LogLevel)
	return logger
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".pulselink"
	}
	return filepath.Join(home, ".pulselink")
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envDurationOrDefault(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
