package commands

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/ThreeDotsLabs/watermill-redisstream/pkg/redisstream"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/golang-jwt/jwt/v5"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/layer-3/pulselink/adapters/events"
	"github.com/layer-3/pulselink/adapters/opener"
	"github.com/layer-3/pulselink/adapters/store"
	"github.com/layer-3/pulselink/adapters/tokenizer"
	"github.com/layer-3/pulselink/config"
	"github.com/layer-3/pulselink/core"
	"github.com/layer-3/pulselink/ports"
	"github.com/layer-3/pulselink/service"
)

// app is the wired object graph shared by the commands.
type app struct {
	log        *logrus.Logger
	subscriber message.Subscriber
	auth       *service.AuthService
	sink       *service.AuthSink
	// connect is nil when URL_OPENER=none.
	connect *service.ConnectService

	closers []func() error
}

func newApp(cfg config.Config, out io.Writer) (_ *app, err error) {
	a := &app{log: cfg.NewLogger()}
	defer func() {
		if err != nil {
			a.Close()
		}
	}()

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		opts, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("failed to parse Redis URL: %w", err)
		}
		redisClient = redis.NewClient(opts)
		a.closers = append(a.closers, redisClient.Close)
	}

	keys, err := a.keyPairStore(cfg, redisClient)
	if err != nil {
		return nil, err
	}

	tokens := store.NewMemoryStore()
	if redisClient != nil {
		tokens = store.NewRedisStore(redisClient)
	}

	publisher, err := a.pubSub(redisClient)
	if err != nil {
		return nil, err
	}
	eventPub := events.NewWatermillPublisher(publisher)

	signKey, err := loadSigningKey(cfg.JWTKeyFile, a.log)
	if err != nil {
		return nil, err
	}

	a.auth = service.NewAuthService(tokenizer.NewJWTTokenizer(signKey), tokens, eventPub, a.log)
	a.sink = service.NewAuthSink(a.auth, a.log)

	connect, err := service.NewConnectService(keys, newOpener(cfg.URLOpener, out), a.sink, eventPub, service.ConnectOptions{
		Request: cfg.Request,
		KeyTTL:  cfg.HandshakeTTL,
		Logger:  a.log,
	})
	switch {
	case errors.Is(err, core.ErrWalletConnectDisabled):
		a.log.Info("wallet connect disabled")
	case err != nil:
		return nil, err
	default:
		a.connect = connect
	}

	return a, nil
}

func (a *app) keyPairStore(cfg config.Config, redisClient *redis.Client) (ports.KeyPairStore, error) {
	switch cfg.StoreBackend {
	case config.BackendRedis:
		return store.NewRedisKeyPairStore(redisClient), nil
	case config.BackendMemory:
		a.log.Warn("memory store: a pending handshake will not survive a restart")
		return store.NewMemoryKeyPairStore(), nil
	default:
		if err := os.MkdirAll(cfg.DataDir, 0o700); err != nil {
			return nil, err
		}
		s, err := store.NewBadgerKeyPairStore(store.BadgerConfig{
			Path:   filepath.Join(cfg.DataDir, "handshake"),
			Logger: a.log,
		})
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, s.Close)
		return s, nil
	}
}

// pubSub returns a Redis Streams publisher when Redis is configured and an
// in-process channel otherwise.
func (a *app) pubSub(redisClient *redis.Client) (message.Publisher, error) {
	logger := events.NewLogrusAdapter(a.log)

	if redisClient == nil {
		ch := gochannel.NewGoChannel(gochannel.Config{}, logger)
		a.subscriber = ch
		a.closers = append(a.closers, ch.Close)
		return ch, nil
	}

	publisher, err := redisstream.NewPublisher(redisstream.PublisherConfig{Client: redisClient}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis publisher: %w", err)
	}
	a.closers = append(a.closers, publisher.Close)

	subscriber, err := redisstream.NewSubscriber(redisstream.SubscriberConfig{
		Client:        redisClient,
		ConsumerGroup: "pulselink-audit",
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to create Redis subscriber: %w", err)
	}
	a.subscriber = subscriber
	a.closers = append(a.closers, subscriber.Close)
	return publisher, nil
}

func newOpener(kind string, out io.Writer) ports.URLOpener {
	switch kind {
	case config.OpenerExec:
		return opener.NewExecOpener()
	case config.OpenerStdout:
		return opener.NewWriterOpener(out)
	default:
		return nil
	}
}

// loadSigningKey reads a PEM EC key, or generates one whose tokens die with
// the process.
func loadSigningKey(path string, log *logrus.Logger) (*ecdsa.PrivateKey, error) {
	if path == "" {
		log.Warn("JWT_SIGNING_KEY_FILE not set, using an ephemeral signing key")
		return ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	}
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read signing key: %w", err)
	}
	key, err := jwt.ParseECPrivateKeyFromPEM(raw)
	if err != nil {
		return nil, fmt.Errorf("failed to parse signing key: %w", err)
	}
	return key, nil
}

// Close releases resources in reverse order of acquisition.
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.log.WithError(err).Warn("close failed")
		}
	}
	a.closers = nil
}

func (a *app) requireConnect() (*service.ConnectService, error) {
	if a.connect == nil {
		return nil, core.ErrWalletConnectDisabled
	}
	return a.connect, nil
}
