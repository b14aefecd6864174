package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/layer-3/pulselink/core"
	"github.com/layer-3/pulselink/ports"
)

// RedisStore is a Redis implementation of the Store interface
type RedisStore struct {
	client *redis.Client
	prefix string
}

// NewRedisStore creates a new Redis store
func NewRedisStore(client *redis.Client) ports.Store {
	return &RedisStore{
		client: client,
		prefix: "pulselink:invalidated:",
	}
}

// InvalidateToken marks a token as invalidated in Redis
func (s *RedisStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	if err := s.client.Set(ctx, s.prefix+tokenID, "1", expiry).Err(); err != nil {
		return fmt.Errorf("failed to invalidate token: %w", err)
	}
	return nil
}

// IsTokenInvalidated checks if a token is invalidated in Redis
func (s *RedisStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	val, err := s.client.Exists(ctx, s.prefix+tokenID).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token invalidation: %w", err)
	}
	return val > 0, nil
}

// RedisKeyPairStore keeps the handshake slot in a single Redis key. Take uses
// GETDEL so a key pair can never be read twice.
type RedisKeyPairStore struct {
	client *redis.Client
	key    string
}

// DefaultKeyPairSlot is the key the handshake key pair lives under.
const DefaultKeyPairSlot = "pulselink:handshake:keypair"

func NewRedisKeyPairStore(client *redis.Client) ports.KeyPairStore {
	return &RedisKeyPairStore{
		client: client,
		key:    DefaultKeyPairSlot,
	}
}

func (s *RedisKeyPairStore) Put(ctx context.Context, kp core.KeyPair, ttl time.Duration) error {
	raw, err := core.EncodeKeyPair(kp)
	if err != nil {
		return err
	}
	if ttl < 0 {
		ttl = 0
	}
	if err := s.client.Set(ctx, s.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store key pair: %w", err)
	}
	return nil
}

func (s *RedisKeyPairStore) Take(ctx context.Context) (core.KeyPair, bool, error) {
	raw, err := s.client.GetDel(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return core.KeyPair{}, false, nil
	}
	if err != nil {
		return core.KeyPair{}, false, fmt.Errorf("failed to take key pair: %w", err)
	}
	kp, err := core.DecodeKeyPair(raw)
	if err != nil {
		return core.KeyPair{}, false, nil
	}
	return kp, true, nil
}

func (s *RedisKeyPairStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to clear key pair: %w", err)
	}
	return nil
}

func (s *RedisKeyPairStore) Exists(ctx context.Context) (bool, error) {
	n, err := s.client.Exists(ctx, s.key).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check key pair: %w", err)
	}
	return n > 0, nil
}
