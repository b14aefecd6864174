package ports

import (
	"context"
	"time"

	"github.com/layer-3/pulselink/core"
)

// Store interface for token invalidation
type Store interface {
	InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error
	IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error)
}

// KeyPairStore holds the single in-flight handshake key pair.
type KeyPairStore interface {
	// Put overwrites the slot; any previous key pair becomes unresolvable.
	Put(ctx context.Context, kp core.KeyPair, ttl time.Duration) error
	// Take returns the stored key pair and deletes it in the same step.
	// ok is false when the slot is empty or expired.
	Take(ctx context.Context) (kp core.KeyPair, ok bool, err error)
	Clear(ctx context.Context) error
	Exists(ctx context.Context) (bool, error)
}
