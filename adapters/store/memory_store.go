package store

import (
	"context"
	"sync"
	"time"

	"github.com/layer-3/pulselink/core"
	"github.com/layer-3/pulselink/ports"
)

// MemoryStore is an in-memory implementation of the Store interface
type MemoryStore struct {
	invalidatedTokens map[string]time.Time
	mu                sync.Mutex
	ops               uint64
	now               func() time.Time
}

// purgeEvery bounds memory without a cleanup goroutine per token.
const purgeEvery = 256

// NewMemoryStore creates a new in-memory store
func NewMemoryStore() ports.Store {
	return &MemoryStore{
		invalidatedTokens: make(map[string]time.Time),
		now:               time.Now,
	}
}

// InvalidateToken marks a token as invalidated until expiry elapses
func (s *MemoryStore) InvalidateToken(ctx context.Context, tokenID string, expiry time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.ops++
	if s.ops%purgeEvery == 0 {
		for id, exp := range s.invalidatedTokens {
			if now.After(exp) {
				delete(s.invalidatedTokens, id)
			}
		}
	}

	expiryTime := now.Add(expiry)
	if stored, ok := s.invalidatedTokens[tokenID]; ok && stored.After(expiryTime) {
		return nil
	}
	s.invalidatedTokens[tokenID] = expiryTime
	return nil
}

// IsTokenInvalidated checks if a token is invalidated
func (s *MemoryStore) IsTokenInvalidated(ctx context.Context, tokenID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expiryTime, exists := s.invalidatedTokens[tokenID]
	if !exists {
		return false, nil
	}
	return !s.now().After(expiryTime), nil
}

// MemoryKeyPairStore keeps the handshake slot in process memory. It does not
// survive a restart; use it for tests and single-run tools.
type MemoryKeyPairStore struct {
	mu        sync.Mutex
	record    []byte
	expiresAt time.Time // zero means no expiry
	now       func() time.Time
}

func NewMemoryKeyPairStore() *MemoryKeyPairStore {
	return &MemoryKeyPairStore{now: time.Now}
}

func (s *MemoryKeyPairStore) Put(ctx context.Context, kp core.KeyPair, ttl time.Duration) error {
	raw, err := core.EncodeKeyPair(kp)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.record = raw
	s.expiresAt = time.Time{}
	if ttl > 0 {
		s.expiresAt = s.now().Add(ttl)
	}
	return nil
}

func (s *MemoryKeyPairStore) Take(ctx context.Context) (core.KeyPair, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.liveLocked() {
		s.record = nil
		return core.KeyPair{}, false, nil
	}
	raw := s.record
	s.record = nil

	kp, err := core.DecodeKeyPair(raw)
	if err != nil {
		return core.KeyPair{}, false, nil
	}
	return kp, true, nil
}

func (s *MemoryKeyPairStore) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.record = nil
	return nil
}

func (s *MemoryKeyPairStore) Exists(ctx context.Context) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.liveLocked(), nil
}

func (s *MemoryKeyPairStore) liveLocked() bool {
	if s.record == nil {
		return false
	}
	return s.expiresAt.IsZero() || s.now().Before(s.expiresAt)
}
