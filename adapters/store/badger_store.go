package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/sirupsen/logrus"

	"github.com/layer-3/pulselink/core"
)

type BadgerConfig struct {
	Path     string // directory for the database files, ignored when InMemory
	InMemory bool
	Logger   *logrus.Logger
}

// BadgerKeyPairStore persists the handshake slot on local disk so a pending
// handshake survives the process being killed while the wallet app is open.
type BadgerKeyPairStore struct {
	db  *badger.DB
	key []byte
	log *logrus.Logger
}

func NewBadgerKeyPairStore(cfg BadgerConfig) (*BadgerKeyPairStore, error) {
	if cfg.Logger == nil {
		cfg.Logger = logrus.New()
	}
	if !cfg.InMemory && cfg.Path == "" {
		return nil, errors.New("badger path is required")
	}

	opts := badger.DefaultOptions(cfg.Path).WithSyncWrites(true)
	if cfg.InMemory {
		opts = badger.DefaultOptions("").WithInMemory(true)
	}
	opts.Logger = nil

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open badger store: %w", err)
	}

	return &BadgerKeyPairStore{
		db:  db,
		key: []byte(DefaultKeyPairSlot),
		log: cfg.Logger,
	}, nil
}

func (s *BadgerKeyPairStore) Put(ctx context.Context, kp core.KeyPair, ttl time.Duration) error {
	raw, err := core.EncodeKeyPair(kp)
	if err != nil {
		return err
	}
	err = s.db.Update(func(txn *badger.Txn) error {
		entry := badger.NewEntry(s.key, raw)
		if ttl > 0 {
			entry = entry.WithTTL(ttl)
		}
		return txn.SetEntry(entry)
	})
	if err != nil {
		return fmt.Errorf("failed to store key pair: %w", err)
	}
	return nil
}

// Take reads and deletes the slot inside one read-write transaction.
func (s *BadgerKeyPairStore) Take(ctx context.Context) (core.KeyPair, bool, error) {
	var raw []byte
	err := s.db.Update(func(txn *badger.Txn) error {
		item, err := txn.Get(s.key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		raw, err = item.ValueCopy(nil)
		if err != nil {
			return err
		}
		return txn.Delete(s.key)
	})
	if errors.Is(err, badger.ErrConflict) {
		// Another Take committed first.
		return core.KeyPair{}, false, nil
	}
	if err != nil {
		return core.KeyPair{}, false, fmt.Errorf("failed to take key pair: %w", err)
	}
	if raw == nil {
		return core.KeyPair{}, false, nil
	}

	kp, err := core.DecodeKeyPair(raw)
	if err != nil {
		s.log.WithError(err).Warn("discarding unreadable handshake key pair")
		return core.KeyPair{}, false, nil
	}
	return kp, true, nil
}

func (s *BadgerKeyPairStore) Clear(ctx context.Context) error {
	err := s.db.Update(func(txn *badger.Txn) error {
		return txn.Delete(s.key)
	})
	if err != nil {
		return fmt.Errorf("failed to clear key pair: %w", err)
	}
	return nil
}

func (s *BadgerKeyPairStore) Exists(ctx context.Context) (bool, error) {
	found := false
	err := s.db.View(func(txn *badger.Txn) error {
		_, err := txn.Get(s.key)
		if errors.Is(err, badger.ErrKeyNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("failed to check key pair: %w", err)
	}
	return found, nil
}

func (s *BadgerKeyPairStore) Close() error {
	return s.db.Close()
}
