package service

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"sync"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/layer-3/pulselink/core"
	"github.com/layer-3/pulselink/handshake"
	"github.com/layer-3/pulselink/ports"
)

// DefaultKeyTTL bounds how long an abandoned handshake stays resolvable.
const DefaultKeyTTL = 15 * time.Minute

type ConnectOptions struct {
	Request handshake.RequestConfig
	// KeyTTL is the lifetime of the persisted key pair. Zero selects
	// DefaultKeyTTL; a negative value keeps the key pair until it is used.
	KeyTTL time.Duration
	Logger *logrus.Logger
}

// ConnectService runs the wallet-connect handshake: it dispatches connect
// requests and resolves the redirects that come back.
type ConnectService struct {
	keys     ports.KeyPairStore
	opener   ports.URLOpener
	sink     ports.HandshakeSink
	eventPub ports.EventPublisher

	builder    *handshake.RequestBuilder
	matcher    handshake.RedirectMatcher
	keyTTL     time.Duration
	log        *logrus.Logger
	newKeyPair func() (core.KeyPair, error)

	mu        sync.Mutex
	resolving atomic.Bool
}

// NewConnectService returns core.ErrWalletConnectDisabled when opener is nil.
// eventPub may be nil.
func NewConnectService(
	keys ports.KeyPairStore,
	opener ports.URLOpener,
	sink ports.HandshakeSink,
	eventPub ports.EventPublisher,
	opts ConnectOptions,
) (*ConnectService, error) {
	if opener == nil {
		return nil, core.ErrWalletConnectDisabled
	}
	if keys == nil || sink == nil {
		return nil, errors.New("key pair store and handshake sink are required")
	}
	if opts.Logger == nil {
		opts.Logger = logrus.New()
	}
	switch {
	case opts.KeyTTL == 0:
		opts.KeyTTL = DefaultKeyTTL
	case opts.KeyTTL < 0:
		opts.KeyTTL = 0
	}

	builder := handshake.NewRequestBuilder(opts.Request)
	return &ConnectService{
		keys:       keys,
		opener:     opener,
		sink:       sink,
		eventPub:   eventPub,
		builder:    builder,
		matcher:    builder.Matcher(),
		keyTTL:     opts.KeyTTL,
		log:        opts.Logger,
		newKeyPair: handshake.GenerateKeyPair,
	}, nil
}

// StartConnect generates and persists a fresh key pair, replacing any pending
// one, and opens the wallet's connect URL.
func (s *ConnectService) StartConnect(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	kp, err := s.newKeyPair()
	if err != nil {
		return "", s.fail(ctx, core.WrapHandshakeError(core.KindStorageUnavailable, "failed to generate key pair", err))
	}
	defer handshake.WipeKeyPair(&kp)

	if err := s.keys.Put(ctx, kp, s.keyTTL); err != nil {
		return "", s.fail(ctx, core.WrapHandshakeError(core.KindStorageUnavailable, "failed to persist key pair", err))
	}

	connectURL := s.builder.BuildConnectURL(handshake.PublicKeyBase58(kp))
	ok, err := s.opener.CanOpen(ctx, connectURL)
	if err != nil || !ok {
		return "", s.fail(ctx, core.WrapHandshakeError(core.KindNoCompatibleApp, "no wallet app can open the connect URL", err))
	}
	if err := s.opener.Open(ctx, connectURL); err != nil {
		return "", s.fail(ctx, core.WrapHandshakeError(core.KindNoCompatibleApp, "failed to open wallet app", err))
	}

	s.log.WithField("ttl", s.keyTTL).Info("wallet connect dispatched")
	return connectURL, nil
}

// HandleURL is the single entry point for deep links. handled is false for
// URLs that do not belong to this protocol; those are ignored silently.
func (s *ConnectService) HandleURL(ctx context.Context, raw string) (handled bool, err error) {
	if !s.matcher.IsRelevant(raw) {
		return false, nil
	}

	q, err := handshake.ParseRedirect(raw)
	if err != nil {
		s.mu.Lock()
		defer s.mu.Unlock()
		return true, s.fail(ctx, core.WrapHandshakeError(core.KindMalformedRedirect, "unusable redirect query", err))
	}

	_, err = s.HandleRedirect(ctx, q)
	return true, err
}

// HandleRedirect resolves a recognized redirect's query. The pending key pair
// is consumed on every path, so a redirect can only ever succeed once.
func (s *ConnectService) HandleRedirect(ctx context.Context, q url.Values) (core.DecryptedResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.resolving.Store(true)
	defer s.resolving.Store(false)

	res, herr := s.resolve(ctx, handshake.PayloadFromQuery(q))
	if herr != nil {
		return core.DecryptedResult{}, s.fail(ctx, herr)
	}

	s.log.WithField("address", res.WalletAddress).Info("wallet connect resolved")
	s.sink.HandshakeResolved(ctx, res)
	if s.eventPub != nil {
		if err := s.eventPub.PublishHandshakeResolved(ctx, res.WalletAddress); err != nil {
			s.log.WithError(err).Warn("failed to publish handshake resolved event")
		}
	}
	return res, nil
}

func (s *ConnectService) resolve(ctx context.Context, p core.RedirectPayload) (core.DecryptedResult, *core.HandshakeError) {
	if p.Rejected() {
		return core.DecryptedResult{}, core.PeerRejected(p.ErrorCode, p.ErrorMessage)
	}
	if !p.Complete() {
		return core.DecryptedResult{}, core.NewHandshakeError(core.KindMalformedRedirect,
			fmt.Sprintf("redirect requires %s, %s and %s", handshake.ParamData, handshake.ParamNonce, handshake.ParamPeerKey))
	}

	kp, ok, err := s.keys.Take(ctx)
	if err != nil {
		return core.DecryptedResult{}, core.WrapHandshakeError(core.KindStorageUnavailable, "failed to load key pair", err)
	}
	if !ok {
		return core.DecryptedResult{}, core.NewHandshakeError(core.KindExpiredOrUnknownSession,
			"no pending handshake: it expired, was replaced or was already used")
	}
	defer handshake.WipeKeyPair(&kp)

	if p.Attempt != "" && p.Attempt != handshake.AttemptID(handshake.PublicKeyBase58(kp)) {
		return core.DecryptedResult{}, core.NewHandshakeError(core.KindExpiredOrUnknownSession,
			"redirect belongs to a handshake that was replaced")
	}

	res, err := handshake.DecryptConnectResponse(p, &kp.SecretKey)
	if err != nil {
		return core.DecryptedResult{}, core.AsHandshakeError(err)
	}
	return res, nil
}

// fail clears the pending key pair and reports herr exactly once.
func (s *ConnectService) fail(ctx context.Context, herr *core.HandshakeError) error {
	if err := s.keys.Clear(ctx); err != nil {
		s.log.WithError(err).Warn("failed to clear handshake key pair")
	}

	s.log.WithFields(logrus.Fields{
		"kind": herr.Kind,
		"code": herr.Code,
	}).WithError(herr).Warn("wallet connect failed")

	s.sink.HandshakeFailed(ctx, herr)
	if s.eventPub != nil {
		if err := s.eventPub.PublishHandshakeFailed(ctx, herr.Kind, herr.Error()); err != nil {
			s.log.WithError(err).Warn("failed to publish handshake failed event")
		}
	}
	return herr
}

// Cancel abandons the pending handshake, if any. The wallet is not notified.
func (s *ConnectService) Cancel(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.keys.Clear(ctx); err != nil {
		return core.WrapHandshakeError(core.KindStorageUnavailable, "failed to clear key pair", err)
	}
	s.log.Info("wallet connect cancelled")
	return nil
}

// Status derives the handshake state from the durable slot, so a fresh
// process with a pending key pair reports StateAwaitingRedirect.
func (s *ConnectService) Status(ctx context.Context) (core.HandshakeState, error) {
	if s.resolving.Load() {
		return core.StateResolving, nil
	}
	pending, err := s.keys.Exists(ctx)
	if err != nil {
		return "", core.WrapHandshakeError(core.KindStorageUnavailable, "failed to check key pair", err)
	}
	if pending {
		return core.StateAwaitingRedirect, nil
	}
	return core.StateIdle, nil
}
