package service

import (
	"context"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/layer-3/pulselink/core"
)

// SignInOutcome records how the last handshake attempt ended.
type SignInOutcome struct {
	Address      string
	AccessToken  string
	RefreshToken string
	// Failure is set when the handshake itself failed.
	Failure *core.HandshakeError
	// Err is set when the handshake resolved but sign-in did not.
	Err error
	At  time.Time
}

// AuthSink is the handshake sink that signs resolved wallets in. It replaces a
// process-wide "connecting" flag with an explicit last outcome.
type AuthSink struct {
	auth *AuthService
	log  *logrus.Logger

	mu    sync.Mutex
	last  *SignInOutcome
	taken bool
}

func NewAuthSink(auth *AuthService, logger *logrus.Logger) *AuthSink {
	if logger == nil {
		logger = logrus.New()
	}
	return &AuthSink{auth: auth, log: logger}
}

func (s *AuthSink) HandshakeResolved(ctx context.Context, result core.DecryptedResult) {
	outcome := SignInOutcome{Address: result.WalletAddress, At: time.Now()}

	access, refresh, err := s.auth.SignInWithWallet(ctx, result.WalletAddress)
	if err != nil {
		s.log.WithError(err).WithField("address", result.WalletAddress).Error("wallet sign-in failed")
		outcome.Err = err
	} else {
		outcome.AccessToken = access
		outcome.RefreshToken = refresh
	}
	s.record(outcome)
}

func (s *AuthSink) HandshakeFailed(ctx context.Context, err *core.HandshakeError) {
	s.record(SignInOutcome{Failure: err, At: time.Now()})
}

// Outcome returns the most recent outcome, if any attempt has ended. Tokens
// are never included; they are handed out once by TakeOutcome.
func (s *AuthSink) Outcome() (SignInOutcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last == nil {
		return SignInOutcome{}, false
	}
	o := *s.last
	o.AccessToken, o.RefreshToken = "", ""
	return o, true
}

// TakeOutcome returns the most recent outcome with its tokens and marks it
// taken. ok is false when nothing new has ended since the last take.
func (s *AuthSink) TakeOutcome() (SignInOutcome, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.last == nil || s.taken {
		return SignInOutcome{}, false
	}
	o := *s.last
	s.taken = true
	s.last.AccessToken, s.last.RefreshToken = "", ""
	return o, true
}

func (s *AuthSink) record(o SignInOutcome) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.last = &o
	s.taken = false
}
