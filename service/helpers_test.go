package service_test

import (
	"context"
	"errors"
	"io"
	"net/url"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/pulselink/core"
	"github.com/layer-3/pulselink/handshake"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

type recordingSink struct {
	mu       sync.Mutex
	resolved []core.DecryptedResult
	failed   []*core.HandshakeError
}

func (s *recordingSink) HandshakeResolved(ctx context.Context, res core.DecryptedResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolved = append(s.resolved, res)
}

func (s *recordingSink) HandshakeFailed(ctx context.Context, err *core.HandshakeError) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failed = append(s.failed, err)
}

func (s *recordingSink) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.resolved), len(s.failed)
}

type fakeOpener struct {
	cannot  bool
	openErr error
	opened  []string
}

func (o *fakeOpener) CanOpen(ctx context.Context, raw string) (bool, error) {
	return !o.cannot, nil
}

func (o *fakeOpener) Open(ctx context.Context, raw string) error {
	if o.openErr != nil {
		return o.openErr
	}
	o.opened = append(o.opened, raw)
	return nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	err      error
	resolved []string
	failed   []core.HandshakeErrorKind
	logouts  []string
}

func (p *recordingPublisher) PublishLogout(ctx context.Context, address, tokenID string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logouts = append(p.logouts, tokenID)
	return p.err
}

func (p *recordingPublisher) PublishHandshakeResolved(ctx context.Context, address string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.resolved = append(p.resolved, address)
	return p.err
}

func (p *recordingPublisher) PublishHandshakeFailed(ctx context.Context, kind core.HandshakeErrorKind, detail string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.failed = append(p.failed, kind)
	return p.err
}

var errPublish = errors.New("broker down")

func walletAddress(t *testing.T) string {
	t.Helper()
	kp, err := handshake.GenerateKeyPair()
	require.NoError(t, err)
	return handshake.PublicKeyBase58(kp)
}

// mutateQuery edits the query of a redirect URL.
func mutateQuery(t *testing.T, raw string, edit func(q url.Values)) string {
	t.Helper()
	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	edit(q)
	u.RawQuery = q.Encode()
	return u.String()
}
