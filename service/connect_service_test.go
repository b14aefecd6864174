package service_test

import (
	"context"
	"errors"
	"net/url"
	"testing"
	"time"

	"github.com/mr-tron/base58"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/pulselink/adapters/store"
	"github.com/layer-3/pulselink/core"
	"github.com/layer-3/pulselink/handshake"
	"github.com/layer-3/pulselink/ports"
	"github.com/layer-3/pulselink/service"
)

type connectFixture struct {
	svc    *service.ConnectService
	keys   *store.MemoryKeyPairStore
	sink   *recordingSink
	pub    *recordingPublisher
	opener *fakeOpener
}

func newConnectFixture(t *testing.T, opts service.ConnectOptions) *connectFixture {
	t.Helper()
	f := &connectFixture{
		keys:   store.NewMemoryKeyPairStore(),
		sink:   &recordingSink{},
		pub:    &recordingPublisher{},
		opener: &fakeOpener{},
	}
	f.svc = f.newService(t, f.keys, opts)
	return f
}

func (f *connectFixture) newService(t *testing.T, keys ports.KeyPairStore, opts service.ConnectOptions) *service.ConnectService {
	t.Helper()
	if opts.Logger == nil {
		opts.Logger = quietLogger()
	}
	svc, err := service.NewConnectService(keys, f.opener, f.sink, f.pub, opts)
	require.NoError(t, err)
	return svc
}

func (f *connectFixture) state(t *testing.T) core.HandshakeState {
	t.Helper()
	st, err := f.svc.Status(context.Background())
	require.NoError(t, err)
	return st
}

func approve(t *testing.T, connectURL, address string) string {
	t.Helper()
	redirect, err := handshake.NewWallet(address, "phantom-session").Approve(connectURL)
	require.NoError(t, err)
	return redirect
}

func TestConnect_FullFlow(t *testing.T) {
	ctx := context.Background()
	f := newConnectFixture(t, service.ConnectOptions{})
	assert.Equal(t, core.StateIdle, f.state(t))

	connectURL, err := f.svc.StartConnect(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{connectURL}, f.opener.opened)
	assert.Equal(t, core.StateAwaitingRedirect, f.state(t))

	address := walletAddress(t)
	handled, err := f.svc.HandleURL(ctx, approve(t, connectURL, address))
	require.NoError(t, err)
	assert.True(t, handled)

	require.Len(t, f.sink.resolved, 1)
	assert.Equal(t, address, f.sink.resolved[0].WalletAddress)
	assert.Equal(t, "phantom-session", f.sink.resolved[0].Session)
	assert.Empty(t, f.sink.failed)
	assert.Equal(t, []string{address}, f.pub.resolved)
	assert.Equal(t, core.StateIdle, f.state(t))
}

func TestConnect_DuplicateDelivery(t *testing.T) {
	ctx := context.Background()
	f := newConnectFixture(t, service.ConnectOptions{})

	connectURL, err := f.svc.StartConnect(ctx)
	require.NoError(t, err)
	redirect := approve(t, connectURL, walletAddress(t))

	_, err = f.svc.HandleURL(ctx, redirect)
	require.NoError(t, err)

	handled, err := f.svc.HandleURL(ctx, redirect)
	assert.True(t, handled)
	assert.True(t, core.IsHandshakeKind(err, core.KindExpiredOrUnknownSession))

	resolved, failed := f.sink.counts()
	assert.Equal(t, 1, resolved)
	assert.Equal(t, 1, failed)
}

func TestConnect_Supersession(t *testing.T) {
	ctx := context.Background()
	f := newConnectFixture(t, service.ConnectOptions{})

	first, err := f.svc.StartConnect(ctx)
	require.NoError(t, err)
	second, err := f.svc.StartConnect(ctx)
	require.NoError(t, err)
	assert.NotEqual(t, first, second)

	_, err = f.svc.HandleURL(ctx, approve(t, first, walletAddress(t)))
	assert.True(t, core.IsHandshakeKind(err, core.KindExpiredOrUnknownSession), err)

	resolved, failed := f.sink.counts()
	assert.Equal(t, 0, resolved)
	assert.Equal(t, 1, failed)
}

func TestConnect_SupersessionWithoutAttemptTag(t *testing.T) {
	ctx := context.Background()
	f := newConnectFixture(t, service.ConnectOptions{})

	first, err := f.svc.StartConnect(ctx)
	require.NoError(t, err)
	_, err = f.svc.StartConnect(ctx)
	require.NoError(t, err)

	redirect := mutateQuery(t, approve(t, first, walletAddress(t)), func(q url.Values) {
		q.Del(handshake.ParamAttempt)
	})
	_, err = f.svc.HandleURL(ctx, redirect)
	assert.True(t, core.IsHandshakeKind(err, core.KindDecryptionFailed), err)
}

func TestConnect_PeerRejectedTakesPrecedence(t *testing.T) {
	ctx := context.Background()
	f := newConnectFixture(t, service.ConnectOptions{})

	connectURL, err := f.svc.StartConnect(ctx)
	require.NoError(t, err)
	redirect := mutateQuery(t, approve(t, connectURL, walletAddress(t)), func(q url.Values) {
		q.Set(handshake.ParamErrorCode, "4001")
	})

	_, err = f.svc.HandleURL(ctx, redirect)
	require.Error(t, err)
	var herr *core.HandshakeError
	require.True(t, errors.As(err, &herr))
	assert.Equal(t, core.KindPeerRejected, herr.Kind)
	assert.Equal(t, "4001", herr.Code)

	assert.Equal(t, core.StateIdle, f.state(t))
	resolved, failed := f.sink.counts()
	assert.Equal(t, 0, resolved)
	assert.Equal(t, 1, failed)
	assert.Equal(t, []core.HandshakeErrorKind{core.KindPeerRejected}, f.pub.failed)
}

func TestConnect_WalletReject(t *testing.T) {
	ctx := context.Background()
	f := newConnectFixture(t, service.ConnectOptions{})

	connectURL, err := f.svc.StartConnect(ctx)
	require.NoError(t, err)
	redirect, err := handshake.NewWallet("", "").Reject(connectURL, "4001", "User rejected the request.")
	require.NoError(t, err)

	_, err = f.svc.HandleURL(ctx, redirect)
	assert.True(t, core.IsHandshakeKind(err, core.KindPeerRejected))
	assert.Contains(t, err.Error(), "User rejected the request.")
}

func TestConnect_MalformedRedirects(t *testing.T) {
	tests := []struct {
		name string
		edit func(q url.Values)
	}{
		{"missing nonce", func(q url.Values) { q.Del(handshake.ParamNonce) }},
		{"missing data", func(q url.Values) { q.Del(handshake.ParamData) }},
		{"missing peer key", func(q url.Values) { q.Del(handshake.ParamPeerKey) }},
		{"invalid base58 in data", func(q url.Values) { q.Set(handshake.ParamData, "0"+q.Get(handshake.ParamData)) }},
		{"short nonce", func(q url.Values) { q.Set(handshake.ParamNonce, base58.Encode([]byte{1, 2, 3})) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctx := context.Background()
			f := newConnectFixture(t, service.ConnectOptions{})
			connectURL, err := f.svc.StartConnect(ctx)
			require.NoError(t, err)

			redirect := mutateQuery(t, approve(t, connectURL, walletAddress(t)), tt.edit)
			_, err = f.svc.HandleURL(ctx, redirect)
			assert.True(t, core.IsHandshakeKind(err, core.KindMalformedRedirect), err)
			assert.Equal(t, core.StateIdle, f.state(t))
		})
	}
}

func TestConnect_RedirectWithoutQuery(t *testing.T) {
	ctx := context.Background()
	f := newConnectFixture(t, service.ConnectOptions{})
	_, err := f.svc.StartConnect(ctx)
	require.NoError(t, err)

	handled, err := f.svc.HandleURL(ctx, "pulse://wallet-connected")
	assert.True(t, handled)
	assert.True(t, core.IsHandshakeKind(err, core.KindMalformedRedirect))
	assert.ErrorIs(t, err, handshake.ErrNoQuery)
	assert.Equal(t, core.StateIdle, f.state(t))
}

func TestConnect_UndecodableQueryKeepsCause(t *testing.T) {
	ctx := context.Background()
	f := newConnectFixture(t, service.ConnectOptions{})
	_, err := f.svc.StartConnect(ctx)
	require.NoError(t, err)

	handled, err := f.svc.HandleURL(ctx, "pulse://wallet-connected?data=a;nonce=b")
	assert.True(t, handled)
	assert.True(t, core.IsHandshakeKind(err, core.KindMalformedRedirect))
	assert.NotErrorIs(t, err, handshake.ErrNoQuery)
	assert.Contains(t, err.Error(), "semicolon")
	assert.NotContains(t, err.Error(), "no query")
	assert.Equal(t, core.StateIdle, f.state(t))
}

func TestConnect_TamperedData(t *testing.T) {
	ctx := context.Background()
	f := newConnectFixture(t, service.ConnectOptions{})

	connectURL, err := f.svc.StartConnect(ctx)
	require.NoError(t, err)
	redirect := mutateQuery(t, approve(t, connectURL, walletAddress(t)), func(q url.Values) {
		data, err := base58.Decode(q.Get(handshake.ParamData))
		require.NoError(t, err)
		data[len(data)-1] ^= 0x01
		q.Set(handshake.ParamData, base58.Encode(data))
	})

	_, err = f.svc.HandleURL(ctx, redirect)
	assert.True(t, core.IsHandshakeKind(err, core.KindDecryptionFailed), err)
}

func TestConnect_IrrelevantURLsIgnored(t *testing.T) {
	ctx := context.Background()
	f := newConnectFixture(t, service.ConnectOptions{})
	_, err := f.svc.StartConnect(ctx)
	require.NoError(t, err)

	for _, raw := range []string{
		"pulse://settings?tab=wallet",
		"https://pulseapp.io/wallet-connected?data=x&nonce=y",
		"otherapp://wallet-connected?errorCode=1",
	} {
		handled, err := f.svc.HandleURL(ctx, raw)
		assert.False(t, handled, raw)
		assert.NoError(t, err, raw)
	}

	resolved, failed := f.sink.counts()
	assert.Zero(t, resolved+failed)
	assert.Equal(t, core.StateAwaitingRedirect, f.state(t))
}

func TestConnect_NoCompatibleApp(t *testing.T) {
	ctx := context.Background()
	f := newConnectFixture(t, service.ConnectOptions{})
	f.opener.cannot = true

	_, err := f.svc.StartConnect(ctx)
	assert.True(t, core.IsHandshakeKind(err, core.KindNoCompatibleApp))
	assert.Empty(t, f.opener.opened)
	assert.Equal(t, core.StateIdle, f.state(t))
	_, failed := f.sink.counts()
	assert.Equal(t, 1, failed)
}

func TestConnect_OpenFails(t *testing.T) {
	ctx := context.Background()
	f := newConnectFixture(t, service.ConnectOptions{})
	f.opener.openErr = errors.New("exec: not found")

	_, err := f.svc.StartConnect(ctx)
	assert.True(t, core.IsHandshakeKind(err, core.KindNoCompatibleApp))
	assert.ErrorIs(t, err, f.opener.openErr)
	assert.Equal(t, core.StateIdle, f.state(t))
}

func TestConnect_KeyGenerationFailureIsReported(t *testing.T) {
	ctx := context.Background()
	f := newConnectFixture(t, service.ConnectOptions{})
	entropy := errors.New("entropy source unavailable")
	service.SetKeyGenerator(f.svc, func() (core.KeyPair, error) {
		return core.KeyPair{}, entropy
	})

	_, err := f.svc.StartConnect(ctx)
	assert.True(t, core.IsHandshakeKind(err, core.KindStorageUnavailable), err)
	assert.ErrorIs(t, err, entropy)
	assert.Empty(t, f.opener.opened)

	resolved, failed := f.sink.counts()
	assert.Equal(t, 0, resolved)
	assert.Equal(t, 1, failed)
	assert.Equal(t, []core.HandshakeErrorKind{core.KindStorageUnavailable}, f.pub.failed)
}

func TestConnect_Cancel(t *testing.T) {
	ctx := context.Background()
	f := newConnectFixture(t, service.ConnectOptions{})

	connectURL, err := f.svc.StartConnect(ctx)
	require.NoError(t, err)
	require.NoError(t, f.svc.Cancel(ctx))
	assert.Equal(t, core.StateIdle, f.state(t))

	_, err = f.svc.HandleURL(ctx, approve(t, connectURL, walletAddress(t)))
	assert.True(t, core.IsHandshakeKind(err, core.KindExpiredOrUnknownSession))
}

func TestConnect_ResumesAfterRestart(t *testing.T) {
	ctx := context.Background()
	f := newConnectFixture(t, service.ConnectOptions{})

	connectURL, err := f.svc.StartConnect(ctx)
	require.NoError(t, err)

	// A new service over the same durable slot stands in for a fresh process.
	restarted := f.newService(t, f.keys, service.ConnectOptions{})
	st, err := restarted.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, core.StateAwaitingRedirect, st)

	address := walletAddress(t)
	_, err = restarted.HandleURL(ctx, approve(t, connectURL, address))
	require.NoError(t, err)
	require.Len(t, f.sink.resolved, 1)
	assert.Equal(t, address, f.sink.resolved[0].WalletAddress)
}

func TestConnect_KeyPairExpires(t *testing.T) {
	ctx := context.Background()
	f := newConnectFixture(t, service.ConnectOptions{KeyTTL: 20 * time.Millisecond})

	connectURL, err := f.svc.StartConnect(ctx)
	require.NoError(t, err)
	time.Sleep(60 * time.Millisecond)
	assert.Equal(t, core.StateIdle, f.state(t))

	_, err = f.svc.HandleURL(ctx, approve(t, connectURL, walletAddress(t)))
	assert.True(t, core.IsHandshakeKind(err, core.KindExpiredOrUnknownSession))
}

func TestConnect_PublishFailureDoesNotFailHandshake(t *testing.T) {
	ctx := context.Background()
	f := newConnectFixture(t, service.ConnectOptions{})
	f.pub.err = errPublish

	connectURL, err := f.svc.StartConnect(ctx)
	require.NoError(t, err)
	_, err = f.svc.HandleURL(ctx, approve(t, connectURL, walletAddress(t)))
	require.NoError(t, err)

	resolved, failed := f.sink.counts()
	assert.Equal(t, 1, resolved)
	assert.Equal(t, 0, failed)
}

func TestNewConnectService_Disabled(t *testing.T) {
	svc, err := service.NewConnectService(store.NewMemoryKeyPairStore(), nil, &recordingSink{}, nil, service.ConnectOptions{})
	assert.Nil(t, svc)
	assert.ErrorIs(t, err, core.ErrWalletConnectDisabled)
}
