package listener_test

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/layer-3/pulselink/listener"
)

type recordingHandler struct {
	mu   sync.Mutex
	seen []string
	err  error
}

func (h *recordingHandler) HandleURL(ctx context.Context, raw string) (bool, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.seen = append(h.seen, raw)
	return raw != "other://x", h.err
}

func (h *recordingHandler) urls() []string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]string(nil), h.seen...)
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func startListener(t *testing.T, l *listener.Listener, initial string) (context.CancelFunc, <-chan error) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- l.Run(ctx, initial) }()
	t.Cleanup(cancel)
	return cancel, done
}

func TestListener_LaunchURLThenDeliveries(t *testing.T) {
	h := &recordingHandler{}
	l := listener.New(h, quietLogger())
	cancel, done := startListener(t, l, "pulse://wallet-connected?cold=1")

	require.Eventually(t, func() bool {
		return l.Deliver(context.Background(), "pulse://wallet-connected?warm=1") == nil
	}, time.Second, 5*time.Millisecond)
	require.NoError(t, l.Deliver(context.Background(), "other://x"))

	require.Eventually(t, func() bool { return len(h.urls()) == 3 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []string{
		"pulse://wallet-connected?cold=1",
		"pulse://wallet-connected?warm=1",
		"other://x",
	}, h.urls())

	cancel()
	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("listener did not stop")
	}
}

func TestListener_HandlerErrorsDoNotStopLoop(t *testing.T) {
	h := &recordingHandler{err: errors.New("malformed")}
	l := listener.New(h, quietLogger())
	startListener(t, l, "pulse://wallet-connected")

	require.Eventually(t, func() bool { return len(h.urls()) == 1 }, time.Second, 5*time.Millisecond)
	require.NoError(t, l.Deliver(context.Background(), "pulse://wallet-connected?again=1"))
	require.Eventually(t, func() bool { return len(h.urls()) == 2 }, time.Second, 5*time.Millisecond)
}

func TestListener_DeliverWhenStopped(t *testing.T) {
	l := listener.New(&recordingHandler{}, quietLogger())
	assert.ErrorIs(t, l.Deliver(context.Background(), "pulse://wallet-connected"), listener.ErrNotRunning)
}

func TestListener_RunTwice(t *testing.T) {
	h := &recordingHandler{}
	l := listener.New(h, quietLogger())
	startListener(t, l, "pulse://wallet-connected")
	require.Eventually(t, func() bool { return len(h.urls()) == 1 }, time.Second, 5*time.Millisecond)

	assert.Error(t, l.Run(context.Background(), ""))
}

func TestListener_Resolve(t *testing.T) {
	h := &recordingHandler{err: errors.New("malformed")}
	l := listener.New(h, quietLogger())
	startListener(t, l, "")

	var res listener.Result
	require.Eventually(t, func() bool {
		var err error
		res, err = l.Resolve(context.Background(), "pulse://wallet-connected?x=1")
		return err == nil
	}, time.Second, 5*time.Millisecond)
	assert.True(t, res.Handled)
	assert.EqualError(t, res.Err, "malformed")

	res, err := l.Resolve(context.Background(), "other://x")
	require.NoError(t, err)
	assert.False(t, res.Handled)
}

type gatedHandler struct {
	recordingHandler
	entered chan struct{}
	release chan struct{}
}

func (h *gatedHandler) HandleURL(ctx context.Context, raw string) (bool, error) {
	if raw == "pulse://wallet-connected?first=1" {
		close(h.entered)
		<-h.release
	}
	return h.recordingHandler.HandleURL(ctx, raw)
}

func TestListener_DeliverDuringShutdownIsNeverLost(t *testing.T) {
	h := &gatedHandler{entered: make(chan struct{}), release: make(chan struct{})}
	l := listener.New(h, quietLogger())
	cancel, done := startListener(t, l, "pulse://wallet-connected?first=1")
	<-h.entered

	delivered := make(chan error, 1)
	go func() { delivered <- l.Deliver(context.Background(), "pulse://wallet-connected?second=1") }()

	cancel()
	close(h.release)
	<-done

	select {
	case err := <-delivered:
		if err == nil {
			assert.Contains(t, h.urls(), "pulse://wallet-connected?second=1")
		} else {
			assert.ErrorIs(t, err, listener.ErrNotRunning)
			assert.NotContains(t, h.urls(), "pulse://wallet-connected?second=1")
		}
	case <-time.After(time.Second):
		t.Fatal("Deliver blocked after the listener stopped")
	}

	assert.ErrorIs(t, l.Deliver(context.Background(), "pulse://wallet-connected"), listener.ErrNotRunning)
}
