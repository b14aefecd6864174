// Package listener funnels deep links into the handshake. The URL that
// launched the process and URLs delivered while it runs take the same path.
package listener

import (
	"context"
	"errors"
	"sync/atomic"

	"github.com/sirupsen/logrus"
)

var ErrNotRunning = errors.New("listener is not running")

const (
	stateNew int32 = iota
	stateRunning
	stateStopped
)

// URLHandler consumes one deep link. handled is false for URLs the handler
// does not recognize.
type URLHandler interface {
	HandleURL(ctx context.Context, raw string) (handled bool, err error)
}

// Result is what the handler returned for one URL.
type Result struct {
	Handled bool
	Err     error
}

type request struct {
	raw   string
	reply chan Result // nil for fire-and-forget deliveries
}

// Listener serializes deep-link handling on a single goroutine. It runs once.
type Listener struct {
	handler URLHandler
	log     *logrus.Logger
	urls    chan request
	done    chan struct{}
	state   atomic.Int32
}

func New(handler URLHandler, logger *logrus.Logger) *Listener {
	if logger == nil {
		logger = logrus.New()
	}
	return &Listener{
		handler: handler,
		log:     logger,
		urls:    make(chan request),
		done:    make(chan struct{}),
	}
}

// Run handles initialURL, if any, and then every delivered URL until ctx is
// done. Handler errors are logged; they do not stop the loop.
func (l *Listener) Run(ctx context.Context, initialURL string) error {
	if !l.state.CompareAndSwap(stateNew, stateRunning) {
		return errors.New("listener already ran")
	}
	defer func() {
		l.state.Store(stateStopped)
		close(l.done)
	}()

	if initialURL != "" {
		l.dispatch(ctx, request{raw: initialURL}, "launch")
	}

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case req := <-l.urls:
			l.dispatch(ctx, req, "delivery")
		}
	}
}

// Deliver hands a URL received while the process is running to the loop. A
// nil error means the loop has taken the URL and will handle it.
func (l *Listener) Deliver(ctx context.Context, raw string) error {
	return l.send(ctx, request{raw: raw})
}

// Resolve delivers raw and waits for the handler's result.
func (l *Listener) Resolve(ctx context.Context, raw string) (Result, error) {
	req := request{raw: raw, reply: make(chan Result, 1)}
	if err := l.send(ctx, req); err != nil {
		return Result{}, err
	}
	select {
	case res := <-req.reply:
		return res, nil
	case <-ctx.Done():
		return Result{}, ctx.Err()
	}
}

func (l *Listener) send(ctx context.Context, req request) error {
	if l.state.Load() != stateRunning {
		return ErrNotRunning
	}
	select {
	case l.urls <- req:
		return nil
	case <-l.done:
		return ErrNotRunning
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l *Listener) dispatch(ctx context.Context, req request, source string) {
	entry := l.log.WithField("source", source)

	handled, err := l.handler.HandleURL(ctx, req.raw)
	switch {
	case err != nil:
		entry.WithError(err).Warn("deep link failed")
	case !handled:
		entry.Debug("ignoring unrelated deep link")
	default:
		entry.Info("deep link handled")
	}

	if req.reply != nil {
		req.reply <- Result{Handled: handled, Err: err}
	}
}
