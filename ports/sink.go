package ports

import (
	"context"

	"github.com/layer-3/pulselink/core"
)

// HandshakeSink receives the outcome of a handshake attempt. Exactly one of the
// two methods is called per attempt.
type HandshakeSink interface {
	HandshakeResolved(ctx context.Context, result core.DecryptedResult)
	HandshakeFailed(ctx context.Context, err *core.HandshakeError)
}
