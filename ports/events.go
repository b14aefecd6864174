package ports

import (
	"context"

	"github.com/layer-3/pulselink/core"
)

// EventPublisher publishes events to notify other instances
type EventPublisher interface {
	PublishLogout(ctx context.Context, address string, tokenID string) error
	PublishHandshakeResolved(ctx context.Context, address string) error
	PublishHandshakeFailed(ctx context.Context, kind core.HandshakeErrorKind, detail string) error
}
