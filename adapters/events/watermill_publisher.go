package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/uuid"

	"github.com/layer-3/pulselink/core"
	"github.com/layer-3/pulselink/ports"
)

const (
	TopicLogout            = "pulselink.logout"
	TopicHandshakeResolved = "pulselink.handshake.resolved"
	TopicHandshakeFailed   = "pulselink.handshake.failed"
)

// LogoutEvent represents a logout event
type LogoutEvent struct {
	Address string `json:"address"`
	TokenID string `json:"token_id"`
}

// HandshakeResolvedEvent is published once a wallet address has been recovered.
type HandshakeResolvedEvent struct {
	Address    string    `json:"address"`
	ResolvedAt time.Time `json:"resolved_at"`
}

// HandshakeFailedEvent is published for every terminal handshake failure.
type HandshakeFailedEvent struct {
	Kind     core.HandshakeErrorKind `json:"kind"`
	Detail   string                  `json:"detail"`
	FailedAt time.Time               `json:"failed_at"`
}

// WatermillPublisher implements the EventPublisher interface using Watermill
type WatermillPublisher struct {
	publisher message.Publisher
}

// NewWatermillPublisher creates a new Watermill publisher
func NewWatermillPublisher(publisher message.Publisher) ports.EventPublisher {
	return &WatermillPublisher{publisher: publisher}
}

// PublishLogout publishes a logout event
func (p *WatermillPublisher) PublishLogout(ctx context.Context, address string, tokenID string) error {
	return p.publish(ctx, TopicLogout, tokenID, LogoutEvent{
		Address: address,
		TokenID: tokenID,
	})
}

func (p *WatermillPublisher) PublishHandshakeResolved(ctx context.Context, address string) error {
	return p.publish(ctx, TopicHandshakeResolved, uuid.NewString(), HandshakeResolvedEvent{
		Address:    address,
		ResolvedAt: time.Now().UTC(),
	})
}

func (p *WatermillPublisher) PublishHandshakeFailed(ctx context.Context, kind core.HandshakeErrorKind, detail string) error {
	return p.publish(ctx, TopicHandshakeFailed, uuid.NewString(), HandshakeFailedEvent{
		Kind:     kind,
		Detail:   detail,
		FailedAt: time.Now().UTC(),
	})
}

func (p *WatermillPublisher) publish(ctx context.Context, topic, id string, event interface{}) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	msg := message.NewMessage(id, payload)
	msg.SetContext(ctx)

	if err := p.publisher.Publish(topic, msg); err != nil {
		return fmt.Errorf("failed to publish event: %w", err)
	}
	return nil
}
