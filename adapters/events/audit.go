package events

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/sirupsen/logrus"
)

// Topics lists every topic the publisher writes to.
var Topics = []string{TopicLogout, TopicHandshakeResolved, TopicHandshakeFailed}

// Audit logs every event published on Topics until ctx is done.
func Audit(ctx context.Context, sub message.Subscriber, logger *logrus.Logger) error {
	for _, topic := range Topics {
		msgs, err := sub.Subscribe(ctx, topic)
		if err != nil {
			return err
		}
		go auditTopic(topic, msgs, logger)
	}
	return nil
}

func auditTopic(topic string, msgs <-chan *message.Message, logger *logrus.Logger) {
	for msg := range msgs {
		fields := logrus.Fields{}
		if err := json.Unmarshal(msg.Payload, &fields); err != nil {
			logger.WithError(err).WithField("topic", topic).Warn("undecodable event")
			msg.Ack()
			continue
		}
		fields["topic"] = topic
		fields["message_id"] = msg.UUID
		logger.WithFields(fields).Info("event")
		msg.Ack()
	}
}
