package service

import (
	"context"
	"fmt"

	"github.com/transitwire-systems/avl-stack/common/messaging"
	natsclient "github.com/transitwire-systems/avl-stack/common/messaging/nats"
)

// JetStreamNotifier publishes staged-payload notifications to the durable
// stream consumed by the processing pipeline.
type JetStreamNotifier struct {
	js *natsclient.JetStreamClient
}

// NewJetStreamNotifier ensures the staged stream exists and returns a notifier.
func NewJetStreamNotifier(ctx context.Context, js *natsclient.JetStreamClient) (*JetStreamNotifier, error) {
	if _, err := js.CreateOrUpdateStream(ctx, natsclient.AVLStagedStream); err != nil {
		return nil, fmt.Errorf("create staged stream: %w", err)
	}
	return &JetStreamNotifier{js: js}, nil
}

// StagedPayload publishes one notification, waiting for the stream ack so
// staging is durable before the producer sees success.
func (n *JetStreamNotifier) StagedPayload(ctx context.Context, subscriptionID string, notification messaging.StagedObjectNotification) error {
	data, err := notification.Encode()
	if err != nil {
		return err
	}

	if _, err := n.js.PublishSync(ctx, messaging.StagedSubject(subscriptionID), data); err != nil {
		return fmt.Errorf("publish staged notification: %w", err)
	}
	return nil
}
