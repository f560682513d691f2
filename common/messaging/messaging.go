// Package messaging defines the message type, subject layout, and
// notification codec shared by the ingest and processor services.
package messaging

import (
	"context"
	"time"
)

// Message represents a message received from or sent to a message broker.
type Message struct {
	// Subject is the topic/channel the message was published to.
	Subject string

	// Data is the raw message payload.
	Data []byte

	// Metadata contains optional key-value pairs for message headers.
	Metadata map[string]string

	// Timestamp is when the message was published.
	Timestamp time.Time
}

// MessageHandler processes a received message.
// Return an error to indicate processing failure; durable consumers will
// redeliver the message (at-least-once delivery).
type MessageHandler func(ctx context.Context, msg *Message) error
