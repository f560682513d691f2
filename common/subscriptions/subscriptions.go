// Package subscriptions provides read and bookkeeping access to producer
// feed subscriptions. Subscriptions are registered out of band; the
// ingestion and processing services only read them and stamp
// data/heartbeat receipt times.
package subscriptions

import (
	"context"
	"errors"
	"time"
)

// Subscription status values.
const (
	StatusLive     = "live"
	StatusError    = "error"
	StatusInactive = "inactive"
)

// ErrNotFound is returned when no subscription exists for an identifier.
var ErrNotFound = errors.New("subscription not found")

// Subscription identifies one producer feed.
type Subscription struct {
	ID          string `json:"id"`
	URL         string `json:"url"`
	Description string `json:"description"`
	Status      string `json:"status"`
	APIKey      string `json:"apiKey"`

	// RequestorRef is the producer-side reference used when the
	// subscription was established.
	RequestorRef string `json:"requestorRef,omitempty"`

	LastDataReceivedAt      *time.Time `json:"lastDataReceivedAt,omitempty"`
	HeartbeatLastReceivedAt *time.Time `json:"heartbeatLastReceivedAt,omitempty"`
}

// Inactive reports whether new records must not be committed for this
// subscription.
func (s *Subscription) Inactive() bool {
	return s.Status == StatusInactive
}

// Store is the key-value subscription store.
type Store interface {
	// Get fetches a subscription by identifier.
	// Returns ErrNotFound if the identifier is unknown.
	Get(ctx context.Context, id string) (*Subscription, error)

	// Put writes a subscription record in full.
	Put(ctx context.Context, sub *Subscription) error

	// List returns all registered subscriptions.
	List(ctx context.Context) ([]*Subscription, error)

	// Close releases the underlying client.
	Close() error
}

// TouchData stamps the last-data-received time and persists the record.
func TouchData(ctx context.Context, store Store, sub *Subscription, now time.Time) error {
	sub.LastDataReceivedAt = &now
	return store.Put(ctx, sub)
}

// TouchHeartbeat stamps the last-heartbeat time and persists the record.
func TouchHeartbeat(ctx context.Context, store Store, sub *Subscription, now time.Time) error {
	sub.HeartbeatLastReceivedAt = &now
	return store.Put(ctx, sub)
}
