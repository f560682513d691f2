package storage

import (
	"context"
	"errors"
	"fmt"

	"github.com/nats-io/nats.go/jetstream"
	natsclient "github.com/transitwire-systems/avl-stack/common/messaging/nats"
)

// JetStreamStore implements ObjectStore on a NATS JetStream object bucket.
// Safe for use across multiple service instances.
type JetStreamStore struct {
	bucket string
	store  jetstream.ObjectStore
}

// NewJetStreamStore binds to (and if needed creates) an object bucket.
func NewJetStreamStore(ctx context.Context, js *natsclient.JetStreamClient, bucket string) (*JetStreamStore, error) {
	if js == nil {
		return nil, fmt.Errorf("jetstream client is nil")
	}

	store, err := js.ObjectBucket(ctx, bucket)
	if err != nil {
		return nil, err
	}

	return &JetStreamStore{bucket: bucket, store: store}, nil
}

// Put writes a payload under the given key.
func (s *JetStreamStore) Put(ctx context.Context, key string, data []byte) error {
	if _, err := s.store.PutBytes(ctx, key, data); err != nil {
		return fmt.Errorf("put object %s/%s: %w", s.bucket, key, err)
	}
	return nil
}

// Get reads a payload back.
func (s *JetStreamStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := s.store.GetBytes(ctx, key)
	if err != nil {
		if errors.Is(err, jetstream.ErrObjectNotFound) {
			return nil, ErrObjectNotFound
		}
		return nil, fmt.Errorf("get object %s/%s: %w", s.bucket, key, err)
	}
	return data, nil
}
