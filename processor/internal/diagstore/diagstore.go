// Package diagstore quarantines validation diagnostics in a TTL-bounded
// key-value store so operator tooling can inspect recent feed problems
// without the store growing unbounded.
package diagstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/transitwire-systems/avl-stack/processor/internal/validator"
)

// Store persists stamped diagnostics.
type Store interface {
	PutBatch(ctx context.Context, diagnostics []validator.Diagnostic) error
	Close() error
}

// RedisStore implements Store on Redis. Each diagnostic is one JSON value
// keyed by subscription id and its generated unique id, expiring at its
// timeToExist timestamp.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore connects to Redis using a URL.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return NewRedisStoreWithClient(redis.NewClient(opts)), nil
}

// NewRedisStoreWithClient wraps an existing client (tests).
func NewRedisStoreWithClient(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func diagnosticKey(d *validator.Diagnostic) string {
	return fmt.Sprintf("diagnostic:%s:%s", d.PK, d.SK)
}

// PutBatch writes the batch in one pipeline. Every diagnostic must already
// be stamped with its partition key, sort key and timeToExist.
func (s *RedisStore) PutBatch(ctx context.Context, diagnostics []validator.Diagnostic) error {
	if len(diagnostics) == 0 {
		return nil
	}

	pipe := s.client.Pipeline()
	for n := range diagnostics {
		d := &diagnostics[n]

		payload, err := json.Marshal(d)
		if err != nil {
			return fmt.Errorf("failed to marshal diagnostic: %w", err)
		}

		key := diagnosticKey(d)
		pipe.Set(ctx, key, payload, 0)
		pipe.ExpireAt(ctx, key, time.Unix(d.TimeToExist, 0))
	}

	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to store diagnostics: %w", err)
	}
	return nil
}

// ListBySubscription returns the stored diagnostics for one subscription.
func (s *RedisStore) ListBySubscription(ctx context.Context, subscriptionID string) ([]validator.Diagnostic, error) {
	var out []validator.Diagnostic

	iter := s.client.Scan(ctx, 0, fmt.Sprintf("diagnostic:%s:*", subscriptionID), 100).Iterator()
	for iter.Next(ctx) {
		payload, err := s.client.Get(ctx, iter.Val()).Bytes()
		if err != nil {
			if err == redis.Nil {
				continue
			}
			return nil, fmt.Errorf("failed to read diagnostic: %w", err)
		}

		var d validator.Diagnostic
		if err := json.Unmarshal(payload, &d); err != nil {
			return nil, fmt.Errorf("failed to decode diagnostic: %w", err)
		}
		out = append(out, d)
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan diagnostics: %w", err)
	}

	return out, nil
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
