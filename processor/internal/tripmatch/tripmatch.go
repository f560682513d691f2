// Package tripmatch enriches validated vehicle activities with a scheduled
// trip identifier from an external lookup table.
package tripmatch

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/transitwire-systems/avl-stack/common/tripmap"
	"github.com/transitwire-systems/avl-stack/processor/internal/models"
)

// Matcher looks up the scheduled trip for one observation. A nil trip id
// with a nil error means no match exists; that is a normal outcome, not a
// failure.
type Matcher interface {
	MatchTrip(ctx context.Context, activity *models.VehicleActivity) (*string, error)
}

// RedisMatcher implements Matcher against a precomputed trip-map table in
// Redis, keyed by line, direction and dated journey reference.
type RedisMatcher struct {
	client *redis.Client
}

// NewRedisMatcher connects to Redis using a URL.
func NewRedisMatcher(redisURL string) (*RedisMatcher, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("failed to parse redis url: %w", err)
	}
	return NewRedisMatcherWithClient(redis.NewClient(opts)), nil
}

// NewRedisMatcherWithClient wraps an existing client (tests).
func NewRedisMatcherWithClient(client *redis.Client) *RedisMatcher {
	return &RedisMatcher{client: client}
}

// MatchKey builds the trip-map lookup key for an activity. Activities
// without a dated journey reference can never match.
func MatchKey(a *models.VehicleActivity) (string, bool) {
	if a.LineRef == nil || a.DatedVehicleJourneyRef == nil {
		return "", false
	}
	return tripmap.Key(*a.LineRef, a.DirectionRef, *a.DatedVehicleJourneyRef), true
}

func (m *RedisMatcher) MatchTrip(ctx context.Context, activity *models.VehicleActivity) (*string, error) {
	key, ok := MatchKey(activity)
	if !ok {
		return nil, nil
	}

	tripID, err := m.client.Get(ctx, key).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up trip map: %w", err)
	}

	return &tripID, nil
}

func (m *RedisMatcher) Close() error {
	return m.client.Close()
}
