// Package service implements the ingestion rules for producer feed
// submissions: authentication, message-type detection, durable staging and
// subscription bookkeeping.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/transitwire-systems/avl-stack/common/logging"
	"github.com/transitwire-systems/avl-stack/common/messaging"
	"github.com/transitwire-systems/avl-stack/common/siri"
	"github.com/transitwire-systems/avl-stack/common/storage"
	"github.com/transitwire-systems/avl-stack/common/subscriptions"
	"github.com/transitwire-systems/avl-stack/ingest/internal/metrics"
)

// Submission outcomes for accepted (HTTP 200) requests.
type Outcome int

const (
	// OutcomeStaged means the payload was written to the object store.
	OutcomeStaged Outcome = iota

	// OutcomeHeartbeat means a heartbeat was received and the subscription
	// heartbeat timestamp updated.
	OutcomeHeartbeat

	// OutcomeHeartbeatIgnored means a heartbeat without a true status flag
	// was received; nothing was mutated.
	OutcomeHeartbeatIgnored

	// OutcomeEmptyDelivery means the location-delivery envelope carried no
	// activity; nothing was staged.
	OutcomeEmptyDelivery
)

// ErrUnauthorized is returned when the supplied API key does not match the
// subscription's stored key.
var ErrUnauthorized = errors.New("invalid api key")

// ErrSubscriptionInactive is returned for data submissions against an
// inactive subscription. Heartbeats are exempt so a producer can recover.
var ErrSubscriptionInactive = errors.New("subscription is inactive")

// Notifier announces a staged payload to the processing pipeline.
type Notifier interface {
	StagedPayload(ctx context.Context, subscriptionID string, n messaging.StagedObjectNotification) error
}

// IngestService applies the ingestion rules for one feed submission.
type IngestService struct {
	subs     subscriptions.Store
	objects  storage.ObjectStore
	notifier Notifier
	bucket   string
	logger   *logging.Logger
	now      func() time.Time
}

// NewIngestService constructs the service.
func NewIngestService(subs subscriptions.Store, objects storage.ObjectStore, notifier Notifier, bucket string, logger *logging.Logger) *IngestService {
	return &IngestService{
		subs:     subs,
		objects:  objects,
		notifier: notifier,
		bucket:   bucket,
		logger:   logger,
		now:      time.Now,
	}
}

// SetClock overrides the time source (tests).
func (s *IngestService) SetClock(now func() time.Time) {
	s.now = now
}

// Submit runs one feed submission through lookup, authentication,
// message-type detection and staging. authenticated is false for internal
// trigger paths, which are pre-authorized by the surrounding infrastructure.
func (s *IngestService) Submit(ctx context.Context, subscriptionID, apiKey string, body []byte, authenticate bool) (Outcome, error) {
	sub, err := s.subs.Get(ctx, subscriptionID)
	if err != nil {
		return 0, err
	}

	if authenticate && apiKey != sub.APIKey {
		return 0, fmt.Errorf("%w for subscription %s", ErrUnauthorized, subscriptionID)
	}

	doc := siri.Parse(body)

	// Heartbeats are handled before the status gate so an inactive
	// producer can still signal liveness.
	if hb := doc.Heartbeat(); hb != nil {
		return s.processHeartbeat(ctx, hb, sub)
	}

	if sub.Inactive() {
		return 0, fmt.Errorf("%w: %s", ErrSubscriptionInactive, subscriptionID)
	}

	if delivery := doc.Delivery(); delivery != nil {
		if len(delivery.VehicleActivityCancellation) > 0 {
			s.logger.InfoContext(ctx, "Received VehicleActivityCancellation in feed",
				logging.SubscriptionID(subscriptionID))
		}

		if !delivery.HasData() {
			s.logger.WarnContext(ctx, "Received location data with no vehicle activity from data producer, data will be ignored",
				logging.SubscriptionID(subscriptionID))
			metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeEmpty).Inc()
			return OutcomeEmptyDelivery, nil
		}
	}

	return s.stagePayload(ctx, body, sub)
}

func (s *IngestService) processHeartbeat(ctx context.Context, hb *siri.HeartbeatNotification, sub *subscriptions.Subscription) (Outcome, error) {
	s.logger.InfoContext(ctx, "Heartbeat notification received", logging.SubscriptionID(sub.ID))

	if hb.Status != "true" {
		s.logger.WarnContext(ctx, "Heartbeat notification did not include a status of true",
			logging.SubscriptionID(sub.ID))
		metrics.HeartbeatsTotal.WithLabelValues("ignored").Inc()
		return OutcomeHeartbeatIgnored, nil
	}

	if err := subscriptions.TouchHeartbeat(ctx, s.subs, sub, s.now().UTC()); err != nil {
		return 0, fmt.Errorf("update heartbeat timestamp: %w", err)
	}

	metrics.HeartbeatsTotal.WithLabelValues("ok").Inc()
	return OutcomeHeartbeat, nil
}

func (s *IngestService) stagePayload(ctx context.Context, body []byte, sub *subscriptions.Subscription) (Outcome, error) {
	now := s.now().UTC()
	key := fmt.Sprintf("%s/%s.xml", sub.ID, now.Format(time.RFC3339))

	start := time.Now()
	if err := s.objects.Put(ctx, key, body); err != nil {
		return 0, fmt.Errorf("stage payload: %w", err)
	}
	metrics.StagingDuration.Observe(time.Since(start).Seconds())
	metrics.PayloadBytesTotal.Add(float64(len(body)))

	if err := subscriptions.TouchData(ctx, s.subs, sub, now); err != nil {
		return 0, fmt.Errorf("update data timestamp: %w", err)
	}

	if err := s.notifier.StagedPayload(ctx, sub.ID, messaging.StagedObjectNotification{
		Bucket: s.bucket,
		Key:    key,
	}); err != nil {
		return 0, fmt.Errorf("notify staged payload: %w", err)
	}

	s.logger.InfoContext(ctx, "Successfully staged vehicle journey data",
		logging.SubscriptionID(sub.ID), logging.ObjectKey(key))
	metrics.SubmissionsTotal.WithLabelValues(metrics.OutcomeStaged).Inc()

	return OutcomeStaged, nil
}
