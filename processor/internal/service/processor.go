// Package service implements the asynchronous processing pipeline: fetch a
// staged payload, validate it, quarantine diagnostics, enrich and persist
// the valid records.
package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/transitwire-systems/avl-stack/common/logging"
	"github.com/transitwire-systems/avl-stack/common/messaging"
	"github.com/transitwire-systems/avl-stack/common/siri"
	"github.com/transitwire-systems/avl-stack/common/storage"
	"github.com/transitwire-systems/avl-stack/common/subscriptions"
	"github.com/transitwire-systems/avl-stack/processor/internal/diagstore"
	"github.com/transitwire-systems/avl-stack/processor/internal/metrics"
	"github.com/transitwire-systems/avl-stack/processor/internal/models"
	"github.com/transitwire-systems/avl-stack/processor/internal/repository"
	"github.com/transitwire-systems/avl-stack/processor/internal/tripmatch"
	"github.com/transitwire-systems/avl-stack/processor/internal/validator"
)

// State is the terminal state of one unit of work.
type State string

const (
	StatePersisted       State = "persisted"
	StateQuarantinedOnly State = "quarantined-only"
	StateEmpty           State = "empty"
	StateInactiveAbort   State = "inactive-abort"
	StateFatalError      State = "fatal-error"
)

// ErrSubscriptionInactive marks a staged payload whose subscription went
// inactive between staging and processing. It is deliberately loud: the
// error propagates so the queue redelivers, making the race visible to
// operators instead of silently dropping staged data.
var ErrSubscriptionInactive = errors.New("subscription is inactive")

// Options tune the pipeline.
type Options struct {
	EnrichmentConcurrency int
	DiagnosticTTL         time.Duration
	EnableCancellations   bool
}

// Processor handles one staged-object notification at a time. It is safe
// for concurrent use; notifications within a batch are processed on
// separate goroutines by the consumer.
type Processor struct {
	subs    subscriptions.Store
	objects storage.ObjectStore
	repo    repository.Repository
	diags   diagstore.Store
	matcher tripmatch.Matcher
	logger  *logging.Logger
	opts    Options
	now     func() time.Time
}

// NewProcessor constructs the pipeline.
func NewProcessor(
	subs subscriptions.Store,
	objects storage.ObjectStore,
	repo repository.Repository,
	diags diagstore.Store,
	matcher tripmatch.Matcher,
	logger *logging.Logger,
	opts Options,
) *Processor {
	if opts.EnrichmentConcurrency <= 0 {
		opts.EnrichmentConcurrency = 8
	}
	if opts.DiagnosticTTL <= 0 {
		opts.DiagnosticTTL = 72 * time.Hour
	}
	return &Processor{
		subs:    subs,
		objects: objects,
		repo:    repo,
		diags:   diags,
		matcher: matcher,
		logger:  logger,
		opts:    opts,
		now:     time.Now,
	}
}

// SetClock overrides the time source (tests).
func (p *Processor) SetClock(now func() time.Time) {
	p.now = now
}

// Process runs one staged payload through the pipeline. Any returned error
// is fatal to the unit of work and expected to trigger redelivery.
func (p *Processor) Process(ctx context.Context, n messaging.StagedObjectNotification) (State, error) {
	start := time.Now()

	state, err := p.process(ctx, n)

	metrics.ProcessingDuration.Observe(time.Since(start).Seconds())
	switch state {
	case StatePersisted:
		metrics.PayloadsTotal.WithLabelValues(metrics.StatePersisted).Inc()
	case StateQuarantinedOnly:
		metrics.PayloadsTotal.WithLabelValues(metrics.StateQuarantinedOnly).Inc()
	case StateEmpty:
		metrics.PayloadsTotal.WithLabelValues(metrics.StateEmpty).Inc()
	case StateInactiveAbort:
		metrics.PayloadsTotal.WithLabelValues(metrics.StateInactiveAbort).Inc()
	case StateFatalError:
		metrics.PayloadsTotal.WithLabelValues(metrics.StateFatalError).Inc()
	}

	if err != nil {
		p.logger.ErrorContext(ctx, fmt.Sprintf("AVL processing failed for file %s", n.Key),
			logging.ObjectKey(n.Key), logging.Error(err))
	}

	return state, err
}

func (p *Processor) process(ctx context.Context, n messaging.StagedObjectNotification) (State, error) {
	subscriptionID, _, _ := strings.Cut(n.Key, "/")
	logger := p.logger.With(logging.SubscriptionID(subscriptionID))

	sub, err := p.subs.Get(ctx, subscriptionID)
	if err != nil {
		return StateFatalError, fmt.Errorf("fetch subscription %s: %w", subscriptionID, err)
	}

	if sub.Inactive() {
		logger.WarnContext(ctx, "Subscription is inactive, data will not be processed")
		return StateInactiveAbort, fmt.Errorf("%w: %s", ErrSubscriptionInactive, subscriptionID)
	}

	body, err := p.objects.Get(ctx, n.Key)
	if err != nil {
		return StateFatalError, fmt.Errorf("fetch staged payload %s: %w", n.Key, err)
	}
	if len(body) == 0 {
		return StateEmpty, nil
	}

	result := validator.Validate(siri.Parse(body), p.now().UTC())

	if len(result.Diagnostics) > 0 {
		if err := p.quarantine(ctx, subscriptionID, n.Key, result); err != nil {
			return StateFatalError, err
		}
	}

	activities := validator.Deduplicate(result.Activities)
	for i := range activities {
		activities[i].SubscriptionID = subscriptionID
	}

	p.enrich(ctx, activities)

	if len(activities) > 0 {
		if err := p.repo.UpsertActivities(ctx, activities); err != nil {
			return StateFatalError, fmt.Errorf("upsert vehicle activities: %w", err)
		}
		metrics.RecordsPersistedTotal.Add(float64(len(activities)))
		logger.InfoContext(ctx, "AVL processed successfully", logging.RecordCount(len(activities)))
	}

	cancellations := validator.DeduplicateCancellations(result.Cancellations)
	for i := range cancellations {
		cancellations[i].SubscriptionID = subscriptionID
	}

	if p.opts.EnableCancellations && len(cancellations) > 0 {
		if err := p.repo.UpsertCancellations(ctx, cancellations); err != nil {
			return StateFatalError, fmt.Errorf("upsert cancellations: %w", err)
		}
		metrics.CancellationsPersistedTotal.Add(float64(len(cancellations)))
		logger.InfoContext(ctx, "AVL cancellations processed successfully", logging.RecordCount(len(cancellations)))
	}

	if len(activities) == 0 && len(cancellations) == 0 {
		logger.WarnContext(ctx, "No VehicleActivity or VehicleActivityCancellation was provided in SIRI-VM message")
		if len(result.Diagnostics) > 0 {
			return StateQuarantinedOnly, nil
		}
		return StateEmpty, nil
	}

	return StatePersisted, nil
}

// quarantine stamps every diagnostic with its source context and TTL, then
// writes the batch to the diagnostic store. This happens even when some
// records still validated successfully.
func (p *Processor) quarantine(ctx context.Context, subscriptionID, objectKey string, result validator.Result) error {
	timeToExist := p.now().Add(p.opts.DiagnosticTTL).Unix()

	var responseTimestamp *string
	if result.ResponseTimestamp != "" {
		responseTimestamp = &result.ResponseTimestamp
	}

	for n := range result.Diagnostics {
		d := &result.Diagnostics[n]
		d.PK = subscriptionID
		d.SK = uuid.NewString()
		d.Filename = objectKey
		d.ResponseTimestamp = responseTimestamp
		d.TimeToExist = timeToExist
		metrics.DiagnosticsTotal.WithLabelValues(string(d.Level)).Inc()
	}

	if err := p.diags.PutBatch(ctx, result.Diagnostics); err != nil {
		return fmt.Errorf("quarantine diagnostics: %w", err)
	}
	return nil
}

// enrich attaches matched trip ids with a bounded fan-out, preserving input
// order. A failed lookup degrades that record to unmatched rather than
// aborting the batch.
func (p *Processor) enrich(ctx context.Context, activities []models.VehicleActivity) {
	if len(activities) == 0 {
		return
	}

	sem := make(chan struct{}, p.opts.EnrichmentConcurrency)
	var wg sync.WaitGroup

	for i := range activities {
		wg.Add(1)
		go func(a *models.VehicleActivity) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()

			tripID, err := p.matcher.MatchTrip(ctx, a)
			if err != nil {
				p.logger.WarnContext(ctx, "Trip matching failed, continuing with unmatched record",
					logging.SubscriptionID(a.SubscriptionID),
					logging.VehicleRef(a.VehicleRef),
					logging.Error(err))
				metrics.TripMatchesTotal.WithLabelValues(metrics.MatchDegraded).Inc()
				return
			}

			a.TripID = tripID
			if tripID != nil {
				metrics.TripMatchesTotal.WithLabelValues(metrics.MatchFound).Inc()
			} else {
				metrics.TripMatchesTotal.WithLabelValues(metrics.MatchNone).Inc()
			}
		}(&activities[i])
	}

	wg.Wait()
}
