package consumer

import (
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitwire-systems/avl-stack/common/logging"
	"github.com/transitwire-systems/avl-stack/common/messaging"
	"github.com/transitwire-systems/avl-stack/common/storage"
	"github.com/transitwire-systems/avl-stack/common/subscriptions"
	"github.com/transitwire-systems/avl-stack/processor/internal/diagstore"
	"github.com/transitwire-systems/avl-stack/processor/internal/models"
	"github.com/transitwire-systems/avl-stack/processor/internal/repository"
	"github.com/transitwire-systems/avl-stack/processor/internal/service"
)

const stagedPayload = `<?xml version="1.0" encoding="UTF-8"?>
<Siri version="2.0" xmlns="http://www.siri.org.uk/siri">
  <ServiceDelivery>
    <ResponseTimestamp>2026-08-14T10:00:05Z</ResponseTimestamp>
    <ProducerRef>OP01</ProducerRef>
    <VehicleMonitoringDelivery>
      <ResponseTimestamp>2026-08-14T10:00:05Z</ResponseTimestamp>
      <VehicleActivity>
        <RecordedAtTime>2026-08-14T10:00:00Z</RecordedAtTime>
        <ValidUntilTime>2026-08-14T10:05:00Z</ValidUntilTime>
        <MonitoredVehicleJourney>
          <LineRef>7</LineRef>
          <DirectionRef>outbound</DirectionRef>
          <OperatorRef>OP01</OperatorRef>
          <VehicleLocation>
            <Longitude>-1.5491</Longitude>
            <Latitude>53.7974</Latitude>
          </VehicleLocation>
          <VehicleRef>BUS_1</VehicleRef>
        </MonitoredVehicleJourney>
      </VehicleActivity>
    </VehicleMonitoringDelivery>
  </ServiceDelivery>
</Siri>`

type noopMatcher struct{}

func (noopMatcher) MatchTrip(context.Context, *models.VehicleActivity) (*string, error) {
	return nil, nil
}

type fixture struct {
	objects  *storage.MemoryStore
	repo     *repository.MemoryRepository
	consumer *Consumer
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })

	subs := subscriptions.NewMemoryStore()
	require.NoError(t, subs.Put(context.Background(), &subscriptions.Subscription{
		ID:     "sub-1",
		Status: subscriptions.StatusLive,
	}))

	f := &fixture{
		objects: storage.NewMemoryStore(),
		repo:    repository.NewMemoryRepository(),
	}

	logger := logging.New(slog.LevelError, "text")
	processor := service.NewProcessor(subs, f.objects, f.repo,
		diagstore.NewRedisStoreWithClient(client), noopMatcher{}, logger, service.Options{})
	now := time.Now().UTC().Truncate(time.Second)
	processor.SetClock(func() time.Time {
		return now
	})

	f.consumer = New(nil, processor, logger)
	return f
}

func (f *fixture) stage(t *testing.T, key string) messaging.StagedObjectNotification {
	t.Helper()
	require.NoError(t, f.objects.Put(context.Background(), key, []byte(stagedPayload)))
	return messaging.StagedObjectNotification{Bucket: "avl-staging", Key: key}
}

func TestHandleMessageSingleNotification(t *testing.T) {
	f := newFixture(t)
	n := f.stage(t, "sub-1/2026-08-14T10:00:01Z.xml")

	data, err := n.Encode()
	require.NoError(t, err)

	err = f.consumer.handleMessage(context.Background(), &messaging.Message{
		Subject: messaging.StagedSubject("sub-1"),
		Data:    data,
	})
	require.NoError(t, err)
	assert.Len(t, f.repo.Activities(), 1)
}

func TestHandleMessageBatch(t *testing.T) {
	f := newFixture(t)
	batch := []messaging.StagedObjectNotification{
		f.stage(t, "sub-1/2026-08-14T10:00:01Z.xml"),
		f.stage(t, "sub-1/2026-08-14T10:00:31Z.xml"),
	}

	data, err := json.Marshal(batch)
	require.NoError(t, err)

	err = f.consumer.handleMessage(context.Background(), &messaging.Message{
		Subject: messaging.StagedSubject("sub-1"),
		Data:    data,
	})
	require.NoError(t, err)

	// Both payloads carry the same vehicle and recorded time, so the
	// second upsert lands on the first row.
	assert.Len(t, f.repo.Activities(), 1)
}

func TestHandleMessageUndecodableIsDropped(t *testing.T) {
	f := newFixture(t)

	err := f.consumer.handleMessage(context.Background(), &messaging.Message{
		Subject: messaging.StagedSubject("sub-1"),
		Data:    []byte("not json"),
	})

	assert.NoError(t, err)
	assert.Empty(t, f.repo.Activities())
}

func TestProcessBatchPropagatesFailure(t *testing.T) {
	f := newFixture(t)
	batch := []messaging.StagedObjectNotification{
		f.stage(t, "sub-1/2026-08-14T10:00:01Z.xml"),
		{Bucket: "avl-staging", Key: "sub-1/missing.xml"},
	}

	err := f.consumer.ProcessBatch(context.Background(), batch)

	require.Error(t, err)
	assert.Len(t, f.repo.Activities(), 1)
}
