package handlers

import (
	"bytes"
	"compress/gzip"
	"context"
	"encoding/base64"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/transitwire-systems/avl-stack/common/logging"
	"github.com/transitwire-systems/avl-stack/common/messaging"
	"github.com/transitwire-systems/avl-stack/common/storage"
	"github.com/transitwire-systems/avl-stack/common/subscriptions"
	"github.com/transitwire-systems/avl-stack/ingest/internal/service"
)

const vehicleActivityXML = `<?xml version="1.0" encoding="UTF-8"?>
<Siri version="2.0" xmlns="http://www.siri.org.uk/siri">
  <ServiceDelivery>
    <ResponseTimestamp>2026-08-14T10:00:00Z</ResponseTimestamp>
    <ProducerRef>OP01</ProducerRef>
    <VehicleMonitoringDelivery>
      <ResponseTimestamp>2026-08-14T10:00:00Z</ResponseTimestamp>
      <VehicleActivity>
        <RecordedAtTime>2026-08-14T09:59:55Z</RecordedAtTime>
        <ItemIdentifier>item-1</ItemIdentifier>
        <ValidUntilTime>2026-08-14T10:04:55Z</ValidUntilTime>
        <MonitoredVehicleJourney>
          <LineRef>7</LineRef>
          <OperatorRef>OP01</OperatorRef>
          <VehicleRef>BUS_77</VehicleRef>
          <VehicleLocation>
            <Longitude>-1.5491</Longitude>
            <Latitude>53.7974</Latitude>
          </VehicleLocation>
        </MonitoredVehicleJourney>
      </VehicleActivity>
    </VehicleMonitoringDelivery>
  </ServiceDelivery>
</Siri>`

const emptyDeliveryXML = `<?xml version="1.0" encoding="UTF-8"?>
<Siri version="2.0" xmlns="http://www.siri.org.uk/siri">
  <ServiceDelivery>
    <ResponseTimestamp>2026-08-14T10:00:00Z</ResponseTimestamp>
    <VehicleMonitoringDelivery>
      <ResponseTimestamp>2026-08-14T10:00:00Z</ResponseTimestamp>
      <VehicleActivity/>
    </VehicleMonitoringDelivery>
  </ServiceDelivery>
</Siri>`

const heartbeatXML = `<?xml version="1.0" encoding="UTF-8"?>
<Siri version="2.0" xmlns="http://www.siri.org.uk/siri">
  <HeartbeatNotification>
    <RequestTimestamp>2026-08-14T10:00:00Z</RequestTimestamp>
    <ProducerRef>OP01</ProducerRef>
    <Status>true</Status>
  </HeartbeatNotification>
</Siri>`

type recordingNotifier struct {
	notifications []messaging.StagedObjectNotification
	err           error
}

func (n *recordingNotifier) StagedPayload(_ context.Context, _ string, notification messaging.StagedObjectNotification) error {
	if n.err != nil {
		return n.err
	}
	n.notifications = append(n.notifications, notification)
	return nil
}

type fixture struct {
	subs     *subscriptions.MemoryStore
	objects  *storage.MemoryStore
	notifier *recordingNotifier
	router   http.Handler
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	subs := subscriptions.NewMemoryStore()
	objects := storage.NewMemoryStore()
	notifier := &recordingNotifier{}
	logger := logging.New(slog.LevelError, "text")

	svc := service.NewIngestService(subs, objects, notifier, "avl-staging", logger)
	svc.SetClock(func() time.Time {
		return time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC)
	})

	h := NewDataHandler(svc, logger, 25<<20)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /data/{subscriptionId}", h.HandleData)
	mux.HandleFunc("POST /internal/data/{subscriptionId}", h.HandleInternalData)

	return &fixture{subs: subs, objects: objects, notifier: notifier, router: mux}
}

func (f *fixture) addSubscription(t *testing.T, sub subscriptions.Subscription) {
	t.Helper()
	require.NoError(t, f.subs.Put(context.Background(), &sub))
}

func (f *fixture) post(target, apiKey, body string, headers map[string]string) *httptest.ResponseRecorder {
	if apiKey != "" {
		target += "?apiKey=" + apiKey
	}
	req := httptest.NewRequest(http.MethodPost, target, strings.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	rr := httptest.NewRecorder()
	f.router.ServeHTTP(rr, req)
	return rr
}

func errorsOf(t *testing.T, rr *httptest.ResponseRecorder) []string {
	t.Helper()
	var body struct {
		Errors []string `json:"errors"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	return body.Errors
}

func TestHandleDataStagesPayload(t *testing.T) {
	f := newFixture(t)
	f.addSubscription(t, subscriptions.Subscription{ID: "sub-1", Status: subscriptions.StatusLive, APIKey: "key-1"})

	rr := f.post("/data/sub-1", "key-1", vehicleActivityXML, nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Body.String())

	require.Len(t, f.notifier.notifications, 1)
	assert.Equal(t, "avl-staging", f.notifier.notifications[0].Bucket)
	assert.Equal(t, "sub-1/2026-08-14T10:00:00Z.xml", f.notifier.notifications[0].Key)

	stored, err := f.objects.Get(context.Background(), f.notifier.notifications[0].Key)
	require.NoError(t, err)
	assert.Equal(t, vehicleActivityXML, string(stored))

	sub, err := f.subs.Get(context.Background(), "sub-1")
	require.NoError(t, err)
	require.NotNil(t, sub.LastDataReceivedAt)
	assert.Equal(t, time.Date(2026, 8, 14, 10, 0, 0, 0, time.UTC), *sub.LastDataReceivedAt)
}

func TestHandleDataWrongAPIKey(t *testing.T) {
	f := newFixture(t)
	f.addSubscription(t, subscriptions.Subscription{ID: "sub-1", Status: subscriptions.StatusLive, APIKey: "key-1"})

	rr := f.post("/data/sub-1", "wrong", vehicleActivityXML, nil)

	assert.Equal(t, http.StatusUnauthorized, rr.Code)
	assert.Equal(t, []string{"Unauthorized"}, errorsOf(t, rr))
	assert.Empty(t, f.notifier.notifications)
}

func TestHandleDataUnknownSubscription(t *testing.T) {
	f := newFixture(t)

	rr := f.post("/data/missing", "key-1", vehicleActivityXML, nil)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, []string{"Subscription not found"}, errorsOf(t, rr))
}

func TestHandleDataInactiveSubscription(t *testing.T) {
	f := newFixture(t)
	f.addSubscription(t, subscriptions.Subscription{ID: "sub-1", Status: subscriptions.StatusInactive, APIKey: "key-1"})

	rr := f.post("/data/sub-1", "key-1", vehicleActivityXML, nil)

	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.Equal(t, []string{"Subscription is inactive"}, errorsOf(t, rr))
	assert.Empty(t, f.notifier.notifications)
}

func TestHandleInternalDataSkipsAuthentication(t *testing.T) {
	f := newFixture(t)
	f.addSubscription(t, subscriptions.Subscription{ID: "sub-1", Status: subscriptions.StatusLive, APIKey: "key-1"})

	rr := f.post("/internal/data/sub-1", "", vehicleActivityXML, nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, f.notifier.notifications, 1)
}

func TestHandleDataHealthShortCircuit(t *testing.T) {
	f := newFixture(t)

	rr := f.post("/data/health", "", "", nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, rr.Body.String())
	assert.Empty(t, f.notifier.notifications)
}

func TestHandleDataEmptyBody(t *testing.T) {
	f := newFixture(t)
	f.addSubscription(t, subscriptions.Subscription{ID: "sub-1", Status: subscriptions.StatusLive, APIKey: "key-1"})

	rr := f.post("/data/sub-1", "key-1", "", nil)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, []string{"Body is required"}, errorsOf(t, rr))
}

func TestHandleDataBodyOverSizeLimit(t *testing.T) {
	subs := subscriptions.NewMemoryStore()
	require.NoError(t, subs.Put(context.Background(), &subscriptions.Subscription{
		ID: "sub-1", Status: subscriptions.StatusLive, APIKey: "key-1",
	}))
	objects := storage.NewMemoryStore()
	logger := logging.New(slog.LevelError, "text")
	svc := service.NewIngestService(subs, objects, &recordingNotifier{}, "avl-staging", logger)
	h := NewDataHandler(svc, logger, 64)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /data/{subscriptionId}", h.HandleData)

	rr := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/data/sub-1?apiKey=key-1",
		strings.NewReader(strings.Repeat("x", 65)))
	mux.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusRequestEntityTooLarge, rr.Code)
	assert.Equal(t, []string{"Body too large"}, errorsOf(t, rr))
	assert.Empty(t, objects.Keys())
}

func TestHandleDataSubscriptionIDTooLong(t *testing.T) {
	f := newFixture(t)

	rr := f.post("/data/"+strings.Repeat("a", 257), "key-1", vehicleActivityXML, nil)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, []string{"subscriptionId must be 1-256 characters"}, errorsOf(t, rr))
}

func TestHandleDataNonStringBody(t *testing.T) {
	f := newFixture(t)
	f.addSubscription(t, subscriptions.Subscription{ID: "sub-1", Status: subscriptions.StatusLive, APIKey: "key-1"})

	rr := f.post("/data/sub-1", "key-1", string([]byte{0xff, 0xfe, 0xfd}), nil)

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, []string{"Body must be a string"}, errorsOf(t, rr))
}

func TestHandleDataGzipBody(t *testing.T) {
	f := newFixture(t)
	f.addSubscription(t, subscriptions.Subscription{ID: "sub-1", Status: subscriptions.StatusLive, APIKey: "key-1"})

	var buf bytes.Buffer
	zw := gzip.NewWriter(&buf)
	_, err := zw.Write([]byte(vehicleActivityXML))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	encoded := base64.StdEncoding.EncodeToString(buf.Bytes())

	rr := f.post("/data/sub-1", "key-1", encoded, map[string]string{"Content-Encoding": "gzip"})

	assert.Equal(t, http.StatusOK, rr.Code)
	require.Len(t, f.notifier.notifications, 1)

	stored, err := f.objects.Get(context.Background(), f.notifier.notifications[0].Key)
	require.NoError(t, err)
	assert.Equal(t, vehicleActivityXML, string(stored))
}

func TestHandleDataGzipBodyNotBase64(t *testing.T) {
	f := newFixture(t)
	f.addSubscription(t, subscriptions.Subscription{ID: "sub-1", Status: subscriptions.StatusLive, APIKey: "key-1"})

	rr := f.post("/data/sub-1", "key-1", "!!! not base64 !!!", map[string]string{"Content-Encoding": "gzip"})

	assert.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Equal(t, []string{"Body must be a string"}, errorsOf(t, rr))
}

func TestHandleDataHeartbeat(t *testing.T) {
	f := newFixture(t)
	f.addSubscription(t, subscriptions.Subscription{ID: "sub-1", Status: subscriptions.StatusLive, APIKey: "key-1"})

	rr := f.post("/data/sub-1", "key-1", heartbeatXML, nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, f.notifier.notifications)

	sub, err := f.subs.Get(context.Background(), "sub-1")
	require.NoError(t, err)
	require.NotNil(t, sub.HeartbeatLastReceivedAt)
	assert.Nil(t, sub.LastDataReceivedAt)
}

func TestHandleDataHeartbeatOnInactiveSubscription(t *testing.T) {
	f := newFixture(t)
	f.addSubscription(t, subscriptions.Subscription{ID: "sub-1", Status: subscriptions.StatusInactive, APIKey: "key-1"})

	rr := f.post("/data/sub-1", "key-1", heartbeatXML, nil)

	assert.Equal(t, http.StatusOK, rr.Code)

	sub, err := f.subs.Get(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.NotNil(t, sub.HeartbeatLastReceivedAt)
}

func TestHandleDataHeartbeatStatusNotTrue(t *testing.T) {
	f := newFixture(t)
	f.addSubscription(t, subscriptions.Subscription{ID: "sub-1", Status: subscriptions.StatusLive, APIKey: "key-1"})

	body := strings.Replace(heartbeatXML, "<Status>true</Status>", "<Status>false</Status>", 1)
	rr := f.post("/data/sub-1", "key-1", body, nil)

	assert.Equal(t, http.StatusOK, rr.Code)

	sub, err := f.subs.Get(context.Background(), "sub-1")
	require.NoError(t, err)
	assert.Nil(t, sub.HeartbeatLastReceivedAt)
}

func TestHandleDataEmptyDelivery(t *testing.T) {
	f := newFixture(t)
	f.addSubscription(t, subscriptions.Subscription{ID: "sub-1", Status: subscriptions.StatusLive, APIKey: "key-1"})

	rr := f.post("/data/sub-1", "key-1", emptyDeliveryXML, nil)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Empty(t, f.notifier.notifications)
	assert.Empty(t, f.objects.Keys())
}

func TestHandleDataNotifierFailure(t *testing.T) {
	f := newFixture(t)
	f.addSubscription(t, subscriptions.Subscription{ID: "sub-1", Status: subscriptions.StatusLive, APIKey: "key-1"})
	f.notifier.err = context.DeadlineExceeded

	rr := f.post("/data/sub-1", "key-1", vehicleActivityXML, nil)

	assert.Equal(t, http.StatusInternalServerError, rr.Code)
	assert.Empty(t, rr.Body.String())
}
