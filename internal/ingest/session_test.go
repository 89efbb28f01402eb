package ingest

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"iot-telemetry-backend/config"
	"iot-telemetry-backend/internal/alert"
	"iot-telemetry-backend/internal/db"
	"iot-telemetry-backend/internal/model"
	"iot-telemetry-backend/internal/store"
)

type fakeTransport struct {
	mu         sync.Mutex
	hooks      TransportHooks
	connected  bool
	connectErr error
	subs       map[string]byte
	published  map[string][]byte
}

func (f *fakeTransport) Connect(time.Duration) error {
	if f.connectErr != nil {
		return f.connectErr
	}
	f.mu.Lock()
	f.connected = true
	f.mu.Unlock()
	f.hooks.OnConnect()
	return nil
}

func (f *fakeTransport) Subscribe(topic string, qos byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.subs[topic] = qos
	return nil
}

func (f *fakeTransport) Unsubscribe(topics ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, t := range topics {
		delete(f.subs, t)
	}
	return nil
}

func (f *fakeTransport) Publish(topic string, _ byte, _ bool, payload []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.published[topic] = payload
	return nil
}

func (f *fakeTransport) IsConnected() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.connected
}

func (f *fakeTransport) Disconnect() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.connected = false
}

func (f *fakeTransport) deliver(topic string, payload string) {
	f.hooks.OnMessage(topic, []byte(payload))
}

func (f *fakeTransport) subscribedTopics() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	topics := make([]string, 0, len(f.subs))
	for t := range f.subs {
		topics = append(topics, t)
	}
	return topics
}

func newSessionTestEnv(t *testing.T, cfg *config.IngestConfig) (*Session, *fakeTransport, store.Store) {
	t.Helper()

	gdb, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := gdb.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, db.Migrate(gdb))

	st := store.New(gdb)

	transport := &fakeTransport{
		subs:      map[string]byte{},
		published: map[string][]byte{},
	}
	factory := func(_ *model.BrokerProfile, hooks TransportHooks) (Transport, error) {
		transport.hooks = hooks
		return transport, nil
	}

	if cfg == nil {
		cfg = &config.IngestConfig{ConnectTimeout: time.Second, SubscribeQOS: 1}
	}
	session := New(st, cfg, nil, nil, factory, zap.NewNop())
	return session, transport, st
}

func activateProfiles(t *testing.T, st store.Store, subscribeTopics string) (*model.BrokerProfile, *model.TopicProfile) {
	t.Helper()
	ctx := context.Background()

	broker := &model.BrokerProfile{Name: "lab", Host: "localhost", Port: 1883, ClientID: "telemetryd"}
	require.NoError(t, st.CreateBrokerProfile(ctx, broker))
	require.NoError(t, st.ActivateBrokerProfile(ctx, broker.ID))

	topics := &model.TopicProfile{
		Name:            "sensors",
		BrokerProfileID: broker.ID,
		SubscribeTopics: subscribeTopics,
		PublishTopic:    "commands/all",
	}
	require.NoError(t, st.CreateTopicProfile(ctx, topics))
	require.NoError(t, st.ActivateTopicProfile(ctx, topics.ID))
	return broker, topics
}

func TestStartWithoutActiveProfiles(t *testing.T) {
	session, _, st := newSessionTestEnv(t, nil)

	err := session.Start(context.Background())
	assert.ErrorIs(t, err, ErrConfigurationMissing)

	// Broker alone is not enough.
	broker := &model.BrokerProfile{Name: "lab", Host: "localhost", Port: 1883}
	require.NoError(t, st.CreateBrokerProfile(context.Background(), broker))
	require.NoError(t, st.ActivateBrokerProfile(context.Background(), broker.ID))

	err = session.Start(context.Background())
	assert.ErrorIs(t, err, ErrConfigurationMissing)
	assert.Equal(t, StateDisconnected, session.Status().State)
}

func TestStartSubscribesProfileTopics(t *testing.T) {
	session, transport, st := newSessionTestEnv(t, nil)
	activateProfiles(t, st, `["sensors/#", "devices/+/up"]`)

	require.NoError(t, session.Start(context.Background()))

	status := session.Status()
	assert.Equal(t, StateSubscribed, status.State)
	assert.Equal(t, "lab", status.BrokerProfile)
	assert.Equal(t, "sensors", status.TopicProfile)
	assert.ElementsMatch(t, []string{"sensors/#", "devices/+/up"}, transport.subscribedTopics())
}

func TestStartTwice(t *testing.T) {
	session, _, st := newSessionTestEnv(t, nil)
	activateProfiles(t, st, "sensors/#")

	require.NoError(t, session.Start(context.Background()))
	assert.ErrorIs(t, session.Start(context.Background()), ErrAlreadyRunning)
}

func TestConnectFailureLeavesDisconnected(t *testing.T) {
	session, transport, st := newSessionTestEnv(t, nil)
	activateProfiles(t, st, "sensors/#")
	transport.connectErr = errors.New("connection refused")

	err := session.Start(context.Background())
	assert.ErrorIs(t, err, ErrConnectFailure)
	assert.Equal(t, StateDisconnected, session.Status().State)

	// A later attempt may succeed.
	transport.connectErr = nil
	require.NoError(t, session.Start(context.Background()))
	assert.Equal(t, StateSubscribed, session.Status().State)
}

func TestSubscribeAndUnsubscribeAtRuntime(t *testing.T) {
	session, transport, st := newSessionTestEnv(t, nil)
	activateProfiles(t, st, "sensors/#")
	require.NoError(t, session.Start(context.Background()))

	require.NoError(t, session.SubscribeTopic("extra/topic"))
	assert.Contains(t, transport.subscribedTopics(), "extra/topic")

	require.NoError(t, session.UnsubscribeTopic("extra/topic"))
	assert.NotContains(t, transport.subscribedTopics(), "extra/topic")
}

func TestSubscribeWhileDisconnectedRecordsIntent(t *testing.T) {
	session, _, _ := newSessionTestEnv(t, nil)

	require.NoError(t, session.SubscribeTopic("extra/topic"))
	assert.Contains(t, session.Status().Topics, "extra/topic")
}

func TestStopIsIdempotent(t *testing.T) {
	session, transport, st := newSessionTestEnv(t, nil)
	activateProfiles(t, st, "sensors/#")
	require.NoError(t, session.Start(context.Background()))

	session.Stop()
	session.Stop()

	assert.Equal(t, StateStopped, session.Status().State)
	assert.False(t, transport.IsConnected())
	assert.Empty(t, transport.subscribedTopics())
}

func TestPublish(t *testing.T) {
	session, transport, st := newSessionTestEnv(t, nil)
	activateProfiles(t, st, "sensors/#")

	assert.ErrorIs(t, session.Publish("commands/1", []byte("on")), ErrNotConnected)

	require.NoError(t, session.Start(context.Background()))
	require.NoError(t, session.Publish("commands/1", []byte("on")))
	assert.Equal(t, []byte("on"), transport.published["commands/1"])

	// Empty topic falls back to the profile's publish topic.
	require.NoError(t, session.Publish("", []byte("off")))
	assert.Equal(t, []byte("off"), transport.published["commands/all"])
}

func TestMessagePipelineAutoProvisions(t *testing.T) {
	cfg := &config.IngestConfig{AutoProvision: true, ConnectTimeout: time.Second, SubscribeQOS: 1}
	session, transport, st := newSessionTestEnv(t, cfg)
	activateProfiles(t, st, "sensors/#")
	require.NoError(t, session.Start(context.Background()))

	transport.deliver("sensors/room1/temperature", "23.5")

	ctx := context.Background()
	device, err := st.DeviceByName(ctx, "room1")
	require.NoError(t, err)
	assert.Equal(t, model.DeviceTypeAutoCreated, device.DeviceType)

	readings, err := st.ReadingsForDevice(ctx, device.ID)
	require.NoError(t, err)
	require.Len(t, readings, 1)
	assert.Equal(t, "temperature", readings[0].Metric)
	assert.Equal(t, 23.5, readings[0].Value)
	assert.Equal(t, "", readings[0].Unit)
	assert.Equal(t, alert.Normal, readings[0].AlertStatus)
}

func TestMessagePipelineDropsUnresolved(t *testing.T) {
	session, transport, st := newSessionTestEnv(t, nil) // auto-provision off
	activateProfiles(t, st, "sensors/#")
	require.NoError(t, session.Start(context.Background()))

	transport.deliver("sensors/room1/temperature", "23.5")

	devices, err := st.ListDevices(context.Background())
	require.NoError(t, err)
	assert.Empty(t, devices)
}

func TestMessagePipelineIgnoresMalformedPayload(t *testing.T) {
	cfg := &config.IngestConfig{AutoProvision: true, ConnectTimeout: time.Second, SubscribeQOS: 1}
	session, transport, st := newSessionTestEnv(t, cfg)
	activateProfiles(t, st, "sensors/#")
	require.NoError(t, session.Start(context.Background()))

	transport.deliver("sensors/room1/temperature", "???")

	devices, err := st.ListDevices(context.Background())
	require.NoError(t, err)
	assert.Empty(t, devices, "unparseable payload must not provision a device")
}
