// Package ingest owns the MQTT ingestion session: the broker connection
// lifecycle, subscription management against the active topic profile,
// and the per-message parse, resolve and persist pipeline.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"iot-telemetry-backend/config"
	"iot-telemetry-backend/internal/history"
	"iot-telemetry-backend/internal/notification"
	"iot-telemetry-backend/internal/parse"
	"iot-telemetry-backend/internal/resolve"
	"iot-telemetry-backend/internal/store"
)

// State of the ingestion session.
type State string

const (
	StateDisconnected State = "disconnected"
	StateConnecting   State = "connecting"
	StateConnected    State = "connected"
	StateSubscribed   State = "subscribed"
	StateStopped      State = "stopped"
)

var (
	// ErrConfigurationMissing means no active broker or topic profile
	// exists, so there is nothing to connect to.
	ErrConfigurationMissing = errors.New("no active broker or topic profile")

	// ErrConnectFailure wraps a failed broker connection attempt. The
	// session stays disconnected; retrying is the caller's decision.
	ErrConnectFailure = errors.New("broker connection failed")

	// ErrAlreadyRunning is returned by Start on a session that is not
	// stopped or disconnected.
	ErrAlreadyRunning = errors.New("ingestion session already running")

	// ErrNotConnected is returned by Publish when there is no live
	// connection.
	ErrNotConnected = errors.New("ingestion session not connected")
)

// Status is a point-in-time snapshot for the control API.
type Status struct {
	State         State    `json:"state"`
	BrokerProfile string   `json:"broker_profile,omitempty"`
	TopicProfile  string   `json:"topic_profile,omitempty"`
	Topics        []string `json:"topics"`
}

// Session drives one broker connection. Inbound messages are handled
// sequentially on the transport's delivery goroutine; control methods
// may be called from any goroutine.
type Session struct {
	store    store.Store
	cfg      *config.IngestConfig
	archiver *history.Archiver
	notifier *notification.Notifier
	factory  TransportFactory
	log      *zap.Logger

	mu            sync.Mutex
	state         State
	transport     Transport
	resolver      *resolve.Resolver
	topics        map[string]struct{}
	brokerProfile string
	topicProfile  string
	publishTopic  string
}

func New(s store.Store, cfg *config.IngestConfig, archiver *history.Archiver, notifier *notification.Notifier, factory TransportFactory, log *zap.Logger) *Session {
	if factory == nil {
		factory = NewPahoTransport
	}
	return &Session{
		store:    s,
		cfg:      cfg,
		archiver: archiver,
		notifier: notifier,
		factory:  factory,
		log:      log,
		state:    StateDisconnected,
		topics:   map[string]struct{}{},
	}
}

// Start loads the active profiles, connects and subscribes. Profile
// changes made while running take effect on the next Start.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.state != StateDisconnected && s.state != StateStopped {
		s.mu.Unlock()
		return ErrAlreadyRunning
	}

	broker, err := s.store.ActiveBrokerProfile(ctx)
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: broker", ErrConfigurationMissing)
		}
		return err
	}
	topicProfile, err := s.store.ActiveTopicProfile(ctx)
	if err != nil {
		s.mu.Unlock()
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("%w: topic", ErrConfigurationMissing)
		}
		return err
	}

	s.brokerProfile = broker.Name
	s.topicProfile = topicProfile.Name
	s.publishTopic = topicProfile.PublishTopic
	s.topics = map[string]struct{}{}
	for _, t := range parse.SubscribeTopics(topicProfile.SubscribeTopics) {
		s.topics[t] = struct{}{}
	}
	s.resolver = resolve.New(s.store, resolve.Options{
		AutoProvision:   s.cfg.AutoProvision,
		BrokerProfileID: &broker.ID,
		TopicProfileID:  &topicProfile.ID,
		Logger:          s.log,
	})

	transport, err := s.factory(broker, TransportHooks{
		OnMessage:  s.handleMessage,
		OnConnect:  s.handleConnect,
		OnConnLost: s.handleConnectionLost,
	})
	if err != nil {
		s.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrConnectFailure, err)
	}
	s.transport = transport
	s.state = StateConnecting
	timeout := s.cfg.ConnectTimeout
	if broker.TimeoutSeconds > 0 {
		timeout = time.Duration(broker.TimeoutSeconds) * time.Second
	}
	s.mu.Unlock()

	// Connecting blocks, so the lock is released; OnConnect may run
	// before Connect returns.
	if err := transport.Connect(timeout); err != nil {
		s.mu.Lock()
		s.state = StateDisconnected
		s.transport = nil
		s.mu.Unlock()
		return fmt.Errorf("%w: %v", ErrConnectFailure, err)
	}

	s.mu.Lock()
	if s.state == StateConnecting {
		s.state = StateConnected
	}
	s.mu.Unlock()

	s.log.Info("ingestion session started",
		zap.String("broker_profile", broker.Name),
		zap.String("topic_profile", topicProfile.Name))
	return nil
}

// Stop unsubscribes everything best effort, disconnects, and leaves the
// session in StateStopped. Idempotent.
func (s *Session) Stop() {
	s.mu.Lock()
	transport := s.transport
	topics := s.topicList()
	s.transport = nil
	s.state = StateStopped
	s.mu.Unlock()

	if transport == nil {
		return
	}
	if len(topics) > 0 && transport.IsConnected() {
		if err := transport.Unsubscribe(topics...); err != nil {
			s.log.Warn("unsubscribe on stop", zap.Error(err))
		}
	}
	transport.Disconnect()
	s.log.Info("ingestion session stopped")
}

// SubscribeTopic adds a topic beyond the active profile's list. Callable
// in any state; without a live connection it only records intent.
func (s *Session) SubscribeTopic(topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.topics[topic] = struct{}{}
	if s.transport == nil || !s.transport.IsConnected() {
		return nil
	}
	if err := s.transport.Subscribe(topic, byte(s.cfg.SubscribeQOS)); err != nil {
		return err
	}
	s.state = StateSubscribed
	return nil
}

// UnsubscribeTopic removes a topic. Callable in any state.
func (s *Session) UnsubscribeTopic(topic string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.topics, topic)
	if s.transport == nil || !s.transport.IsConnected() {
		return nil
	}
	return s.transport.Unsubscribe(topic)
}

// Publish sends a payload. An empty topic falls back to the active topic
// profile's publish topic.
func (s *Session) Publish(topic string, payload []byte) error {
	s.mu.Lock()
	transport := s.transport
	if topic == "" {
		topic = s.publishTopic
	}
	qos := byte(s.cfg.SubscribeQOS)
	s.mu.Unlock()

	if transport == nil || !transport.IsConnected() {
		return ErrNotConnected
	}
	if topic == "" {
		return errors.New("no publish topic configured")
	}
	return transport.Publish(topic, qos, false, payload)
}

// Status reports the session state for the control API.
func (s *Session) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		State:         s.state,
		BrokerProfile: s.brokerProfile,
		TopicProfile:  s.topicProfile,
		Topics:        s.topicList(),
	}
}

// handleConnect runs on every (re)connect and subscribes from scratch:
// the broker forgets subscriptions across a clean-session reconnect.
func (s *Session) handleConnect() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state == StateStopped || s.transport == nil {
		return
	}
	s.state = StateConnected
	subscribed := 0
	for topic := range s.topics {
		if err := s.transport.Subscribe(topic, byte(s.cfg.SubscribeQOS)); err != nil {
			s.log.Error("subscribe failed", zap.String("topic", topic), zap.Error(err))
			continue
		}
		subscribed++
	}
	if subscribed > 0 {
		s.state = StateSubscribed
	}
	s.log.Info("broker connected", zap.Int("topics", subscribed))
}

func (s *Session) handleConnectionLost(err error) {
	s.mu.Lock()
	if s.state != StateStopped {
		s.state = StateDisconnected
	}
	s.mu.Unlock()
	s.log.Warn("broker connection lost", zap.Error(err))
}

// handleMessage is the per-message pipeline. Every failure is contained:
// logged with topic context and dropped, never allowed to take the
// session down.
func (s *Session) handleMessage(topic string, payload []byte) {
	s.mu.Lock()
	resolver := s.resolver
	s.mu.Unlock()
	if resolver == nil {
		return
	}

	readings := parse.Readings(topic, payload)
	if len(readings) == 0 {
		s.log.Debug("payload yielded no readings",
			zap.String("topic", topic),
			zap.ByteString("payload", payload))
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	device, err := resolver.Resolve(ctx, topic)
	if err != nil {
		if errors.Is(err, resolve.ErrDeviceUnresolved) {
			s.log.Warn("dropping message from unresolved topic",
				zap.String("topic", topic))
		} else {
			s.log.Error("device resolution failed",
				zap.String("topic", topic), zap.Error(err))
		}
		return
	}

	inputs := make([]store.ReadingInput, 0, len(readings))
	for _, r := range readings {
		inputs = append(inputs, store.ReadingInput{Metric: r.Metric, Value: r.Value, Unit: r.Unit})
	}

	transitions, err := s.store.ApplyReadings(ctx, device.ID, inputs)
	if err != nil {
		s.log.Error("persist readings failed",
			zap.String("topic", topic),
			zap.String("device", device.Name),
			zap.Error(err))
		return
	}

	s.archiver.Append(ctx, device.ID, device.Name, inputs)
	s.notifier.Notify(device.Name, transitions)
}

// topicList returns the desired topics; callers must hold mu.
func (s *Session) topicList() []string {
	topics := make([]string, 0, len(s.topics))
	for t := range s.topics {
		topics = append(topics, t)
	}
	return topics
}
