package internal

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"iot-telemetry-backend/config"
	"iot-telemetry-backend/internal/api"
	"iot-telemetry-backend/internal/db"
	"iot-telemetry-backend/internal/ingest"
	"iot-telemetry-backend/internal/model"
	"iot-telemetry-backend/internal/store"
)

type brokerSim struct {
	mu        sync.Mutex
	hooks     ingest.TransportHooks
	connected bool
	subs      map[string]struct{}
}

func (b *brokerSim) Connect(time.Duration) error {
	b.mu.Lock()
	b.connected = true
	b.mu.Unlock()
	b.hooks.OnConnect()
	return nil
}

func (b *brokerSim) Subscribe(topic string, _ byte) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subs[topic] = struct{}{}
	return nil
}

func (b *brokerSim) Unsubscribe(topics ...string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, t := range topics {
		delete(b.subs, t)
	}
	return nil
}

func (b *brokerSim) Publish(string, byte, bool, []byte) error { return nil }

func (b *brokerSim) IsConnected() bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.connected
}

func (b *brokerSim) Disconnect() {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.connected = false
}

// publish pushes a message through the session's pipeline the way the
// MQTT client would, sequentially on the caller's goroutine.
func (b *brokerSim) publish(topic, payload string) {
	b.hooks.OnMessage(topic, []byte(payload))
}

// TestTelemetryLifecycle walks the whole pipeline: configure profiles
// over HTTP, start ingestion, receive broker messages, and read the
// resulting devices and readings back through the dashboard endpoints.
func TestTelemetryLifecycle(t *testing.T) {
	gin.SetMode(gin.TestMode)

	testDB, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := testDB.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	defer sqlDB.Close()
	require.NoError(t, db.Migrate(testDB))

	appStore := store.New(testDB)

	broker := &brokerSim{subs: map[string]struct{}{}}
	factory := func(_ *model.BrokerProfile, hooks ingest.TransportHooks) (ingest.Transport, error) {
		broker.hooks = hooks
		return broker, nil
	}

	cfg := &config.Config{
		Server: config.ServerConfig{
			RateLimitPerSec: 1000,
			RateLimitBurst:  1000,
		},
		Ingest: config.IngestConfig{
			AutoProvision:  true,
			ConnectTimeout: time.Second,
			SubscribeQOS:   1,
		},
	}
	session := ingest.New(appStore, &cfg.Ingest, nil, nil, factory, zap.NewNop())
	router := api.NewRouter(appStore, session, cfg)

	request := func(method, path string, body any) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req, err := http.NewRequest(method, path, &buf)
		require.NoError(t, err)
		req.Header.Set("Content-Type", "application/json")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	// Configure and activate a broker and a topic profile.
	w := request(http.MethodPost, "/api/broker-profiles", gin.H{
		"name": "lab", "host": "localhost", "port": 1883, "client_id": "telemetryd",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, http.StatusNoContent,
		request(http.MethodPost, "/api/broker-profiles/1/activate", nil).Code)

	w = request(http.MethodPost, "/api/topic-profiles", gin.H{
		"name":              "sensors",
		"broker_profile_id": 1,
		"subscribe_topics":  []string{"sensors/#", "stm32/#"},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, http.StatusNoContent,
		request(http.MethodPost, "/api/topic-profiles/1/activate", nil).Code)

	// Start ingestion; the simulated broker accepts both subscriptions.
	w = request(http.MethodPost, "/api/ingest/start", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var status ingest.Status
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, ingest.StateSubscribed, status.State)
	assert.Len(t, broker.subs, 2)

	// A bare numeric payload auto-provisions "room1" and stores one
	// normal reading named from the topic.
	broker.publish("sensors/room1/temperature", "23.5")

	w = request(http.MethodGet, "/api/devices", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var devices []model.Device
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &devices))
	require.Len(t, devices, 1)
	assert.Equal(t, "room1", devices[0].Name)
	assert.Equal(t, model.DeviceTypeAutoCreated, devices[0].DeviceType)
	assert.Equal(t, model.StatusOnline, devices[0].Status)

	var readings []model.Reading
	w = request(http.MethodGet, "/api/devices/1/readings", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &readings))
	require.Len(t, readings, 1)
	assert.Equal(t, "temperature", readings[0].Metric)
	assert.Equal(t, 23.5, readings[0].Value)
	assert.Equal(t, "normal", readings[0].AlertStatus)

	// A firmware-format payload lands several metrics on a second
	// device, with the hot temperature classified as an alert.
	broker.publish("stm32/2", "Temperature1: 31.00 C, Humidity1: 66.00 %\nRelay Status: 1")

	w = request(http.MethodGet, "/api/devices", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &devices))
	require.Len(t, devices, 2)
	assert.Equal(t, "stm32_2", devices[1].Name)

	w = request(http.MethodGet, "/api/devices/2/readings", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &readings))
	require.Len(t, readings, 3)
	byMetric := map[string]model.Reading{}
	for _, r := range readings {
		byMetric[r.Metric] = r
	}
	assert.Equal(t, "alert", byMetric["Temperature1"].AlertStatus)
	assert.Equal(t, "warning", byMetric["Humidity1"].AlertStatus)
	assert.Equal(t, "normal", byMetric["Relay Status"].AlertStatus)

	// Redelivery updates in place, the row count stays put.
	broker.publish("sensors/room1/temperature", "24.0")
	w = request(http.MethodGet, "/api/devices/1/readings", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &readings))
	require.Len(t, readings, 1)
	assert.Equal(t, 24.0, readings[0].Value)

	// Garbage is dropped without side effects.
	broker.publish("sensors/room9/temperature", "???")
	w = request(http.MethodGet, "/api/devices", nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &devices))
	assert.Len(t, devices, 2)

	// Stop tears the subscriptions down and is observable in status.
	w = request(http.MethodPost, "/api/ingest/stop", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &status))
	assert.Equal(t, ingest.StateStopped, status.State)
	assert.False(t, broker.IsConnected())
}
