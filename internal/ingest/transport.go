package ingest

import (
	"crypto/tls"
	"crypto/x509"
	"errors"
	"fmt"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"iot-telemetry-backend/internal/model"
)

// MessageHandler receives one inbound message. Invoked sequentially from
// the transport's delivery loop.
type MessageHandler func(topic string, payload []byte)

// TransportHooks are the session callbacks a transport must invoke.
type TransportHooks struct {
	OnMessage  MessageHandler
	OnConnect  func()
	OnConnLost func(err error)
}

// Transport is the slice of an MQTT client the session needs. The
// production implementation wraps paho; tests substitute a fake.
type Transport interface {
	Connect(timeout time.Duration) error
	Subscribe(topic string, qos byte) error
	Unsubscribe(topics ...string) error
	Publish(topic string, qos byte, retained bool, payload []byte) error
	IsConnected() bool
	Disconnect()
}

// TransportFactory builds a transport for one broker profile. Hooks are
// registered before the first connect so the initial OnConnect fires the
// subscription pass.
type TransportFactory func(profile *model.BrokerProfile, hooks TransportHooks) (Transport, error)

type pahoTransport struct {
	client mqtt.Client
}

// NewPahoTransport is the production TransportFactory.
func NewPahoTransport(profile *model.BrokerProfile, hooks TransportHooks) (Transport, error) {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(brokerURL(profile))
	opts.SetClientID(profile.ClientID)
	opts.SetAutoReconnect(true)
	opts.SetCleanSession(true)

	if profile.Username != "" {
		opts.SetUsername(profile.Username)
		opts.SetPassword(profile.Password)
	}
	if profile.KeepAliveSeconds > 0 {
		opts.SetKeepAlive(time.Duration(profile.KeepAliveSeconds) * time.Second)
	}
	if profile.WillTopic != "" {
		opts.SetWill(profile.WillTopic, profile.WillPayload, byte(profile.WillQOS), false)
	}
	if profile.UseTLS {
		tlsCfg, err := tlsConfig(profile)
		if err != nil {
			return nil, err
		}
		opts.SetTLSConfig(tlsCfg)
	}

	opts.SetDefaultPublishHandler(func(_ mqtt.Client, msg mqtt.Message) {
		hooks.OnMessage(msg.Topic(), msg.Payload())
	})
	opts.SetOnConnectHandler(func(mqtt.Client) {
		hooks.OnConnect()
	})
	opts.SetConnectionLostHandler(func(_ mqtt.Client, err error) {
		hooks.OnConnLost(err)
	})

	return &pahoTransport{client: mqtt.NewClient(opts)}, nil
}

func (t *pahoTransport) Connect(timeout time.Duration) error {
	token := t.client.Connect()
	if !token.WaitTimeout(timeout) {
		return errors.New("broker connect timed out")
	}
	return token.Error()
}

func (t *pahoTransport) Subscribe(topic string, qos byte) error {
	token := t.client.Subscribe(topic, qos, nil)
	token.Wait()
	return token.Error()
}

func (t *pahoTransport) Unsubscribe(topics ...string) error {
	token := t.client.Unsubscribe(topics...)
	token.Wait()
	return token.Error()
}

func (t *pahoTransport) Publish(topic string, qos byte, retained bool, payload []byte) error {
	token := t.client.Publish(topic, qos, retained, payload)
	token.Wait()
	return token.Error()
}

func (t *pahoTransport) IsConnected() bool {
	return t.client.IsConnected()
}

// Disconnect allows a short grace period for in-flight work before the
// network connection drops.
func (t *pahoTransport) Disconnect() {
	t.client.Disconnect(250)
}

func brokerURL(p *model.BrokerProfile) string {
	scheme := "tcp"
	if p.UseTLS {
		scheme = "ssl"
	}
	return fmt.Sprintf("%s://%s:%d", scheme, p.Host, p.Port)
}

func tlsConfig(p *model.BrokerProfile) (*tls.Config, error) {
	cfg := &tls.Config{MinVersion: tls.VersionTLS12}

	if p.CACertPath != "" {
		pem, err := os.ReadFile(p.CACertPath)
		if err != nil {
			return nil, fmt.Errorf("read CA certificate: %w", err)
		}
		pool := x509.NewCertPool()
		if !pool.AppendCertsFromPEM(pem) {
			return nil, fmt.Errorf("no certificates parsed from %s", p.CACertPath)
		}
		cfg.RootCAs = pool
	}
	if p.CertPath != "" && p.KeyPath != "" {
		cert, err := tls.LoadX509KeyPair(p.CertPath, p.KeyPath)
		if err != nil {
			return nil, fmt.Errorf("load client certificate: %w", err)
		}
		cfg.Certificates = []tls.Certificate{cert}
	}
	return cfg, nil
}
