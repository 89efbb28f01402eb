// Package notification delivers web-push messages for alert-status
// transitions. Sends run on a small worker pool so a slow push endpoint
// never backs up message ingestion.
package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"

	webpush "github.com/SherClockHolmes/webpush-go"
	"go.uber.org/zap"

	"iot-telemetry-backend/config"
	"iot-telemetry-backend/internal/alert"
	"iot-telemetry-backend/internal/store"
)

const queueSize = 64

type job struct {
	deviceName string
	transition store.AlertTransition
}

// pushSender abstracts webpush.SendNotification for tests.
type pushSender interface {
	Send(payload []byte, sub *webpush.Subscription, opts *webpush.Options) (*http.Response, error)
}

type webpushSender struct{}

func (webpushSender) Send(payload []byte, sub *webpush.Subscription, opts *webpush.Options) (*http.Response, error) {
	return webpush.SendNotification(payload, sub, opts)
}

// Notifier fans alert transitions out to registered push subscriptions.
// A nil *Notifier is a valid no-op, used when VAPID keys are not
// configured.
type Notifier struct {
	store  store.Store
	cfg    *config.PushConfig
	sender pushSender
	log    *zap.Logger

	jobs chan job
	wg   sync.WaitGroup
}

// New returns a Notifier, or nil when push is not configured.
func New(s store.Store, cfg *config.PushConfig, log *zap.Logger) *Notifier {
	if cfg.PublicKey == "" || cfg.PrivateKey == "" {
		return nil
	}
	return &Notifier{
		store:  s,
		cfg:    cfg,
		sender: webpushSender{},
		log:    log,
		jobs:   make(chan job, queueSize),
	}
}

// Start launches the worker pool. Safe on a nil Notifier.
func (n *Notifier) Start(workers int) {
	if n == nil {
		return
	}
	if workers < 1 {
		workers = 1
	}
	for i := 0; i < workers; i++ {
		n.wg.Add(1)
		go n.worker()
	}
}

// Stop drains the queue and waits for in-flight sends. Safe on a nil
// Notifier.
func (n *Notifier) Stop() {
	if n == nil {
		return
	}
	close(n.jobs)
	n.wg.Wait()
}

// Notify enqueues push sends for the warning/alert transitions in the
// batch. Recoveries to normal are not pushed. The enqueue never blocks;
// when the queue is full the transition is dropped with a log line.
func (n *Notifier) Notify(deviceName string, transitions []store.AlertTransition) {
	if n == nil {
		return
	}
	for _, tr := range transitions {
		if tr.To == alert.Normal {
			continue
		}
		select {
		case n.jobs <- job{deviceName: deviceName, transition: tr}:
		default:
			n.log.Warn("push queue full, dropping notification",
				zap.String("device", deviceName),
				zap.String("metric", tr.Metric))
		}
	}
}

func (n *Notifier) worker() {
	defer n.wg.Done()
	for j := range n.jobs {
		n.send(j)
	}
}

func (n *Notifier) send(j job) {
	subs, err := n.store.SubscriptionsForDevice(context.Background(), j.transition.DeviceID)
	if err != nil {
		n.log.Error("load push subscriptions", zap.Error(err))
		return
	}
	if len(subs) == 0 {
		return
	}

	payload, err := json.Marshal(map[string]any{
		"title":    fmt.Sprintf("%s: %s", j.deviceName, j.transition.To),
		"body":     fmt.Sprintf("%s is %.2f%s", j.transition.Metric, j.transition.Value, j.transition.Unit),
		"device":   j.deviceName,
		"metric":   j.transition.Metric,
		"severity": j.transition.To,
	})
	if err != nil {
		n.log.Error("marshal push payload", zap.Error(err))
		return
	}

	for _, sub := range subs {
		resp, err := n.sender.Send(payload, &webpush.Subscription{
			Endpoint: sub.Endpoint,
			Keys: webpush.Keys{
				P256dh: sub.P256DH,
				Auth:   sub.Auth,
			},
		}, &webpush.Options{
			Subscriber:      n.cfg.Subject,
			VAPIDPublicKey:  n.cfg.PublicKey,
			VAPIDPrivateKey: n.cfg.PrivateKey,
			TTL:             n.cfg.TTL,
		})
		if err != nil {
			n.log.Warn("push send failed",
				zap.String("endpoint", sub.Endpoint),
				zap.Error(err))
			continue
		}
		if resp.StatusCode == http.StatusGone || resp.StatusCode == http.StatusNotFound {
			// The browser dropped this subscription; prune it.
			if err := n.store.DeletePushSubscription(context.Background(), sub.Endpoint); err != nil {
				n.log.Warn("prune expired subscription", zap.Error(err))
			}
		}
		resp.Body.Close()
	}
}
