// Package resolve maps MQTT topic strings to device records. Topic layout
// is not standardized across firmware generations, so resolution walks an
// ordered ladder of heuristics from most to least specific.
package resolve

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"iot-telemetry-backend/internal/model"
	"iot-telemetry-backend/internal/store"
)

// ErrDeviceUnresolved is returned when no heuristic yields an existing
// device and auto-provisioning is disabled or yields no valid name.
var ErrDeviceUnresolved = errors.New("device unresolved for topic")

// DeviceStore is the subset of the store the resolver needs.
type DeviceStore interface {
	DeviceByName(ctx context.Context, name string) (*model.Device, error)
	DeviceByNameContaining(ctx context.Context, fragment string) (*model.Device, error)
	CreateDevice(ctx context.Context, device *model.Device) error
}

// Options configures a Resolver for one ingestion session.
type Options struct {
	// AutoProvision allows creating a device on first sight of an
	// unrecognized topic.
	AutoProvision bool

	// Profile ids stamped onto auto-provisioned devices so the dashboard
	// can tell which session created them. Either may be nil.
	BrokerProfileID *int64
	TopicProfileID  *int64

	Logger *zap.Logger
}

type Resolver struct {
	devices DeviceStore
	opts    Options
	log     *zap.Logger
}

func New(devices DeviceStore, opts Options) *Resolver {
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	return &Resolver{devices: devices, opts: opts, log: log}
}

// Resolve finds the device a topic belongs to. Exact-name strategies are
// tried before the fuzzy containment one so that an exact match always
// wins. When nothing matches and auto-provisioning is on, a device is
// created from the topic segments.
func (r *Resolver) Resolve(ctx context.Context, topic string) (*model.Device, error) {
	segments := splitTopic(topic)
	if len(segments) == 0 {
		return nil, fmt.Errorf("%w: empty topic", ErrDeviceUnresolved)
	}

	for _, name := range exactCandidates(segments) {
		if !validName(name) {
			continue
		}
		device, err := r.devices.DeviceByName(ctx, name)
		if err == nil {
			return device, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	if first := segments[0]; validName(first) {
		device, err := r.devices.DeviceByNameContaining(ctx, first)
		if err == nil {
			return device, nil
		}
		if !errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
	}

	if !r.opts.AutoProvision {
		return nil, fmt.Errorf("%w: %q", ErrDeviceUnresolved, topic)
	}
	return r.provision(ctx, topic, segments)
}

func (r *Resolver) provision(ctx context.Context, topic string, segments []string) (*model.Device, error) {
	name := provisionName(segments)
	if name == "" {
		return nil, fmt.Errorf("%w: %q yields no valid device name", ErrDeviceUnresolved, topic)
	}

	device := &model.Device{
		Name:            name,
		DeviceType:      model.DeviceTypeAutoCreated,
		Status:          model.StatusOnline,
		Location:        "unknown",
		BrokerProfileID: r.opts.BrokerProfileID,
		TopicProfileID:  r.opts.TopicProfileID,
	}
	if err := r.devices.CreateDevice(ctx, device); err != nil {
		// Another message for the same topic may have won the race.
		if existing, lookupErr := r.devices.DeviceByName(ctx, name); lookupErr == nil {
			return existing, nil
		}
		return nil, fmt.Errorf("auto-provision device %q: %w", name, err)
	}
	r.log.Info("auto-provisioned device",
		zap.String("device", name),
		zap.String("topic", topic))
	return device, nil
}

// exactCandidates lists exact-match names in decreasing specificity:
// underscore-joined prefix, second segment, first segment, slash-joined
// prefix.
func exactCandidates(segments []string) []string {
	if len(segments) < 2 {
		return []string{segments[0]}
	}
	s0, s1 := segments[0], segments[1]
	return []string{s0 + "_" + s1, s1, s0, s0 + "/" + s1}
}

// provisionName picks the name for a newly created device: the second
// topic segment when it is a valid name, else the underscore-joined
// prefix. Single-segment topics use the segment itself.
func provisionName(segments []string) string {
	if len(segments) < 2 {
		if validName(segments[0]) {
			return segments[0]
		}
		return ""
	}
	if validName(segments[1]) {
		return segments[1]
	}
	if joined := segments[0] + "_" + segments[1]; validName(joined) {
		return joined
	}
	return ""
}

// validName rejects names that cannot plausibly identify a device:
// single characters and purely numeric strings. Shared guard for every
// strategy, lookup and provisioning alike.
func validName(name string) bool {
	if len(name) <= 1 {
		return false
	}
	for _, r := range name {
		if r < '0' || r > '9' {
			return true
		}
	}
	return false
}

func splitTopic(topic string) []string {
	var segments []string
	for _, s := range strings.Split(topic, "/") {
		if s = strings.TrimSpace(s); s != "" {
			segments = append(segments, s)
		}
	}
	return segments
}
