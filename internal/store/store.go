// Package store is the persistence layer over gorm. All multi-row
// mutations run inside a transaction so partial writes never become
// visible.
package store

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"iot-telemetry-backend/internal/model"
)

// ErrNotFound is returned when a requested record does not exist.
var ErrNotFound = errors.New("record not found")

// Store is the persistence interface consumed by the API handlers, the
// device resolver and the ingestion session.
type Store interface {
	// Broker profiles.
	CreateBrokerProfile(ctx context.Context, p *model.BrokerProfile) error
	BrokerProfile(ctx context.Context, id int64) (*model.BrokerProfile, error)
	ListBrokerProfiles(ctx context.Context) ([]model.BrokerProfile, error)
	UpdateBrokerProfile(ctx context.Context, p *model.BrokerProfile) error
	DeleteBrokerProfile(ctx context.Context, id int64) error
	ActivateBrokerProfile(ctx context.Context, id int64) error
	ActiveBrokerProfile(ctx context.Context) (*model.BrokerProfile, error)

	// Topic profiles.
	CreateTopicProfile(ctx context.Context, p *model.TopicProfile) error
	TopicProfile(ctx context.Context, id int64) (*model.TopicProfile, error)
	ListTopicProfiles(ctx context.Context) ([]model.TopicProfile, error)
	UpdateTopicProfile(ctx context.Context, p *model.TopicProfile) error
	DeleteTopicProfile(ctx context.Context, id int64) error
	ActivateTopicProfile(ctx context.Context, id int64) error
	ActiveTopicProfile(ctx context.Context) (*model.TopicProfile, error)

	// Devices.
	CreateDevice(ctx context.Context, d *model.Device) error
	Device(ctx context.Context, id int64) (*model.Device, error)
	DeviceByName(ctx context.Context, name string) (*model.Device, error)
	DeviceByNameContaining(ctx context.Context, fragment string) (*model.Device, error)
	ListDevices(ctx context.Context) ([]model.Device, error)
	UpdateDevice(ctx context.Context, d *model.Device) error
	DeleteDevice(ctx context.Context, id int64) error

	// Readings.
	ApplyReadings(ctx context.Context, deviceID int64, readings []ReadingInput) ([]AlertTransition, error)
	ReadingsForDevice(ctx context.Context, deviceID int64) ([]model.Reading, error)
	ReadingsByMetric(ctx context.Context, metric string) ([]model.Reading, error)
	AllReadings(ctx context.Context) ([]model.Reading, error)

	// Push subscriptions.
	SavePushSubscription(ctx context.Context, sub *model.PushSubscription) error
	SetSubscriptionDevices(ctx context.Context, endpoint string, deviceIDs []int64) error
	DeletePushSubscription(ctx context.Context, endpoint string) error
	ListPushSubscriptions(ctx context.Context) ([]model.PushSubscription, error)
	SubscriptionsForDevice(ctx context.Context, deviceID int64) ([]model.PushSubscription, error)
}

type gormStore struct {
	db *gorm.DB
}

func New(db *gorm.DB) Store {
	return &gormStore{db: db}
}

// translate maps gorm sentinels to the store's own.
func translate(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return ErrNotFound
	}
	return err
}
