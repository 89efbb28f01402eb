package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"iot-telemetry-backend/internal/model"
)

// SavePushSubscription upserts a subscription keyed by endpoint, so a
// browser re-registering refreshes its keys instead of erroring.
func (s *gormStore) SavePushSubscription(ctx context.Context, sub *model.PushSubscription) error {
	return s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "endpoint"}},
			DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth"}),
		}).
		Create(sub).Error
}

// SetSubscriptionDevices replaces the set of devices a subscription is
// scoped to. An empty id list clears the scoping, making it global.
func (s *gormStore) SetSubscriptionDevices(ctx context.Context, endpoint string, deviceIDs []int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		sub := model.PushSubscription{Endpoint: endpoint}
		var devices []model.Device
		if len(deviceIDs) > 0 {
			if err := tx.Find(&devices, deviceIDs).Error; err != nil {
				return err
			}
		}
		return tx.Model(&sub).Association("Devices").Replace(&devices)
	})
}

func (s *gormStore) DeletePushSubscription(ctx context.Context, endpoint string) error {
	res := s.db.WithContext(ctx).
		Where("endpoint = ?", endpoint).
		Delete(&model.PushSubscription{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) ListPushSubscriptions(ctx context.Context) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).Find(&subs).Error
	return subs, err
}

// SubscriptionsForDevice returns subscriptions linked to the device plus
// unscoped ones (no device links at all), which receive every alert.
func (s *gormStore) SubscriptionsForDevice(ctx context.Context, deviceID int64) ([]model.PushSubscription, error) {
	var subs []model.PushSubscription
	err := s.db.WithContext(ctx).
		Where(`endpoint IN (SELECT push_subscription_endpoint FROM subscription_device_mapping WHERE device_id = ?)
			OR endpoint NOT IN (SELECT push_subscription_endpoint FROM subscription_device_mapping)`, deviceID).
		Find(&subs).Error
	return subs, err
}
