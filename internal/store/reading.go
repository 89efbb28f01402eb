package store

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"

	"iot-telemetry-backend/internal/alert"
	"iot-telemetry-backend/internal/model"
)

// ReadingInput is one (metric, value, unit) tuple to persist.
type ReadingInput struct {
	Metric string
	Value  float64
	Unit   string
}

// AlertTransition records an alert-status change produced by a write.
// Consumers decide which transitions are worth notifying about.
type AlertTransition struct {
	DeviceID int64
	Metric   string
	Value    float64
	Unit     string
	From     string
	To       string
}

// ApplyReadings persists a batch of readings for one device inside a
// single transaction. Existing (device, metric) rows are updated in
// place; new metrics get a fresh row with default bounds. The device is
// marked online with its last-seen time refreshed. Either every tuple in
// the batch lands or none do.
func (s *gormStore) ApplyReadings(ctx context.Context, deviceID int64, readings []ReadingInput) ([]AlertTransition, error) {
	var transitions []AlertTransition

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		transitions = transitions[:0]
		now := time.Now().UTC()

		for _, in := range readings {
			status := alert.Classify(in.Metric, in.Value)

			var existing model.Reading
			err := tx.Where("device_id = ? AND metric = ?", deviceID, in.Metric).
				First(&existing).Error
			switch {
			case errors.Is(err, gorm.ErrRecordNotFound):
				minVal, maxVal := alert.DefaultBounds(in.Metric)
				row := model.Reading{
					DeviceID:    deviceID,
					Metric:      in.Metric,
					Value:       in.Value,
					Unit:        in.Unit,
					Timestamp:   now,
					MinValue:    minVal,
					MaxValue:    maxVal,
					AlertStatus: status,
				}
				if err := tx.Create(&row).Error; err != nil {
					return err
				}
				if status != alert.Normal {
					transitions = append(transitions, AlertTransition{
						DeviceID: deviceID,
						Metric:   in.Metric,
						Value:    in.Value,
						Unit:     in.Unit,
						From:     alert.Normal,
						To:       status,
					})
				}
			case err != nil:
				return err
			default:
				if existing.AlertStatus != status {
					transitions = append(transitions, AlertTransition{
						DeviceID: deviceID,
						Metric:   in.Metric,
						Value:    in.Value,
						Unit:     in.Unit,
						From:     existing.AlertStatus,
						To:       status,
					})
				}
				err := tx.Model(&model.Reading{}).
					Where("id = ?", existing.ID).
					Updates(map[string]any{
						"value":        in.Value,
						"unit":         in.Unit,
						"timestamp":    now,
						"alert_status": status,
					}).Error
				if err != nil {
					return err
				}
			}
		}

		return tx.Model(&model.Device{}).
			Where("id = ?", deviceID).
			Updates(map[string]any{
				"status":    model.StatusOnline,
				"last_seen": now,
			}).Error
	})
	if err != nil {
		return nil, err
	}
	return transitions, nil
}

func (s *gormStore) ReadingsForDevice(ctx context.Context, deviceID int64) ([]model.Reading, error) {
	var readings []model.Reading
	err := s.db.WithContext(ctx).
		Where("device_id = ?", deviceID).
		Order("metric").
		Find(&readings).Error
	return readings, err
}

func (s *gormStore) ReadingsByMetric(ctx context.Context, metric string) ([]model.Reading, error) {
	var readings []model.Reading
	err := s.db.WithContext(ctx).
		Where("metric = ?", metric).
		Order("device_id").
		Find(&readings).Error
	return readings, err
}

func (s *gormStore) AllReadings(ctx context.Context) ([]model.Reading, error) {
	var readings []model.Reading
	err := s.db.WithContext(ctx).Order("device_id, metric").Find(&readings).Error
	return readings, err
}
