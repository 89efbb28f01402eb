package store

import (
	"context"

	"gorm.io/gorm"

	"iot-telemetry-backend/internal/model"
)

func (s *gormStore) CreateDevice(ctx context.Context, d *model.Device) error {
	return s.db.WithContext(ctx).Create(d).Error
}

func (s *gormStore) Device(ctx context.Context, id int64) (*model.Device, error) {
	var d model.Device
	if err := s.db.WithContext(ctx).First(&d, id).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (s *gormStore) DeviceByName(ctx context.Context, name string) (*model.Device, error) {
	var d model.Device
	if err := s.db.WithContext(ctx).Where("name = ?", name).First(&d).Error; err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

// DeviceByNameContaining returns the first device whose name contains the
// fragment, lowest id first so results are stable.
func (s *gormStore) DeviceByNameContaining(ctx context.Context, fragment string) (*model.Device, error) {
	var d model.Device
	err := s.db.WithContext(ctx).
		Where("name LIKE ?", "%"+fragment+"%").
		Order("id").
		First(&d).Error
	if err != nil {
		return nil, translate(err)
	}
	return &d, nil
}

func (s *gormStore) ListDevices(ctx context.Context) ([]model.Device, error) {
	var devices []model.Device
	err := s.db.WithContext(ctx).Order("id").Find(&devices).Error
	return devices, err
}

func (s *gormStore) UpdateDevice(ctx context.Context, d *model.Device) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.Device
		if err := tx.First(&existing, d.ID).Error; err != nil {
			return translate(err)
		}
		return tx.Save(d).Error
	})
}

// DeleteDevice removes a device and, through the schema's cascade, its
// readings.
func (s *gormStore) DeleteDevice(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Select("Readings").Delete(&model.Device{ID: id})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
