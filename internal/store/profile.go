package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"iot-telemetry-backend/internal/model"
)

func (s *gormStore) CreateBrokerProfile(ctx context.Context, p *model.BrokerProfile) error {
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *gormStore) BrokerProfile(ctx context.Context, id int64) (*model.BrokerProfile, error) {
	var p model.BrokerProfile
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *gormStore) ListBrokerProfiles(ctx context.Context) ([]model.BrokerProfile, error) {
	var profiles []model.BrokerProfile
	err := s.db.WithContext(ctx).Order("id").Find(&profiles).Error
	return profiles, err
}

func (s *gormStore) UpdateBrokerProfile(ctx context.Context, p *model.BrokerProfile) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.BrokerProfile
		if err := tx.First(&existing, p.ID).Error; err != nil {
			return translate(err)
		}
		return tx.Save(p).Error
	})
}

// DeleteBrokerProfile removes a profile. Deleting the active profile
// leaves zero active profiles; nothing is promoted in its place.
func (s *gormStore) DeleteBrokerProfile(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&model.BrokerProfile{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// ActivateBrokerProfile makes the given profile the single active one.
// The deactivate-all and activate steps share a transaction so the
// at-most-one-active invariant holds at every commit point. A missing id
// fails with ErrNotFound and changes nothing.
func (s *gormStore) ActivateBrokerProfile(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p model.BrokerProfile
		if err := tx.First(&p, id).Error; err != nil {
			return translate(err)
		}
		if err := tx.Model(&model.BrokerProfile{}).
			Where("active = ?", true).
			Update("active", false).Error; err != nil {
			return fmt.Errorf("deactivate broker profiles: %w", err)
		}
		return tx.Model(&p).Update("active", true).Error
	})
}

func (s *gormStore) ActiveBrokerProfile(ctx context.Context) (*model.BrokerProfile, error) {
	var p model.BrokerProfile
	if err := s.db.WithContext(ctx).Where("active = ?", true).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *gormStore) CreateTopicProfile(ctx context.Context, p *model.TopicProfile) error {
	return s.db.WithContext(ctx).Create(p).Error
}

func (s *gormStore) TopicProfile(ctx context.Context, id int64) (*model.TopicProfile, error) {
	var p model.TopicProfile
	if err := s.db.WithContext(ctx).First(&p, id).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}

func (s *gormStore) ListTopicProfiles(ctx context.Context) ([]model.TopicProfile, error) {
	var profiles []model.TopicProfile
	err := s.db.WithContext(ctx).Order("id").Find(&profiles).Error
	return profiles, err
}

func (s *gormStore) UpdateTopicProfile(ctx context.Context, p *model.TopicProfile) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing model.TopicProfile
		if err := tx.First(&existing, p.ID).Error; err != nil {
			return translate(err)
		}
		return tx.Save(p).Error
	})
}

func (s *gormStore) DeleteTopicProfile(ctx context.Context, id int64) error {
	res := s.db.WithContext(ctx).Delete(&model.TopicProfile{}, id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *gormStore) ActivateTopicProfile(ctx context.Context, id int64) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var p model.TopicProfile
		if err := tx.First(&p, id).Error; err != nil {
			return translate(err)
		}
		if err := tx.Model(&model.TopicProfile{}).
			Where("active = ?", true).
			Update("active", false).Error; err != nil {
			return fmt.Errorf("deactivate topic profiles: %w", err)
		}
		return tx.Model(&p).Update("active", true).Error
	})
}

func (s *gormStore) ActiveTopicProfile(ctx context.Context) (*model.TopicProfile, error) {
	var p model.TopicProfile
	if err := s.db.WithContext(ctx).Where("active = ?", true).First(&p).Error; err != nil {
		return nil, translate(err)
	}
	return &p, nil
}
