package model

import "time"

// Reading is the latest known value of one metric for one device. There is
// at most one row per (device, metric) pair: new arrivals overwrite
// value/unit/timestamp in place, so the table is a latest-value cache, not
// a log.
type Reading struct {
	ID       int64  `gorm:"primaryKey" json:"id"`
	DeviceID int64  `gorm:"uniqueIndex:idx_device_metric;not null" json:"device_id"`
	Metric   string `gorm:"size:128;uniqueIndex:idx_device_metric;not null" json:"metric"`

	Value     float64   `json:"value"`
	Unit      string    `gorm:"size:16" json:"unit"`
	Timestamp time.Time `json:"timestamp"`

	MinValue    float64 `json:"min_value"`
	MaxValue    float64 `json:"max_value"`
	AlertStatus string  `gorm:"size:16;not null;default:normal" json:"alert_status"`
}
