package model

import "time"

// Device lifecycle statuses.
const (
	StatusOnline  = "online"
	StatusOffline = "offline"
)

// DeviceTypeAutoCreated marks devices provisioned from unrecognized topics.
const DeviceTypeAutoCreated = "auto-created"

// Device is a logical telemetry source identified by a unique name.
// Devices are created administratively or, when auto-provisioning is
// enabled, lazily on the first resolvable message from an unknown topic.
type Device struct {
	ID         int64  `gorm:"primaryKey" json:"id"`
	Name       string `gorm:"size:256;uniqueIndex;not null" json:"name"`
	DeviceType string `gorm:"size:128" json:"device_type"`
	Status     string `gorm:"size:16;not null;default:offline" json:"status"`
	Location   string `gorm:"size:256" json:"location"`

	BrokerProfileID *int64 `json:"broker_profile_id,omitempty"`
	TopicProfileID  *int64 `json:"topic_profile_id,omitempty"`

	LastSeen  *time.Time `json:"last_seen,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`

	// Associations
	Readings []Reading `gorm:"constraint:OnDelete:CASCADE" json:"-"`
}
