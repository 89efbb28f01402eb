package model

import (
	"encoding/json"
	"time"
)

// TopicProfile is a named set of subscribe/publish topic patterns linked to
// a broker profile. SubscribeTopics is stored serialized: a JSON array,
// newline-separated, or comma-separated list (see parse.SubscribeTopics).
// The same at-most-one-active rule as BrokerProfile applies, independently.
type TopicProfile struct {
	ID              int64  `gorm:"primaryKey" json:"id"`
	Name            string `gorm:"size:128;uniqueIndex;not null" json:"name"`
	BrokerProfileID int64  `gorm:"index;not null" json:"broker_profile_id"`

	SubscribeTopics string `gorm:"type:text" json:"subscribe_topics"`
	PublishTopic    string `gorm:"size:256" json:"publish_topic"`
	DataFormat      string `gorm:"size:32" json:"data_format"`
	DeviceMapping   string `gorm:"type:text" json:"device_mapping"`

	Active    bool      `gorm:"index" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SerializeTopics stores a topic list in the canonical JSON-array form.
func SerializeTopics(topics []string) string {
	if len(topics) == 0 {
		return "[]"
	}
	b, _ := json.Marshal(topics)
	return string(b)
}
