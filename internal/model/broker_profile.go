package model

import "time"

// BrokerProfile is a named connection configuration for the MQTT broker.
// At most one profile is active at any time; the ingestion session reads
// the active profile when it (re)connects.
type BrokerProfile struct {
	ID       int64  `gorm:"primaryKey" json:"id"`
	Name     string `gorm:"size:128;uniqueIndex;not null" json:"name"`
	Host     string `gorm:"size:256;not null" json:"host"`
	Port     int    `gorm:"not null" json:"port"`
	Username string `gorm:"size:128" json:"username"`
	Password string `gorm:"size:128" json:"-"`

	ClientID         string `gorm:"size:128" json:"client_id"`
	KeepAliveSeconds int    `json:"keepalive_seconds"`
	TimeoutSeconds   int    `json:"timeout_seconds"`

	UseTLS     bool   `json:"use_tls"`
	CACertPath string `gorm:"size:512" json:"ca_cert_path"`
	CertPath   string `gorm:"size:512" json:"cert_path"`
	KeyPath    string `gorm:"size:512" json:"key_path"`

	WillTopic   string `gorm:"size:256" json:"will_topic"`
	WillPayload string `gorm:"size:256" json:"will_payload"`
	WillQOS     int    `json:"will_qos"`

	Active    bool      `gorm:"index" json:"active"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}
