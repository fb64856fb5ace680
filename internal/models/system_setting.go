package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// SettingWaitlistEnabled is the key of the waitlist toggle.
const SettingWaitlistEnabled = "waitlist_enabled"

// SystemSetting is an admin-managed key/value pair.
type SystemSetting struct {
	Key       string    `gorm:"primaryKey" json:"key"`
	Value     JSON      `gorm:"type:jsonb;not null" json:"value"`
	UpdatedBy *string   `gorm:"type:uuid" json:"updatedBy"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// WaitlistConfig is the decoded value of SettingWaitlistEnabled.
type WaitlistConfig struct {
	Enabled bool   `json:"enabled"`
	Message string `json:"message"`
}

// DefaultWaitlistConfig applies when the setting was never written.
var DefaultWaitlistConfig = WaitlistConfig{
	Enabled: true,
	Message: "We're currently in private beta. Join the waitlist to get early access.",
}

// WaitlistConfigFrom decodes a stored setting value, falling back to the
// defaults for missing fields.
func WaitlistConfigFrom(v JSON) WaitlistConfig {
	cfg := DefaultWaitlistConfig
	if v == nil {
		return cfg
	}
	if enabled, ok := v["enabled"].(bool); ok {
		cfg.Enabled = enabled
	}
	if msg, ok := v["message"].(string); ok {
		cfg.Message = msg
	}
	return cfg
}

func (w WaitlistConfig) JSON() JSON {
	return JSON{"enabled": w.Enabled, "message": w.Message}
}

// WaitlistEntry is a prospective merchant waiting for access.
type WaitlistEntry struct {
	ID        string    `gorm:"type:uuid;primaryKey" json:"id"`
	Email     string    `gorm:"uniqueIndex;not null" json:"email"`
	Name      string    `json:"name"`
	Company   string    `json:"company"`
	CreatedAt time.Time `json:"createdAt"`
}

func (w *WaitlistEntry) BeforeCreate(tx *gorm.DB) error {
	if w.ID == "" {
		w.ID = uuid.NewString()
	}
	return nil
}
