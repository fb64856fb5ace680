package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// APIKey authorizes server-to-server calls for one merchant. Only the
// SHA-256 hash of the secret is stored.
type APIKey struct {
	ID                  string     `gorm:"type:uuid;primaryKey" json:"id"`
	UserID              string     `gorm:"type:uuid;index;not null" json:"userId"`
	Name                string     `gorm:"not null" json:"name"`
	KeyHash             string     `gorm:"uniqueIndex;not null" json:"-"`
	Prefix              string     `gorm:"not null" json:"prefix"`
	RemainingCredits    int        `gorm:"not null;default:0;check:remaining_credits >= 0" json:"remainingCredits"`
	Enabled             bool       `gorm:"not null;default:true" json:"enabled"`
	RateLimitEnabled    bool       `gorm:"not null;default:true" json:"rateLimitEnabled"`
	RateLimitTimeWindow int64      `gorm:"not null" json:"rateLimitTimeWindow"` // milliseconds
	RateLimitMax        int        `gorm:"not null" json:"rateLimitMax"`
	LastUsedAt          *time.Time `json:"lastUsedAt"`
	CreatedAt           time.Time  `json:"createdAt"`
	UpdatedAt           time.Time  `json:"updatedAt"`

	User User `gorm:"foreignKey:UserID" json:"-"`
}

// Window is the trailing rate-limit window.
func (k *APIKey) Window() time.Duration {
	return time.Duration(k.RateLimitTimeWindow) * time.Millisecond
}

func (k *APIKey) BeforeCreate(tx *gorm.DB) error {
	if k.ID == "" {
		k.ID = uuid.NewString()
	}
	return nil
}
