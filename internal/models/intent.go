package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type IntentStatus string

const (
	IntentPending IntentStatus = "pending"
	// IntentProcessing is advisory only; the engine never persists it.
	IntentProcessing IntentStatus = "processing"
	IntentCompleted  IntentStatus = "completed"
	IntentFailed     IntentStatus = "failed"
	// IntentExpired is reported for pending intents past ExpiresAt. It is
	// derived on read and never written.
	IntentExpired IntentStatus = "expired"
)

// DefaultIntentTTL is how long a customer has to complete the transfer.
const DefaultIntentTTL = 30 * time.Minute

// Intent is a merchant-declared expectation of an incoming transfer.
type Intent struct {
	ID            string       `gorm:"type:uuid;primaryKey" json:"id"`
	UserID        string       `gorm:"type:uuid;index;not null" json:"userId"`
	Amount        float64      `gorm:"type:decimal(12,2);not null" json:"amount"`
	CustomerEmail string       `json:"customerEmail"`
	Metadata      JSON         `gorm:"type:jsonb" json:"metadata"`
	Status        IntentStatus `gorm:"type:varchar(16);index;not null;default:'pending'" json:"status"`
	ExpiresAt     time.Time    `gorm:"not null" json:"expiresAt"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
}

func (i *Intent) BeforeCreate(tx *gorm.DB) error {
	if i.ID == "" {
		i.ID = uuid.NewString()
	}
	return nil
}

// IsExpired reports whether a still-pending intent ran past its deadline.
func (i *Intent) IsExpired(now time.Time) bool {
	return i.Status == IntentPending && i.ExpiresAt.Before(now)
}

// EffectiveStatus is the status callers should see at time now.
func (i *Intent) EffectiveStatus(now time.Time) IntentStatus {
	if i.IsExpired(now) {
		return IntentExpired
	}
	return i.Status
}

// PublicIntent is the customer-facing projection of an intent.
type PublicIntent struct {
	ID            string       `json:"id"`
	Amount        float64      `json:"amount"`
	Status        IntentStatus `json:"status"`
	CustomerEmail string       `json:"customerEmail"`
	CreatedAt     time.Time    `json:"createdAt"`
	ExpiresAt     time.Time    `json:"expiresAt"`
}

func (i *Intent) Public(now time.Time) PublicIntent {
	return PublicIntent{
		ID:            i.ID,
		Amount:        i.Amount,
		Status:        i.EffectiveStatus(now),
		CustomerEmail: i.CustomerEmail,
		CreatedAt:     i.CreatedAt,
		ExpiresAt:     i.ExpiresAt,
	}
}

// IntentDetail is the merchant projection: the full intent plus its
// completed payment, if any.
type IntentDetail struct {
	ID            string       `json:"id"`
	UserID        string       `json:"userId"`
	Amount        float64      `json:"amount"`
	CustomerEmail string       `json:"customerEmail"`
	Metadata      JSON         `json:"metadata"`
	Status        IntentStatus `json:"status"`
	ExpiresAt     time.Time    `json:"expiresAt"`
	CreatedAt     time.Time    `json:"createdAt"`
	UpdatedAt     time.Time    `json:"updatedAt"`
	Payment       *Payment     `json:"payment"`
}

func (i *Intent) Detail(now time.Time, payment *Payment) IntentDetail {
	return IntentDetail{
		ID:            i.ID,
		UserID:        i.UserID,
		Amount:        i.Amount,
		CustomerEmail: i.CustomerEmail,
		Metadata:      i.Metadata,
		Status:        i.EffectiveStatus(now),
		ExpiresAt:     i.ExpiresAt,
		CreatedAt:     i.CreatedAt,
		UpdatedAt:     i.UpdatedAt,
		Payment:       payment,
	}
}
