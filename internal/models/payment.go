package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentCompleted PaymentStatus = "completed"
	PaymentFailed    PaymentStatus = "failed"
)

// VerificationData echoes what the verification service confirmed.
type VerificationData struct {
	Payer    string  `json:"payer"`
	Amount   float64 `json:"amount"`
	Date     string  `json:"date"`
	Receiver string  `json:"receiver"`
}

// Payment records a bank transaction claimed against an intent. A transaction
// id can back at most one completed payment; failed attempts may repeat it.
type Payment struct {
	ID               string                               `gorm:"type:uuid;primaryKey" json:"id"`
	UserID           string                               `gorm:"type:uuid;index:idx_payments_user_created,priority:1;not null" json:"userId"`
	IntentID         string                               `gorm:"type:uuid;index;not null" json:"intentId"`
	TransactionID    string                               `gorm:"not null;index:idx_payments_completed_txn,unique,where:status = 'completed'" json:"transactionId"`
	Amount           float64                              `gorm:"type:decimal(12,2);not null" json:"amount"`
	Status           PaymentStatus                        `gorm:"type:varchar(16);not null" json:"status"`
	VerificationData datatypes.JSONType[VerificationData] `gorm:"type:jsonb" json:"verificationData"`
	ErrorReason      string                               `json:"errorReason,omitempty"`
	CreatedAt        time.Time                            `gorm:"index:idx_payments_user_created,priority:2" json:"createdAt"`
	UpdatedAt        time.Time                            `json:"updatedAt"`
}

func (p *Payment) BeforeCreate(tx *gorm.DB) error {
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	return nil
}

// Verification returns the decoded verification details.
func (p *Payment) Verification() VerificationData {
	return p.VerificationData.Data()
}
