package webhook

import (
	"encoding/json"
	"time"

	"lumepay/internal/models"
)

// timestampLayout is ISO-8601 with milliseconds, always in UTC.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

type Payload struct {
	Event     models.WebhookEvent `json:"event"`
	Data      PayloadData         `json:"data"`
	Timestamp string              `json:"timestamp"`
}

type PayloadData struct {
	PaymentID        string                   `json:"paymentId"`
	Amount           float64                  `json:"amount"`
	Status           models.PaymentStatus     `json:"status"`
	TransactionID    string                   `json:"transactionId"`
	VerificationData *models.VerificationData `json:"verificationData"`
	CreatedAt        time.Time                `json:"createdAt"`
	ErrorReason      string                   `json:"errorReason,omitempty"`
}

// BuildPayload renders the notification for a payment at time now.
func BuildPayload(p *models.Payment, now time.Time) Payload {
	data := PayloadData{
		PaymentID:     p.ID,
		Amount:        p.Amount,
		Status:        p.Status,
		TransactionID: p.TransactionID,
		CreatedAt:     p.CreatedAt,
	}
	if p.Status == models.PaymentCompleted {
		v := p.Verification()
		data.VerificationData = &v
	}
	if p.Status == models.PaymentFailed {
		data.ErrorReason = p.ErrorReason
	}
	return Payload{
		Event:     models.EventFor(p),
		Data:      data,
		Timestamp: now.UTC().Format(timestampLayout),
	}
}

// Encode serializes the payload once; the result is both signed and sent.
func (p Payload) Encode() ([]byte, error) {
	return json.Marshal(p)
}
