package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/gorm"
)

// WebhookEvent names a payment outcome a merchant can subscribe to.
type WebhookEvent string

const (
	EventPaymentCompleted WebhookEvent = "payment.completed"
	EventPaymentFailed    WebhookEvent = "payment.failed"
)

// AllWebhookEvents is the closed set of subscribable events.
var AllWebhookEvents = []WebhookEvent{EventPaymentCompleted, EventPaymentFailed}

// ValidWebhookEvent reports whether name is one of AllWebhookEvents.
func ValidWebhookEvent(name string) bool {
	for _, e := range AllWebhookEvents {
		if string(e) == name {
			return true
		}
	}
	return false
}

// EventFor picks the event a payment outcome maps to.
func EventFor(p *Payment) WebhookEvent {
	if p.Status == PaymentFailed {
		return EventPaymentFailed
	}
	return EventPaymentCompleted
}

// WebhookSettings is the per-merchant delivery configuration.
type WebhookSettings struct {
	ID            uint           `gorm:"primaryKey" json:"-"`
	UserID        string         `gorm:"type:uuid;uniqueIndex;not null" json:"-"`
	URL           *string        `json:"url"`
	Secret        *string        `json:"secret"`
	Enabled       bool           `gorm:"not null;default:false" json:"enabled"`
	Subscriptions pq.StringArray `gorm:"type:text[]" json:"subscriptions"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
}

// DefaultWebhookSettings is what an unconfigured merchant sees.
func DefaultWebhookSettings(userID string) *WebhookSettings {
	subs := make(pq.StringArray, 0, len(AllWebhookEvents))
	for _, e := range AllWebhookEvents {
		subs = append(subs, string(e))
	}
	return &WebhookSettings{UserID: userID, Subscriptions: subs}
}

// Subscribed reports whether the event is in the subscription list.
func (w *WebhookSettings) Subscribed(event WebhookEvent) bool {
	for _, s := range w.Subscriptions {
		if s == string(event) {
			return true
		}
	}
	return false
}

// Deliverable reports whether an event may be sent at all.
func (w *WebhookSettings) Deliverable(event WebhookEvent) bool {
	return w.Enabled &&
		w.URL != nil && *w.URL != "" &&
		w.Secret != nil && *w.Secret != "" &&
		w.Subscribed(event)
}

type DeliveryStatus string

const (
	DeliverySuccess DeliveryStatus = "success"
	DeliveryFailed  DeliveryStatus = "failed"
)

// WebhookDelivery is one delivery attempt. Rows are append-only.
type WebhookDelivery struct {
	ID         string         `gorm:"type:uuid;primaryKey" json:"id"`
	UserID     string         `gorm:"type:uuid;index:idx_deliveries_user_created,priority:1;not null" json:"userId"`
	PaymentID  string         `gorm:"not null" json:"paymentId"`
	Event      WebhookEvent   `gorm:"type:varchar(32);not null" json:"event"`
	Status     DeliveryStatus `gorm:"type:varchar(16);not null" json:"status"`
	StatusCode *int           `json:"statusCode"`
	Error      *string        `json:"error"`
	Attempts   int            `gorm:"not null" json:"attempts"`
	CreatedAt  time.Time      `gorm:"index:idx_deliveries_user_created,priority:2" json:"createdAt"`
}

func (d *WebhookDelivery) BeforeCreate(tx *gorm.DB) error {
	if d.ID == "" {
		d.ID = uuid.NewString()
	}
	return nil
}
