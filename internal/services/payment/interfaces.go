package payment

import (
	"context"
	"time"

	"lumepay/internal/models"
	"lumepay/internal/repositories"
	"lumepay/internal/services/apikey"
	"lumepay/internal/services/verification"
	"lumepay/internal/services/webhook"
)

// Service is the intent and payment state machine.
type Service interface {
	// CreateIntent records a pending expectation of a transfer. It is free:
	// credits are only spent when a payment completes.
	CreateIntent(ctx context.Context, merchant *models.User, in CreateIntentInput) (*models.Intent, error)
	// SubmitPayment verifies a bank transaction against an intent and, on
	// success, completes the intent and spends one credit of the caller's key.
	SubmitPayment(ctx context.Context, caller *apikey.Principal, intentID, transactionID string) (*SubmitResult, error)

	GetPublicIntent(ctx context.Context, intentID string) (*models.PublicIntent, error)
	GetIntent(ctx context.Context, merchantID, intentID string) (*models.IntentDetail, error)
	ListIntents(ctx context.Context, merchantID string, q ListQuery) ([]models.PublicIntent, int64, error)
	Stats(ctx context.Context, merchant *models.User) (*Stats, error)
}

// IntentStore persists intents.
type IntentStore interface {
	Create(ctx context.Context, intent *models.Intent) error
	GetByID(ctx context.Context, id string) (*models.Intent, error)
	List(ctx context.Context, f repositories.IntentFilter) ([]models.Intent, int64, error)
	Counts(ctx context.Context, userID string, now time.Time) (repositories.IntentCounts, error)
}

// PaymentStore persists payments and applies the completion unit.
type PaymentStore interface {
	Complete(ctx context.Context, c repositories.Completion) error
	CreateFailed(ctx context.Context, payment *models.Payment) error
	TransactionUsed(ctx context.Context, transactionID string) (bool, error)
	GetCompletedByIntent(ctx context.Context, intentID string) (*models.Payment, error)
}

// KeyLister reads a merchant's keys for dashboard stats.
type KeyLister interface {
	ListByUser(ctx context.Context, userID string) ([]models.APIKey, error)
}

// Dependencies bundles the collaborators of the engine.
type Dependencies struct {
	Intents  IntentStore
	Payments PaymentStore
	Keys     KeyLister
	Verifier verification.Verifier
	Notifier webhook.Notifier
}
