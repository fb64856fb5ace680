package payment

import (
	"time"

	"lumepay/internal/models"
	"lumepay/internal/repositories"
	"lumepay/internal/services/verification"
)

type Config struct {
	IntentTTL time.Duration
	Now       func() time.Time
}

type CreateIntentInput struct {
	Amount        float64     `json:"amount"`
	CustomerEmail string      `json:"customerEmail"`
	Metadata      models.JSON `json:"metadata"`
}

// SubmitResult is the outcome of a verified payment.
type SubmitResult struct {
	Success             bool                  `json:"success"`
	Payment             *models.Payment       `json:"payment"`
	VerificationDetails *verification.Details `json:"verificationDetails"`
}

type ListQuery struct {
	Status models.IntentStatus
	Offset int
	Limit  int
}

// Stats is the dashboard summary for one merchant.
type Stats struct {
	Intents          repositories.IntentCounts `json:"intents"`
	RemainingCredits int                       `json:"remainingCredits"`
	HasAPIKey        bool                      `json:"hasApiKey"`
	BankConfigured   bool                      `json:"bankConfigured"`
}
