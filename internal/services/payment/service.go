package payment

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	apperrors "lumepay/internal/errors"
	"lumepay/internal/models"
	"lumepay/internal/repositories"
	"lumepay/internal/services/apikey"
	"lumepay/internal/services/verification"
	"lumepay/internal/validation"

	"github.com/rs/zerolog"
	"gorm.io/datatypes"
)

const (
	opCreateIntent  = "create_intent"
	opSubmitPayment = "submit_payment"
)

type service struct {
	deps    Dependencies
	config  Config
	metrics MetricsCollector
	log     zerolog.Logger
}

// NewService creates a new payment service
func NewService(deps Dependencies, config Config, metrics MetricsCollector, log zerolog.Logger) Service {
	if deps.Intents == nil {
		panic("intent store is required")
	}
	if deps.Payments == nil {
		panic("payment store is required")
	}
	if deps.Verifier == nil {
		panic("verifier is required")
	}
	if deps.Notifier == nil {
		panic("notifier is required")
	}
	if config.IntentTTL == 0 {
		config.IntentTTL = models.DefaultIntentTTL
	}
	if config.Now == nil {
		config.Now = time.Now
	}
	if metrics == nil {
		metrics = &NoopMetricsCollector{}
	}
	return &service{deps: deps, config: config, metrics: metrics, log: log}
}

func (s *service) CreateIntent(ctx context.Context, merchant *models.User, in CreateIntentInput) (*models.Intent, error) {
	start := time.Now()
	intent, err := s.createIntent(ctx, merchant, in)
	s.record(opCreateIntent, start, err)
	return intent, err
}

func (s *service) createIntent(ctx context.Context, merchant *models.User, in CreateIntentInput) (*models.Intent, error) {
	amount := math.Round(in.Amount*100) / 100
	if math.IsNaN(in.Amount) || math.IsInf(in.Amount, 0) || amount <= 0 {
		return nil, apperrors.ErrInvalidAmount
	}

	if _, err := merchant.Bank(); err != nil {
		return nil, apperrors.ErrBankNotConfigured.WithDetail(err.Error())
	}

	email := strings.TrimSpace(in.CustomerEmail)
	v := validation.New()
	v.OptionalEmail("customerEmail", email)
	if !v.Valid() {
		return nil, apperrors.ErrInvalidInput.WithDetail(v.Error())
	}

	now := s.config.Now()
	intent := &models.Intent{
		UserID:        merchant.ID,
		Amount:        amount,
		CustomerEmail: email,
		Metadata:      in.Metadata,
		Status:        models.IntentPending,
		ExpiresAt:     now.Add(s.config.IntentTTL),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.deps.Intents.Create(ctx, intent); err != nil {
		return nil, fmt.Errorf("create intent: %w", err)
	}

	s.log.Info().
		Str("intent_id", intent.ID).
		Str("merchant_id", merchant.ID).
		Float64("amount", amount).
		Msg("intent created")
	return intent, nil
}

func (s *service) SubmitPayment(ctx context.Context, caller *apikey.Principal, intentID, transactionID string) (*SubmitResult, error) {
	start := time.Now()
	res, err := s.submitPayment(ctx, caller, intentID, transactionID)
	s.record(opSubmitPayment, start, err)
	return res, err
}

func (s *service) submitPayment(ctx context.Context, caller *apikey.Principal, intentID, transactionID string) (*SubmitResult, error) {
	now := s.config.Now()
	merchant := caller.Merchant

	// Preconditions, first failure wins. None of them write.
	transactionID = strings.TrimSpace(transactionID)
	if transactionID == "" {
		return nil, apperrors.ErrMissingTransactionID
	}

	used, err := s.deps.Payments.TransactionUsed(ctx, transactionID)
	if err != nil {
		return nil, fmt.Errorf("check transaction: %w", err)
	}
	if used {
		return nil, apperrors.ErrDuplicateTransaction
	}

	intent, err := s.deps.Intents.GetByID(ctx, intentID)
	if err != nil {
		if errors.Is(err, repositories.ErrIntentNotFound) {
			return nil, apperrors.ErrIntentNotFound
		}
		return nil, fmt.Errorf("load intent: %w", err)
	}
	if intent.UserID != merchant.ID {
		return nil, apperrors.ErrForbidden
	}
	if intent.Status != models.IntentPending {
		return nil, apperrors.ErrIntentNotPending
	}
	if intent.ExpiresAt.Before(now) {
		return nil, apperrors.ErrIntentExpired
	}

	bank, err := merchant.Bank()
	if err != nil {
		return nil, apperrors.ErrBankNotConfigured.WithDetail(err.Error())
	}

	result, err := s.deps.Verifier.Verify(ctx, verification.Request{
		TransactionID:           transactionID,
		ExpectedReceiverName:    merchant.Name,
		ExpectedReceiverAccount: bank.Account,
		ExpectedAmount:          intent.Amount,
		IntentCreatedAt:         intent.CreatedAt,
	})
	if err != nil {
		s.log.Error().Err(err).Str("intent_id", intent.ID).Msg("verification call failed")
		return nil, apperrors.ErrVerificationUnavailable
	}

	if !result.Success {
		s.recordFailure(ctx, intent, transactionID, result.Message, now)
		return nil, apperrors.ErrVerificationFailed.WithDetail(result.Message)
	}

	details := result.Details
	payment := &models.Payment{
		UserID:        intent.UserID,
		IntentID:      intent.ID,
		TransactionID: transactionID,
		Amount:        float64(details.Amount),
		Status:        models.PaymentCompleted,
		VerificationData: datatypes.NewJSONType(models.VerificationData{
			Payer:    details.Payer,
			Amount:   float64(details.Amount),
			Date:     details.Date,
			Receiver: details.Receiver,
		}),
		CreatedAt: now,
		UpdatedAt: now,
	}

	err = s.deps.Payments.Complete(ctx, repositories.Completion{
		IntentID: intent.ID,
		KeyID:    caller.Key.ID,
		Payment:  payment,
		Now:      now,
	})
	if err != nil {
		return nil, s.completionError(ctx, intent.ID, now, err)
	}

	caller.Key.RemainingCredits--
	caller.Key.LastUsedAt = &now

	s.log.Info().
		Str("intent_id", intent.ID).
		Str("payment_id", payment.ID).
		Str("transaction_id", transactionID).
		Float64("amount", payment.Amount).
		Msg("payment completed")

	s.deps.Notifier.SendWebhook(intent.UserID, *payment)

	return &SubmitResult{Success: true, Payment: payment, VerificationDetails: details}, nil
}

// completionError maps a failed completion guard to the caller-facing error.
// A lost status race is re-read so an intent that expired in the meantime is
// reported as expired.
func (s *service) completionError(ctx context.Context, intentID string, now time.Time, err error) error {
	switch {
	case errors.Is(err, repositories.ErrIntentNotPending):
		current, getErr := s.deps.Intents.GetByID(ctx, intentID)
		if getErr == nil && current.IsExpired(now) {
			return apperrors.ErrIntentExpired
		}
		return apperrors.ErrIntentNotPending
	case errors.Is(err, repositories.ErrCreditsExhausted):
		return apperrors.ErrInsufficientCredits
	case errors.Is(err, repositories.ErrDuplicateTransaction):
		return apperrors.ErrDuplicateTransaction
	default:
		return fmt.Errorf("complete payment: %w", err)
	}
}

// recordFailure keeps the rejected attempt for the merchant's history and
// notifies subscribers. The intent stays pending.
func (s *service) recordFailure(ctx context.Context, intent *models.Intent, transactionID, reason string, now time.Time) {
	failed := &models.Payment{
		UserID:        intent.UserID,
		IntentID:      intent.ID,
		TransactionID: transactionID,
		Amount:        intent.Amount,
		Status:        models.PaymentFailed,
		ErrorReason:   reason,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if err := s.deps.Payments.CreateFailed(ctx, failed); err != nil {
		s.log.Error().Err(err).Str("intent_id", intent.ID).Msg("failed to record rejected payment")
		return
	}

	s.log.Info().
		Str("intent_id", intent.ID).
		Str("transaction_id", transactionID).
		Str("reason", reason).
		Msg("payment verification rejected")

	s.deps.Notifier.SendWebhook(intent.UserID, *failed)
}

func (s *service) GetPublicIntent(ctx context.Context, intentID string) (*models.PublicIntent, error) {
	intent, err := s.deps.Intents.GetByID(ctx, intentID)
	if err != nil {
		if errors.Is(err, repositories.ErrIntentNotFound) {
			return nil, apperrors.ErrIntentNotFound
		}
		return nil, err
	}
	pub := intent.Public(s.config.Now())
	return &pub, nil
}

func (s *service) GetIntent(ctx context.Context, merchantID, intentID string) (*models.IntentDetail, error) {
	intent, err := s.deps.Intents.GetByID(ctx, intentID)
	if err != nil {
		if errors.Is(err, repositories.ErrIntentNotFound) {
			return nil, apperrors.ErrIntentNotFound
		}
		return nil, err
	}
	if intent.UserID != merchantID {
		return nil, apperrors.ErrForbidden
	}

	var payment *models.Payment
	if intent.Status == models.IntentCompleted {
		payment, err = s.deps.Payments.GetCompletedByIntent(ctx, intent.ID)
		if err != nil && !errors.Is(err, repositories.ErrPaymentNotFound) {
			return nil, err
		}
	}

	detail := intent.Detail(s.config.Now(), payment)
	return &detail, nil
}

func (s *service) ListIntents(ctx context.Context, merchantID string, q ListQuery) ([]models.PublicIntent, int64, error) {
	if q.Status != "" && !validStatus(q.Status) {
		return nil, 0, apperrors.ErrInvalidInput.WithDetail("unknown status " + string(q.Status))
	}

	now := s.config.Now()
	intents, total, err := s.deps.Intents.List(ctx, repositories.IntentFilter{
		UserID: merchantID,
		Status: q.Status,
		Now:    now,
		Offset: q.Offset,
		Limit:  q.Limit,
	})
	if err != nil {
		return nil, 0, err
	}

	out := make([]models.PublicIntent, 0, len(intents))
	for i := range intents {
		out = append(out, intents[i].Public(now))
	}
	return out, total, nil
}

func (s *service) Stats(ctx context.Context, merchant *models.User) (*Stats, error) {
	counts, err := s.deps.Intents.Counts(ctx, merchant.ID, s.config.Now())
	if err != nil {
		return nil, err
	}
	_, bankErr := merchant.Bank()
	stats := &Stats{Intents: counts, BankConfigured: bankErr == nil}

	if s.deps.Keys != nil {
		keys, err := s.deps.Keys.ListByUser(ctx, merchant.ID)
		if err != nil {
			return nil, err
		}
		for _, k := range keys {
			stats.RemainingCredits += k.RemainingCredits
		}
		stats.HasAPIKey = len(keys) > 0
	}
	return stats, nil
}

func (s *service) record(op string, start time.Time, err error) {
	s.metrics.RecordOperationDuration(op, time.Since(start))
	result := "ok"
	if err != nil {
		result = "internal"
		if de, ok := apperrors.As(err); ok {
			result = de.Code
		}
	}
	s.metrics.RecordOperationResult(op, result)
}

func validStatus(st models.IntentStatus) bool {
	switch st {
	case models.IntentPending, models.IntentProcessing, models.IntentCompleted, models.IntentFailed, models.IntentExpired:
		return true
	}
	return false
}
