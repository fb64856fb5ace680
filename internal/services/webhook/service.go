package webhook

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "lumepay/internal/errors"
	"lumepay/internal/models"
	"lumepay/internal/repositories"
	"lumepay/internal/utils"
	"lumepay/internal/validation"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"gorm.io/datatypes"
)

// DeliveryHistoryLimit caps ListDeliveries.
const DeliveryHistoryLimit = 50

// ConfigInput is a partial settings update. Nil fields keep their value.
type ConfigInput struct {
	URL           *string  `json:"url"`
	Enabled       *bool    `json:"enabled"`
	Subscriptions []string `json:"subscriptions"`
}

// PaymentLookup loads the payment a delivery refers to.
type PaymentLookup interface {
	GetByID(ctx context.Context, id string) (*models.Payment, error)
}

// Sender is the part of the dispatcher the service drives.
type Sender interface {
	Notifier
	Send(ctx context.Context, settings *models.WebhookSettings, payment *models.Payment, attempt int) (*models.WebhookDelivery, error)
}

type Service interface {
	GetConfig(ctx context.Context, userID string) (*models.WebhookSettings, error)
	UpdateConfig(ctx context.Context, userID string, in ConfigInput) (*models.WebhookSettings, error)
	SendTest(ctx context.Context, userID string) (*models.WebhookDelivery, error)
	ListDeliveries(ctx context.Context, userID string) ([]models.WebhookDelivery, error)
	RetryDelivery(ctx context.Context, userID, deliveryID string) error
}

type service struct {
	repo     repositories.WebhookRepository
	payments PaymentLookup
	sender   Sender
	now      func() time.Time
}

func NewService(repo repositories.WebhookRepository, payments PaymentLookup, sender Sender, now func() time.Time) Service {
	if now == nil {
		now = time.Now
	}
	return &service{repo: repo, payments: payments, sender: sender, now: now}
}

func (s *service) GetConfig(ctx context.Context, userID string) (*models.WebhookSettings, error) {
	settings, err := s.repo.GetSettings(ctx, userID)
	if errors.Is(err, repositories.ErrSettingsNotFound) {
		return models.DefaultWebhookSettings(userID), nil
	}
	return settings, err
}

func (s *service) UpdateConfig(ctx context.Context, userID string, in ConfigInput) (*models.WebhookSettings, error) {
	if in.Subscriptions != nil {
		for _, sub := range in.Subscriptions {
			if !models.ValidWebhookEvent(sub) {
				return nil, apperrors.ErrInvalidInput.WithDetail(
					"Invalid subscription. Available events: payment.completed, payment.failed")
			}
		}
	}

	var newURL string
	if in.URL != nil {
		newURL = strings.TrimSpace(*in.URL)
		if newURL != "" {
			v := validation.New()
			v.HTTPURL("url", newURL)
			if !v.Valid() {
				return nil, apperrors.ErrInvalidInput.WithDetail("Invalid webhook URL")
			}
		}
	}

	settings, err := s.GetConfig(ctx, userID)
	if err != nil {
		return nil, err
	}

	urlChanged := newURL != "" && (settings.URL == nil || *settings.URL != newURL)
	if urlChanged {
		settings.URL = &newURL
	}
	if urlChanged || settings.Secret == nil || *settings.Secret == "" {
		secret, err := utils.GenerateSecret()
		if err != nil {
			return nil, fmt.Errorf("generate webhook secret: %w", err)
		}
		settings.Secret = &secret
	}
	if in.Enabled != nil {
		settings.Enabled = *in.Enabled
	}
	if in.Subscriptions != nil {
		settings.Subscriptions = pq.StringArray(dedupe(in.Subscriptions))
	}
	settings.UpdatedAt = s.now()

	if err := s.repo.SaveSettings(ctx, settings); err != nil {
		return nil, fmt.Errorf("save webhook settings: %w", err)
	}
	return settings, nil
}

// SendTest delivers a synthetic completed payment once, synchronously. The
// payment is never persisted but the attempt is logged.
func (s *service) SendTest(ctx context.Context, userID string) (*models.WebhookDelivery, error) {
	settings, err := s.repo.GetSettings(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrSettingsNotFound) {
			return nil, apperrors.ErrWebhookNotConfigured
		}
		return nil, err
	}
	if !settings.Enabled || settings.URL == nil || settings.Secret == nil {
		return nil, apperrors.ErrWebhookNotConfigured
	}

	now := s.now()
	payment := &models.Payment{
		ID:            "test_" + uuid.NewString(),
		UserID:        userID,
		TransactionID: "test_transaction",
		Amount:        100,
		Status:        models.PaymentCompleted,
		CreatedAt:     now,
	}
	payment.VerificationData = datatypes.NewJSONType(models.VerificationData{
		Payer:    "Test Payer",
		Amount:   100,
		Date:     now.UTC().Format(time.RFC3339),
		Receiver: "Test Receiver",
	})

	delivery, err := s.sender.Send(ctx, settings, payment, 0)
	if err != nil {
		return nil, err
	}
	if delivery.Status != models.DeliverySuccess {
		return delivery, apperrors.ErrWebhookUnreachable.WithDetail(deref(delivery.Error))
	}
	return delivery, nil
}

func (s *service) ListDeliveries(ctx context.Context, userID string) ([]models.WebhookDelivery, error) {
	return s.repo.ListDeliveries(ctx, userID, DeliveryHistoryLimit)
}

// RetryDelivery re-enters the dispatch loop for the payment behind a failed
// delivery, starting again from the first attempt.
func (s *service) RetryDelivery(ctx context.Context, userID, deliveryID string) error {
	delivery, err := s.repo.GetDelivery(ctx, deliveryID)
	if err != nil {
		if errors.Is(err, repositories.ErrDeliveryNotFound) {
			return apperrors.ErrDeliveryNotFound
		}
		return err
	}
	if delivery.UserID != userID {
		return apperrors.ErrForbidden
	}
	if delivery.Status == models.DeliverySuccess {
		return apperrors.ErrDeliverySucceeded
	}

	settings, err := s.repo.GetSettings(ctx, userID)
	if err != nil && !errors.Is(err, repositories.ErrSettingsNotFound) {
		return err
	}
	if settings == nil || !settings.Enabled || settings.URL == nil || *settings.URL == "" {
		return apperrors.ErrWebhookNotConfigured
	}

	payment, err := s.payments.GetByID(ctx, delivery.PaymentID)
	if err != nil {
		if errors.Is(err, repositories.ErrPaymentNotFound) {
			return apperrors.ErrDeliveryNotFound.WithDetail("the payment for this delivery no longer exists")
		}
		return err
	}

	s.sender.SendWebhook(userID, *payment)
	return nil
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
