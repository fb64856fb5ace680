package repositories

import (
	"context"
	"errors"
	"time"

	"lumepay/internal/models"

	"gorm.io/gorm"
)

// Completion is the success path of a payment submission, applied as one
// unit: the intent leaves pending, one credit is spent and the completed
// payment is written.
type Completion struct {
	IntentID string
	KeyID    string
	Payment  *models.Payment
	Now      time.Time
}

type PaymentRepository interface {
	// Complete applies c atomically. It returns ErrIntentNotPending,
	// ErrCreditsExhausted or ErrDuplicateTransaction when a guard fails, in
	// which case nothing was written.
	Complete(ctx context.Context, c Completion) error
	CreateFailed(ctx context.Context, payment *models.Payment) error
	TransactionUsed(ctx context.Context, transactionID string) (bool, error)
	GetByID(ctx context.Context, id string) (*models.Payment, error)
	GetCompletedByIntent(ctx context.Context, intentID string) (*models.Payment, error)
	CountSince(ctx context.Context, userID string, since time.Time) (int64, error)
}

type paymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Complete(ctx context.Context, c Completion) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Compare-and-set on status; the row lock serializes racing submits.
		res := tx.Model(&models.Intent{}).
			Where("id = ? AND status = ? AND expires_at >= ?", c.IntentID, models.IntentPending, c.Now).
			Updates(map[string]interface{}{
				"status":     models.IntentCompleted,
				"updated_at": c.Now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrIntentNotPending
		}

		res = tx.Model(&models.APIKey{}).
			Where("id = ? AND enabled = ? AND remaining_credits > 0", c.KeyID, true).
			Updates(map[string]interface{}{
				"remaining_credits": gorm.Expr("remaining_credits - 1"),
				"last_used_at":      c.Now,
			})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return ErrCreditsExhausted
		}

		c.Payment.Status = models.PaymentCompleted
		if err := tx.Create(c.Payment).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return ErrDuplicateTransaction
			}
			return err
		}
		return nil
	})
}

func (r *paymentRepository) CreateFailed(ctx context.Context, payment *models.Payment) error {
	payment.Status = models.PaymentFailed
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *paymentRepository) TransactionUsed(ctx context.Context, transactionID string) (bool, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("transaction_id = ? AND status = ?", transactionID, models.PaymentCompleted).
		Count(&n).Error
	return n > 0, err
}

func (r *paymentRepository) GetByID(ctx context.Context, id string) (*models.Payment, error) {
	var p models.Payment
	if err := r.db.WithContext(ctx).First(&p, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *paymentRepository) GetCompletedByIntent(ctx context.Context, intentID string) (*models.Payment, error) {
	var p models.Payment
	err := r.db.WithContext(ctx).
		Where("intent_id = ? AND status = ?", intentID, models.PaymentCompleted).
		First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

// CountSince counts every payment row, completed or failed, the merchant
// created at or after since. It backs the trailing rate-limit window.
func (r *paymentRepository) CountSince(ctx context.Context, userID string, since time.Time) (int64, error) {
	var n int64
	err := r.db.WithContext(ctx).Model(&models.Payment{}).
		Where("user_id = ? AND created_at >= ?", userID, since).
		Count(&n).Error
	return n, err
}
