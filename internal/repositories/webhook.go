package repositories

import (
	"context"
	"errors"

	"lumepay/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WebhookRepository interface {
	GetSettings(ctx context.Context, userID string) (*models.WebhookSettings, error)
	SaveSettings(ctx context.Context, settings *models.WebhookSettings) error
	CreateDelivery(ctx context.Context, d *models.WebhookDelivery) error
	GetDelivery(ctx context.Context, id string) (*models.WebhookDelivery, error)
	ListDeliveries(ctx context.Context, userID string, limit int) ([]models.WebhookDelivery, error)
}

type webhookRepository struct {
	db *gorm.DB
}

func NewWebhookRepository(db *gorm.DB) WebhookRepository {
	return &webhookRepository{db: db}
}

func (r *webhookRepository) GetSettings(ctx context.Context, userID string) (*models.WebhookSettings, error) {
	var s models.WebhookSettings
	if err := r.db.WithContext(ctx).Where("user_id = ?", userID).First(&s).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettingsNotFound
		}
		return nil, err
	}
	return &s, nil
}

// SaveSettings upserts on user_id.
func (r *webhookRepository) SaveSettings(ctx context.Context, s *models.WebhookSettings) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user_id"}},
		DoUpdates: clause.AssignmentColumns([]string{"url", "secret", "enabled", "subscriptions", "updated_at"}),
	}).Create(s).Error
}

func (r *webhookRepository) CreateDelivery(ctx context.Context, d *models.WebhookDelivery) error {
	return r.db.WithContext(ctx).Create(d).Error
}

func (r *webhookRepository) GetDelivery(ctx context.Context, id string) (*models.WebhookDelivery, error) {
	var d models.WebhookDelivery
	if err := r.db.WithContext(ctx).First(&d, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrDeliveryNotFound
		}
		return nil, err
	}
	return &d, nil
}

func (r *webhookRepository) ListDeliveries(ctx context.Context, userID string, limit int) ([]models.WebhookDelivery, error) {
	var out []models.WebhookDelivery
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Limit(limit).
		Find(&out).Error
	return out, err
}
