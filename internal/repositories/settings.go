package repositories

import (
	"context"
	"errors"

	"lumepay/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type SettingsRepository interface {
	Get(ctx context.Context, key string) (*models.SystemSetting, error)
	Upsert(ctx context.Context, s *models.SystemSetting) error
	List(ctx context.Context) ([]models.SystemSetting, error)
}

type settingsRepository struct {
	db *gorm.DB
}

func NewSettingsRepository(db *gorm.DB) SettingsRepository {
	return &settingsRepository{db: db}
}

func (r *settingsRepository) Get(ctx context.Context, key string) (*models.SystemSetting, error) {
	var s models.SystemSetting
	if err := r.db.WithContext(ctx).First(&s, "key = ?", key).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrSettingsNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *settingsRepository) Upsert(ctx context.Context, s *models.SystemSetting) error {
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"value", "updated_by", "updated_at"}),
	}).Create(s).Error
}

func (r *settingsRepository) List(ctx context.Context) ([]models.SystemSetting, error) {
	var settings []models.SystemSetting
	err := r.db.WithContext(ctx).Order("key").Find(&settings).Error
	return settings, err
}
