package repositories

import (
	"context"
	"errors"
	"time"

	"lumepay/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// APIKeyRepository persists API keys. Lookups by hash preload the owner.
type APIKeyRepository interface {
	// Create inserts key unless its owner already holds max keys, in which
	// case it returns ErrKeyLimitReached.
	Create(ctx context.Context, key *models.APIKey, max int) error
	GetByHash(ctx context.Context, hash string) (*models.APIKey, error)
	GetByID(ctx context.Context, id string) (*models.APIKey, error)
	ListByUser(ctx context.Context, userID string) ([]models.APIKey, error)
	Save(ctx context.Context, key *models.APIKey) error
	Delete(ctx context.Context, id string) error
	Touch(ctx context.Context, id string, at time.Time) error
}

type apiKeyRepository struct {
	db *gorm.DB
}

func NewAPIKeyRepository(db *gorm.DB) APIKeyRepository {
	return &apiKeyRepository{db: db}
}

func (r *apiKeyRepository) Create(ctx context.Context, key *models.APIKey, max int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Locking the owner serializes concurrent creates for one merchant.
		var owner models.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").First(&owner, "id = ?", key.UserID).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrUserNotFound
			}
			return err
		}

		var n int64
		if err := tx.Model(&models.APIKey{}).Where("user_id = ?", key.UserID).Count(&n).Error; err != nil {
			return err
		}
		if n >= int64(max) {
			return ErrKeyLimitReached
		}
		return tx.Create(key).Error
	})
}

func (r *apiKeyRepository) GetByHash(ctx context.Context, hash string) (*models.APIKey, error) {
	var key models.APIKey
	err := r.db.WithContext(ctx).Preload("User").Where("key_hash = ?", hash).First(&key).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, err
	}
	return &key, nil
}

func (r *apiKeyRepository) GetByID(ctx context.Context, id string) (*models.APIKey, error) {
	var key models.APIKey
	if err := r.db.WithContext(ctx).First(&key, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAPIKeyNotFound
		}
		return nil, err
	}
	return &key, nil
}

func (r *apiKeyRepository) ListByUser(ctx context.Context, userID string) ([]models.APIKey, error) {
	var keys []models.APIKey
	err := r.db.WithContext(ctx).Where("user_id = ?", userID).Order("created_at DESC").Find(&keys).Error
	return keys, err
}

// Save writes the mutable management fields. Credits are only ever changed
// by the payment completion transaction.
func (r *apiKeyRepository) Save(ctx context.Context, key *models.APIKey) error {
	res := r.db.WithContext(ctx).Model(&models.APIKey{}).Where("id = ?", key.ID).
		Select("name", "enabled", "rate_limit_enabled", "rate_limit_max", "rate_limit_time_window").
		Updates(key)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}

func (r *apiKeyRepository) Delete(ctx context.Context, id string) error {
	res := r.db.WithContext(ctx).Delete(&models.APIKey{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrAPIKeyNotFound
	}
	return nil
}

func (r *apiKeyRepository) Touch(ctx context.Context, id string, at time.Time) error {
	return r.db.WithContext(ctx).Model(&models.APIKey{}).
		Where("id = ?", id).
		UpdateColumn("last_used_at", at).Error
}
