package repositories

import (
	"context"

	"lumepay/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type WaitlistRepository interface {
	// Join inserts the entry unless the email is already listed. It reports
	// whether a new row was created.
	Join(ctx context.Context, entry *models.WaitlistEntry) (bool, error)
	List(ctx context.Context, offset, limit int) ([]models.WaitlistEntry, int64, error)
}

type waitlistRepository struct {
	db *gorm.DB
}

func NewWaitlistRepository(db *gorm.DB) WaitlistRepository {
	return &waitlistRepository{db: db}
}

func (r *waitlistRepository) Join(ctx context.Context, entry *models.WaitlistEntry) (bool, error) {
	res := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "email"}},
		DoNothing: true,
	}).Create(entry)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (r *waitlistRepository) List(ctx context.Context, offset, limit int) ([]models.WaitlistEntry, int64, error) {
	var total int64
	q := r.db.WithContext(ctx).Model(&models.WaitlistEntry{}).Session(&gorm.Session{})
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	var entries []models.WaitlistEntry
	err := q.Order("created_at DESC").Offset(offset).Limit(limit).Find(&entries).Error
	return entries, total, err
}
