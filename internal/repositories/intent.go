package repositories

import (
	"context"
	"errors"
	"time"

	"lumepay/internal/models"

	"gorm.io/gorm"
)

// IntentFilter narrows ListIntents. Status may be any effective status,
// including expired.
type IntentFilter struct {
	UserID string
	Status models.IntentStatus
	Now    time.Time
	Offset int
	Limit  int
}

// IntentCounts is a per-merchant breakdown by effective status.
type IntentCounts struct {
	Total     int64 `json:"total"`
	Pending   int64 `json:"pending"`
	Completed int64 `json:"completed"`
	Failed    int64 `json:"failed"`
	Expired   int64 `json:"expired"`
}

type IntentRepository interface {
	Create(ctx context.Context, intent *models.Intent) error
	GetByID(ctx context.Context, id string) (*models.Intent, error)
	List(ctx context.Context, f IntentFilter) ([]models.Intent, int64, error)
	Counts(ctx context.Context, userID string, now time.Time) (IntentCounts, error)
}

type intentRepository struct {
	db *gorm.DB
}

func NewIntentRepository(db *gorm.DB) IntentRepository {
	return &intentRepository{db: db}
}

func (r *intentRepository) Create(ctx context.Context, intent *models.Intent) error {
	return r.db.WithContext(ctx).Create(intent).Error
}

func (r *intentRepository) GetByID(ctx context.Context, id string) (*models.Intent, error) {
	var intent models.Intent
	if err := r.db.WithContext(ctx).First(&intent, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIntentNotFound
		}
		return nil, err
	}
	return &intent, nil
}

func (r *intentRepository) List(ctx context.Context, f IntentFilter) ([]models.Intent, int64, error) {
	q := r.db.WithContext(ctx).Model(&models.Intent{}).Where("user_id = ?", f.UserID)

	switch f.Status {
	case "":
	case models.IntentExpired:
		q = q.Where("status = ? AND expires_at < ?", models.IntentPending, f.Now)
	case models.IntentPending:
		q = q.Where("status = ? AND expires_at >= ?", models.IntentPending, f.Now)
	default:
		q = q.Where("status = ?", f.Status)
	}

	q = q.Session(&gorm.Session{})

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var intents []models.Intent
	err := q.Order("created_at DESC").Offset(f.Offset).Limit(f.Limit).Find(&intents).Error
	return intents, total, err
}

func (r *intentRepository) Counts(ctx context.Context, userID string, now time.Time) (IntentCounts, error) {
	var counts IntentCounts
	err := r.db.WithContext(ctx).Model(&models.Intent{}).
		Select(`COUNT(*) AS total,
			COUNT(*) FILTER (WHERE status IN (?, ?) AND expires_at >= ?) AS pending,
			COUNT(*) FILTER (WHERE status = ?) AS completed,
			COUNT(*) FILTER (WHERE status = ?) AS failed,
			COUNT(*) FILTER (WHERE status = ? AND expires_at < ?) AS expired`,
			models.IntentPending, models.IntentProcessing, now,
			models.IntentCompleted,
			models.IntentFailed,
			models.IntentPending, now).
		Where("user_id = ?", userID).
		Scan(&counts).Error
	return counts, err
}
