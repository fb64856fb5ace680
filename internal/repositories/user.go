package repositories

import (
	"context"
	"errors"

	"lumepay/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines the interface for merchant account persistence
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	UpdateName(ctx context.Context, id, name string) error
	UpdateBank(ctx context.Context, id string, bank models.BankSettings) error
	// IncrementTokenVersion invalidates every session issued so far.
	IncrementTokenVersion(ctx context.Context, id string) error
}

type userRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrEmailTaken
		}
		return err
	}
	return nil
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) UpdateName(ctx context.Context, id, name string) error {
	return r.update(ctx, id, map[string]interface{}{"name": name})
}

func (r *userRepository) UpdateBank(ctx context.Context, id string, bank models.BankSettings) error {
	return r.update(ctx, id, map[string]interface{}{
		"bank_name":    string(bank.Code),
		"bank_account": bank.Account,
	})
}

func (r *userRepository) IncrementTokenVersion(ctx context.Context, id string) error {
	return r.update(ctx, id, map[string]interface{}{"token_version": gorm.Expr("token_version + 1")})
}

func (r *userRepository) update(ctx context.Context, id string, fields map[string]interface{}) error {
	res := r.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(fields)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrUserNotFound
	}
	return nil
}
