// Package merchant updates the profile and payout settings a merchant
// receives transfers with.
package merchant

import (
	"context"
	"errors"
	"fmt"
	"strings"

	apperrors "lumepay/internal/errors"
	"lumepay/internal/models"
	"lumepay/internal/repositories"

	"github.com/rs/zerolog"
)

// maxNameLength bounds the account holder name.
const maxNameLength = 100

// ProfileStore is the subset of the user repository settings need.
type ProfileStore interface {
	UpdateName(ctx context.Context, id, name string) error
	UpdateBank(ctx context.Context, id string, bank models.BankSettings) error
}

type Service interface {
	// UpdateName sets the name that must match the bank account holder.
	UpdateName(ctx context.Context, merchant *models.User, name string) (*models.User, error)
	UpdateBank(ctx context.Context, merchant *models.User, bankName, bankAccount string) (*models.User, error)
}

type service struct {
	users ProfileStore
	log   zerolog.Logger
}

func NewService(users ProfileStore, log zerolog.Logger) Service {
	return &service{users: users, log: log}
}

func (s *service) UpdateName(ctx context.Context, merchant *models.User, name string) (*models.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.ErrInvalidInput.WithDetail("name: must not be empty")
	}
	if len(name) > maxNameLength {
		return nil, apperrors.ErrInvalidInput.WithDetail(fmt.Sprintf("name: must not be more than %d characters long", maxNameLength))
	}

	if err := s.users.UpdateName(ctx, merchant.ID, name); err != nil {
		return nil, storeError(err)
	}

	updated := *merchant
	updated.Name = name
	s.log.Info().Str("user_id", merchant.ID).Msg("merchant name updated")
	return &updated, nil
}

func (s *service) UpdateBank(ctx context.Context, merchant *models.User, bankName, bankAccount string) (*models.User, error) {
	bank, err := models.ParseBankSettings(bankName, bankAccount)
	if err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidBankAccount):
			return nil, apperrors.ErrInvalidBankAccount
		default:
			return nil, apperrors.ErrInvalidInput.WithDetail(err.Error())
		}
	}

	if err := s.users.UpdateBank(ctx, merchant.ID, bank); err != nil {
		return nil, storeError(err)
	}

	updated := *merchant
	updated.BankName = string(bank.Code)
	updated.BankAccount = bank.Account
	s.log.Info().Str("user_id", merchant.ID).Str("bank", updated.BankName).Msg("merchant bank updated")
	return &updated, nil
}

func storeError(err error) error {
	if errors.Is(err, repositories.ErrUserNotFound) {
		return apperrors.ErrUserNotFound
	}
	return fmt.Errorf("update merchant: %w", err)
}
