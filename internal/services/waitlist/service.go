// Package waitlist gates registration during the private beta and collects
// sign-ups from prospective merchants.
package waitlist

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	apperrors "lumepay/internal/errors"
	"lumepay/internal/models"
	"lumepay/internal/repositories"
	"lumepay/internal/validation"

	"github.com/rs/zerolog"
)

// SettingsStore reads and writes system settings.
type SettingsStore interface {
	Get(ctx context.Context, key string) (*models.SystemSetting, error)
	Upsert(ctx context.Context, s *models.SystemSetting) error
	List(ctx context.Context) ([]models.SystemSetting, error)
}

// EntryStore persists waitlist sign-ups.
type EntryStore interface {
	Join(ctx context.Context, entry *models.WaitlistEntry) (bool, error)
	List(ctx context.Context, offset, limit int) ([]models.WaitlistEntry, int64, error)
}

type JoinInput struct {
	Email   string `json:"email"`
	Name    string `json:"name"`
	Company string `json:"company"`
}

// ConfigInput is a partial update; nil fields keep their current value.
type ConfigInput struct {
	Enabled *bool   `json:"enabled"`
	Message *string `json:"message"`
}

type Service interface {
	// Status is the public, cached view of the waitlist toggle.
	Status(ctx context.Context) (models.WaitlistConfig, error)
	// RegistrationOpen reports whether new merchants may register.
	RegistrationOpen(ctx context.Context) (bool, error)
	// Join adds the email to the waitlist. Joining twice is not an error;
	// created is false the second time.
	Join(ctx context.Context, in JoinInput) (created bool, err error)

	GetConfig(ctx context.Context) (models.WaitlistConfig, error)
	UpdateConfig(ctx context.Context, adminID string, in ConfigInput) (models.WaitlistConfig, error)
	List(ctx context.Context, offset, limit int) ([]models.WaitlistEntry, int64, error)
	// Settings lists every stored system setting for the admin console.
	Settings(ctx context.Context) ([]models.SystemSetting, error)
}

type service struct {
	settings SettingsStore
	entries  EntryStore
	cache    *ConfigCache
	now      func() time.Time
	log      zerolog.Logger
}

func NewService(settings SettingsStore, entries EntryStore, cache *ConfigCache, now func() time.Time, log zerolog.Logger) Service {
	if cache == nil {
		cache = NewConfigCache(DefaultCacheTTL, now)
	}
	if now == nil {
		now = time.Now
	}
	return &service{settings: settings, entries: entries, cache: cache, now: now, log: log}
}

func (s *service) Status(ctx context.Context) (models.WaitlistConfig, error) {
	return s.cache.Get(ctx, s.load)
}

func (s *service) RegistrationOpen(ctx context.Context) (bool, error) {
	cfg, err := s.Status(ctx)
	if err != nil {
		return false, err
	}
	return !cfg.Enabled, nil
}

func (s *service) Join(ctx context.Context, in JoinInput) (bool, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	name := strings.TrimSpace(in.Name)
	company := strings.TrimSpace(in.Company)

	v := validation.New()
	v.Email("email", email)
	v.MaxLength("name", name, 100)
	v.MaxLength("company", company, 100)
	if !v.Valid() {
		return false, apperrors.ErrInvalidInput.WithDetail(v.Error())
	}

	created, err := s.entries.Join(ctx, &models.WaitlistEntry{
		Email:     email,
		Name:      name,
		Company:   company,
		CreatedAt: s.now(),
	})
	if err != nil {
		return false, fmt.Errorf("join waitlist: %w", err)
	}
	if created {
		s.log.Info().Str("email", email).Msg("waitlist entry added")
	}
	return created, nil
}

func (s *service) GetConfig(ctx context.Context) (models.WaitlistConfig, error) {
	return s.load(ctx)
}

func (s *service) UpdateConfig(ctx context.Context, adminID string, in ConfigInput) (models.WaitlistConfig, error) {
	cfg, err := s.load(ctx)
	if err != nil {
		return models.WaitlistConfig{}, err
	}
	if in.Enabled != nil {
		cfg.Enabled = *in.Enabled
	}
	if in.Message != nil {
		msg := strings.TrimSpace(*in.Message)
		if len(msg) > 500 {
			return models.WaitlistConfig{}, apperrors.ErrInvalidInput.WithDetail("message: must be at most 500 characters")
		}
		cfg.Message = msg
	}

	err = s.settings.Upsert(ctx, &models.SystemSetting{
		Key:       models.SettingWaitlistEnabled,
		Value:     cfg.JSON(),
		UpdatedBy: &adminID,
		UpdatedAt: s.now(),
	})
	if err != nil {
		return models.WaitlistConfig{}, fmt.Errorf("save waitlist config: %w", err)
	}
	s.cache.Invalidate()

	s.log.Info().
		Str("admin_id", adminID).
		Bool("enabled", cfg.Enabled).
		Msg("waitlist config updated")
	return cfg, nil
}

func (s *service) List(ctx context.Context, offset, limit int) ([]models.WaitlistEntry, int64, error) {
	return s.entries.List(ctx, offset, limit)
}

func (s *service) Settings(ctx context.Context) ([]models.SystemSetting, error) {
	settings, err := s.settings.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return settings, nil
}

func (s *service) load(ctx context.Context) (models.WaitlistConfig, error) {
	setting, err := s.settings.Get(ctx, models.SettingWaitlistEnabled)
	if err != nil {
		if errors.Is(err, repositories.ErrSettingsNotFound) {
			return models.DefaultWaitlistConfig, nil
		}
		return models.WaitlistConfig{}, fmt.Errorf("load waitlist config: %w", err)
	}
	return models.WaitlistConfigFrom(setting.Value), nil
}
