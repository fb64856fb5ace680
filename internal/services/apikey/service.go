package apikey

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
)

// Config sets what a freshly issued key starts with.
type Config struct {
	DefaultCredits   int
	RateLimitMax     int
	RateLimitWindow  time.Duration
	MaxKeysPerMember int
}

// CreatedKey carries the plaintext secret. It is returned once, at creation.
type CreatedKey struct {
	models.APIKey
	Key string `json:"key"`
}

// UpdateInput holds optional changes; nil fields are left alone.
type UpdateInput struct {
	Name                *string `json:"name"`
	Enabled             *bool   `json:"enabled"`
	RateLimitEnabled    *bool   `json:"rateLimitEnabled"`
	RateLimitMax        *int    `json:"rateLimitMax"`
	RateLimitTimeWindow *int64  `json:"rateLimitTimeWindow"`
}

type Service interface {
	Create(ctx context.Context, userID, name string) (*CreatedKey, error)
	List(ctx context.Context, userID string) ([]models.APIKey, error)
	Get(ctx context.Context, userID, id string) (*models.APIKey, error)
	Update(ctx context.Context, userID, id string, in UpdateInput) (*models.APIKey, error)
	Delete(ctx context.Context, userID, id string) error
}

type service struct {
	repo   repositories.APIKeyRepository
	config Config
}

func NewService(repo repositories.APIKeyRepository, config Config) Service {
	if repo == nil {
		panic("repo is required")
	}
	if config.DefaultCredits == 0 {
		config.DefaultCredits = 100
	}
	if config.RateLimitMax == 0 {
		config.RateLimitMax = 1000
	}
	if config.RateLimitWindow == 0 {
		config.RateLimitWindow = 24 * time.Hour
	}
	if config.MaxKeysPerMember == 0 {
		config.MaxKeysPerMember = 1
	}
	return &service{repo: repo, config: config}
}

func (s *service) Create(ctx context.Context, userID, name string) (*CreatedKey, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.ErrInvalidInput.WithDetail("name is required")
	}

	secret, err := utils.GenerateAPIKey()
	if err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	key := models.APIKey{
		UserID:              userID,
		Name:                name,
		KeyHash:             utils.HashKey(secret),
		Prefix:              utils.KeyDisplayPrefix(secret),
		RemainingCredits:    s.config.DefaultCredits,
		Enabled:             true,
		RateLimitEnabled:    true,
		RateLimitMax:        s.config.RateLimitMax,
		RateLimitTimeWindow: s.config.RateLimitWindow.Milliseconds(),
	}
	if err := s.repo.Create(ctx, &key, s.config.MaxKeysPerMember); err != nil {
		if errors.Is(err, repositories.ErrKeyLimitReached) {
			return nil, apperrors.ErrKeyExists
		}
		return nil, fmt.Errorf("create key: %w", err)
	}

	return &CreatedKey{APIKey: key, Key: secret}, nil
}

func (s *service) List(ctx context.Context, userID string) ([]models.APIKey, error) {
	return s.repo.ListByUser(ctx, userID)
}

// Get hides keys owned by other merchants behind NotFound.
func (s *service) Get(ctx context.Context, userID, id string) (*models.APIKey, error) {
	key, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrAPIKeyNotFound) {
			return nil, apperrors.ErrKeyNotFound
		}
		return nil, err
	}
	if key.UserID != userID {
		return nil, apperrors.ErrKeyNotFound
	}
	return key, nil
}

func (s *service) Update(ctx context.Context, userID, id string, in UpdateInput) (*models.APIKey, error) {
	key, err := s.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}

	if in.Name != nil {
		name := strings.TrimSpace(*in.Name)
		if name == "" {
			return nil, apperrors.ErrInvalidInput.WithDetail("name must not be empty")
		}
		key.Name = name
	}
	if in.Enabled != nil {
		key.Enabled = *in.Enabled
	}
	if in.RateLimitEnabled != nil {
		key.RateLimitEnabled = *in.RateLimitEnabled
	}
	if in.RateLimitMax != nil {
		if *in.RateLimitMax < 1 {
			return nil, apperrors.ErrInvalidInput.WithDetail("rateLimitMax must be at least 1")
		}
		key.RateLimitMax = *in.RateLimitMax
	}
	if in.RateLimitTimeWindow != nil {
		if *in.RateLimitTimeWindow < 1000 {
			return nil, apperrors.ErrInvalidInput.WithDetail("rateLimitTimeWindow must be at least one second")
		}
		key.RateLimitTimeWindow = *in.RateLimitTimeWindow
	}

	if err := s.repo.Save(ctx, key); err != nil {
		return nil, fmt.Errorf("save key: %w", err)
	}
	return key, nil
}

func (s *service) Delete(ctx context.Context, userID, id string) error {
	if _, err := s.Get(ctx, userID, id); err != nil {
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repositories.ErrAPIKeyNotFound) {
			return apperrors.ErrKeyNotFound
		}
		return err
	}
	return nil
}
