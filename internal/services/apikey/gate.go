// Package apikey authenticates server-to-server calls and manages the keys
// merchants use for them.
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

	"github.com/rs/zerolog"
)

// Principal is an authenticated key and the merchant that owns it.
type Principal struct {
	Key      *models.APIKey
	Merchant *models.User
}

// KeyStore is the subset of the API key repository the gate needs.
type KeyStore interface {
	GetByHash(ctx context.Context, hash string) (*models.APIKey, error)
	Touch(ctx context.Context, id string, at time.Time) error
}

// UsageCounter counts billable operations inside a trailing window.
type UsageCounter interface {
	CountSince(ctx context.Context, userID string, since time.Time) (int64, error)
}

// Gate is the authorization perimeter for intent and payment operations.
type Gate interface {
	// Authenticate resolves a raw key and rejects disabled keys. It does not
	// look at credits or rate limits.
	Authenticate(ctx context.Context, rawKey string) (*Principal, error)
	// Admit runs the full admission check and stamps lastUsedAt.
	Admit(ctx context.Context, rawKey string) (*Principal, error)
}

type gate struct {
	keys  KeyStore
	usage UsageCounter
	now   func() time.Time
	log   zerolog.Logger
}

func NewGate(keys KeyStore, usage UsageCounter, now func() time.Time, log zerolog.Logger) Gate {
	if keys == nil {
		panic("key store is required")
	}
	if usage == nil {
		panic("usage counter is required")
	}
	if now == nil {
		now = time.Now
	}
	return &gate{keys: keys, usage: usage, now: now, log: log}
}

func (g *gate) Authenticate(ctx context.Context, rawKey string) (*Principal, error) {
	rawKey = strings.TrimSpace(rawKey)
	if rawKey == "" {
		return nil, apperrors.ErrUnauthenticated
	}

	key, err := g.keys.GetByHash(ctx, utils.HashKey(rawKey))
	if err != nil {
		if errors.Is(err, repositories.ErrAPIKeyNotFound) {
			return nil, apperrors.ErrUnauthenticated
		}
		return nil, fmt.Errorf("lookup api key: %w", err)
	}

	if !key.Enabled {
		return nil, apperrors.ErrKeyDisabled
	}

	merchant := key.User
	return &Principal{Key: key, Merchant: &merchant}, nil
}

func (g *gate) Admit(ctx context.Context, rawKey string) (*Principal, error) {
	p, err := g.Authenticate(ctx, rawKey)
	if err != nil {
		return nil, err
	}

	now := g.now()

	if p.Key.RemainingCredits <= 0 {
		return nil, apperrors.ErrInsufficientCredits
	}

	if p.Key.RateLimitEnabled {
		since := now.Add(-p.Key.Window())
		used, err := g.usage.CountSince(ctx, p.Key.UserID, since)
		if err != nil {
			return nil, fmt.Errorf("count usage: %w", err)
		}
		if used >= int64(p.Key.RateLimitMax) {
			g.log.Info().
				Str("key_id", p.Key.ID).
				Int64("used", used).
				Int("max", p.Key.RateLimitMax).
				Msg("api key rate limited")
			return nil, apperrors.ErrRateLimited
		}
	}

	if err := g.keys.Touch(ctx, p.Key.ID, now); err != nil {
		return nil, fmt.Errorf("touch api key: %w", err)
	}
	p.Key.LastUsedAt = &now

	return p, nil
}
