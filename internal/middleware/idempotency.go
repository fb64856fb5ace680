package middleware

import (
	"context"
	"time"

	apperrors "lumepay/internal/errors"
	"lumepay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

const (
	IdempotencyHeader    = "Idempotency-Key"
	IdempotencyHitHeader = "X-Idempotency-Hit"
	// IdempotencyTTL is how long a recorded response can be replayed.
	IdempotencyTTL = 24 * time.Hour
	// IdempotencyLockTTL bounds the in-flight marker. It outlasts the
	// verification timeout so a slow submission keeps its claim.
	IdempotencyLockTTL = 2 * time.Minute
)

// ReplayStore keeps recorded responses. The Redis cache service satisfies it.
type ReplayStore interface {
	Get(ctx context.Context, key string, dest interface{}) (bool, error)
	SetNX(ctx context.Context, key string, value interface{}, ttl time.Duration) (bool, error)
	SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

type recordedResponse struct {
	// InFlight marks a claimed key whose first request has not finished.
	InFlight    bool   `json:"inFlight,omitempty"`
	Status      int    `json:"status"`
	ContentType string `json:"contentType"`
	Body        []byte `json:"body"`
}

// Idempotency replays the first response sent for an Idempotency-Key. Keys
// are scoped to the merchant of the API key, so it must run after Require.
// The first request claims the key; a concurrent duplicate gets 409 until
// the response is recorded. Without a key, or when the store fails,
// requests run normally.
func Idempotency(store ReplayStore, log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		key := c.Get(IdempotencyHeader)
		p := CurrentPrincipal(c)
		if key == "" || p == nil {
			return c.Next()
		}
		ctx := c.UserContext()
		cacheKey := "idempotency:" + p.Key.UserID + ":" + key
		l := log.With().Str("key", key).Str("merchant_id", p.Key.UserID).Logger()

		var rec recordedResponse
		found, err := store.Get(ctx, cacheKey, &rec)
		if err != nil {
			l.Warn().Err(err).Msg("idempotency lookup failed")
			return c.Next()
		}
		if found {
			return replay(c, rec, l)
		}

		claimed, err := store.SetNX(ctx, cacheKey, recordedResponse{InFlight: true}, IdempotencyLockTTL)
		if err != nil {
			l.Warn().Err(err).Msg("idempotency claim failed")
			return c.Next()
		}
		if !claimed {
			// Lost the race; the winner may already have finished.
			rec = recordedResponse{}
			if found, err := store.Get(ctx, cacheKey, &rec); err == nil && found {
				return replay(c, rec, l)
			}
			return response.DomainError(c, apperrors.ErrIdempotencyInProgress)
		}

		release := func() {
			if err := store.Delete(context.WithoutCancel(ctx), cacheKey); err != nil {
				l.Warn().Err(err).Msg("failed to release idempotency claim")
			}
		}

		if err := c.Next(); err != nil {
			release()
			return err
		}

		status := c.Response().StatusCode()
		if status >= fiber.StatusInternalServerError {
			release()
			return nil
		}

		rec = recordedResponse{
			Status:      status,
			ContentType: string(c.Response().Header.ContentType()),
			Body:        append([]byte(nil), c.Response().Body()...),
		}
		if err := store.SetWithTTL(context.WithoutCancel(ctx), cacheKey, rec, IdempotencyTTL); err != nil {
			l.Warn().Err(err).Msg("failed to record idempotent response")
			release()
		}
		return nil
	}
}

func replay(c *fiber.Ctx, rec recordedResponse, log zerolog.Logger) error {
	if rec.InFlight {
		return response.DomainError(c, apperrors.ErrIdempotencyInProgress)
	}
	log.Info().Msg("idempotency hit")
	c.Set(IdempotencyHitHeader, "true")
	c.Set(fiber.HeaderContentType, rec.ContentType)
	return c.Status(rec.Status).Send(rec.Body)
}
