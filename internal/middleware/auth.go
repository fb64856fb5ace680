// Package middleware provides HTTP middleware components for the application.
// It covers dashboard sessions, API-key admission and idempotent replays.
package middleware

import (
	"context"
	"strings"

	apperrors "lumepay/internal/errors"
	"lumepay/internal/models"
	"lumepay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

const localUser = "user"

// SessionAuthenticator resolves a session token to its merchant.
type SessionAuthenticator interface {
	Authenticate(ctx context.Context, token string) (*models.User, error)
}

// AuthMiddleware validates dashboard session tokens.
type AuthMiddleware struct {
	sessions SessionAuthenticator
	log      zerolog.Logger
}

func NewAuthMiddleware(sessions SessionAuthenticator, log zerolog.Logger) *AuthMiddleware {
	return &AuthMiddleware{sessions: sessions, log: log}
}

// Handler requires a valid Bearer token and stores the merchant in the
// request context.
func (m *AuthMiddleware) Handler(c *fiber.Ctx) error {
	header := c.Get(fiber.HeaderAuthorization)
	token, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(token) == "" {
		return response.Unauthorized(c)
	}

	user, err := m.sessions.Authenticate(c.UserContext(), strings.TrimSpace(token))
	if err != nil {
		if de, ok := apperrors.As(err); ok {
			m.log.Debug().Str("path", c.Path()).Str("code", de.Code).Msg("session rejected")
		}
		return response.FromError(c, err)
	}

	c.Locals(localUser, user)
	return c.Next()
}

// AdminOnly must run after Handler.
func AdminOnly(c *fiber.Ctx) error {
	user := CurrentUser(c)
	if user == nil {
		return response.Unauthorized(c)
	}
	if !user.IsAdmin {
		return response.DomainError(c, apperrors.ErrForbidden)
	}
	return c.Next()
}

// CurrentUser returns the merchant set by Handler, or nil.
func CurrentUser(c *fiber.Ctx) *models.User {
	user, _ := c.Locals(localUser).(*models.User)
	return user
}
