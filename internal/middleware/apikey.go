package middleware

import (
	"lumepay/internal/services/apikey"
	"lumepay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

// APIKeyHeader carries the raw merchant API key.
const APIKeyHeader = "x-api-key"

const localPrincipal = "principal"

type APIKeyMiddleware struct {
	gate apikey.Gate
}

func NewAPIKeyMiddleware(gate apikey.Gate) *APIKeyMiddleware {
	return &APIKeyMiddleware{gate: gate}
}

// Require runs full admission: key, enabled, credits and rate limit.
func (m *APIKeyMiddleware) Require(c *fiber.Ctx) error {
	p, err := m.gate.Admit(c.UserContext(), c.Get(APIKeyHeader))
	if err != nil {
		return response.FromError(c, err)
	}
	c.Locals(localPrincipal, p)
	return c.Next()
}

// Optional authenticates the key when one is sent. A bad key is still
// rejected; a missing one passes through anonymously.
func (m *APIKeyMiddleware) Optional(c *fiber.Ctx) error {
	raw := c.Get(APIKeyHeader)
	if raw == "" {
		return c.Next()
	}
	p, err := m.gate.Authenticate(c.UserContext(), raw)
	if err != nil {
		return response.FromError(c, err)
	}
	c.Locals(localPrincipal, p)
	return c.Next()
}

// CurrentPrincipal returns the key holder set by Require or Optional.
func CurrentPrincipal(c *fiber.Ctx) *apikey.Principal {
	p, _ := c.Locals(localPrincipal).(*apikey.Principal)
	return p
}
