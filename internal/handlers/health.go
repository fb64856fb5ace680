package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

const healthTimeout = 2 * time.Second

// Pinger is a dependency whose reachability is reported by /health.
type Pinger interface {
	HealthCheck(ctx context.Context) error
}

// PingFunc adapts a function to Pinger.
type PingFunc func(ctx context.Context) error

func (f PingFunc) HealthCheck(ctx context.Context) error { return f(ctx) }

type HealthHandler struct {
	deps map[string]Pinger
}

func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	return &HealthHandler{deps: deps}
}

// Check reports every dependency. Any failure turns the response into a 503.
func (h *HealthHandler) Check(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	status := "ok"
	services := fiber.Map{}
	for name, dep := range h.deps {
		if err := dep.HealthCheck(ctx); err != nil {
			services[name] = "unavailable"
			status = "degraded"
			continue
		}
		services[name] = "connected"
	}

	code := fiber.StatusOK
	if status != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":   status,
		"services": services,
	})
}
