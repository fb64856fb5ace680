package handlers

import (
	"lumepay/internal/middleware"
	"lumepay/internal/services/waitlist"
	"lumepay/internal/utils/pagination"
	"lumepay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type WaitlistHandler struct {
	waitlist waitlist.Service
}

func NewWaitlistHandler(w waitlist.Service) *WaitlistHandler {
	return &WaitlistHandler{waitlist: w}
}

func (h *WaitlistHandler) Status(c *fiber.Ctx) error {
	cfg, err := h.waitlist.Status(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(cfg)
}

func (h *WaitlistHandler) Join(c *fiber.Ctx) error {
	var input waitlist.JoinInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	created, err := h.waitlist.Join(c.UserContext(), input)
	if err != nil {
		return response.FromError(c, err)
	}
	if !created {
		return response.Success(c, "You're already on the waitlist", nil)
	}
	return response.Created(c, "Joined the waitlist", nil)
}

func (h *WaitlistHandler) GetConfig(c *fiber.Ctx) error {
	cfg, err := h.waitlist.GetConfig(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(cfg)
}

func (h *WaitlistHandler) UpdateConfig(c *fiber.Ctx) error {
	var input waitlist.ConfigInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	cfg, err := h.waitlist.UpdateConfig(c.UserContext(), middleware.CurrentUser(c).ID, input)
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(cfg)
}

// ListSettings returns every system setting.
func (h *WaitlistHandler) ListSettings(c *fiber.Ctx) error {
	settings, err := h.waitlist.Settings(c.UserContext())
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(fiber.Map{"settings": settings})
}

func (h *WaitlistHandler) List(c *fiber.Ctx) error {
	page := pagination.ParseFromRequest(c)
	entries, total, err := h.waitlist.List(c.UserContext(), page.Offset, page.Limit)
	if err != nil {
		return response.FromError(c, err)
	}
	page.Total = total
	return c.JSON(pagination.Response(page, entries))
}
