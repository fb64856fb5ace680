package handlers

import (
	"lumepay/internal/middleware"
	"lumepay/internal/services/webhook"
	"lumepay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type WebhookHandler struct {
	webhooks webhook.Service
}

func NewWebhookHandler(webhooks webhook.Service) *WebhookHandler {
	return &WebhookHandler{webhooks: webhooks}
}

func (h *WebhookHandler) GetConfig(c *fiber.Ctx) error {
	cfg, err := h.webhooks.GetConfig(c.UserContext(), middleware.CurrentUser(c).ID)
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(fiber.Map{"config": cfg})
}

func (h *WebhookHandler) UpdateConfig(c *fiber.Ctx) error {
	var input webhook.ConfigInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	cfg, err := h.webhooks.UpdateConfig(c.UserContext(), middleware.CurrentUser(c).ID, input)
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(fiber.Map{"config": cfg})
}

// SendTest delivers a synthetic payment.completed event right away.
func (h *WebhookHandler) SendTest(c *fiber.Ctx) error {
	delivery, err := h.webhooks.SendTest(c.UserContext(), middleware.CurrentUser(c).ID)
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(fiber.Map{"success": true, "delivery": delivery})
}

func (h *WebhookHandler) ListDeliveries(c *fiber.Ctx) error {
	deliveries, err := h.webhooks.ListDeliveries(c.UserContext(), middleware.CurrentUser(c).ID)
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(fiber.Map{"deliveries": deliveries})
}

func (h *WebhookHandler) RetryDelivery(c *fiber.Ctx) error {
	if err := h.webhooks.RetryDelivery(c.UserContext(), middleware.CurrentUser(c).ID, c.Params("id")); err != nil {
		return response.FromError(c, err)
	}
	return c.Status(fiber.StatusAccepted).JSON(fiber.Map{"success": true})
}
