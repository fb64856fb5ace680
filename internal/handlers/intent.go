package handlers

import (
	"lumepay/internal/middleware"
	"lumepay/internal/models"
	"lumepay/internal/services/payment"
	"lumepay/internal/utils/pagination"
	"lumepay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type IntentHandler struct {
	payments payment.Service
}

func NewIntentHandler(payments payment.Service) *IntentHandler {
	return &IntentHandler{payments: payments}
}

// CreateIntent opens a payment intent for the key's merchant.
func (h *IntentHandler) CreateIntent(c *fiber.Ctx) error {
	p := middleware.CurrentPrincipal(c)

	var input payment.CreateIntentInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	intent, err := h.payments.CreateIntent(c.UserContext(), p.Merchant, input)
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(fiber.Map{"intent": intent})
}

// GetIntent returns the public projection, or the full one when the
// caller's key belongs to the intent's merchant.
func (h *IntentHandler) GetIntent(c *fiber.Ctx) error {
	id := c.Params("id")

	if p := middleware.CurrentPrincipal(c); p != nil {
		detail, err := h.payments.GetIntent(c.UserContext(), p.Merchant.ID, id)
		if err != nil {
			return response.FromError(c, err)
		}
		return c.JSON(fiber.Map{"intent": detail})
	}

	intent, err := h.payments.GetPublicIntent(c.UserContext(), id)
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(fiber.Map{"intent": intent})
}

// SubmitPayment verifies the customer's transfer against the intent.
func (h *IntentHandler) SubmitPayment(c *fiber.Ctx) error {
	var input struct {
		TransactionID string `json:"transactionId"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	res, err := h.payments.SubmitPayment(c.UserContext(), middleware.CurrentPrincipal(c), c.Params("id"), input.TransactionID)
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(res)
}

// ListIntents is the merchant's dashboard listing.
func (h *IntentHandler) ListIntents(c *fiber.Ctx) error {
	user := middleware.CurrentUser(c)
	page := pagination.ParseFromRequest(c)

	intents, total, err := h.payments.ListIntents(c.UserContext(), user.ID, payment.ListQuery{
		Status: models.IntentStatus(c.Query("status")),
		Offset: page.Offset,
		Limit:  page.Limit,
	})
	if err != nil {
		return response.FromError(c, err)
	}

	page.Total = total
	return c.JSON(pagination.Response(page, intents))
}

func (h *IntentHandler) Stats(c *fiber.Ctx) error {
	stats, err := h.payments.Stats(c.UserContext(), middleware.CurrentUser(c))
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(stats)
}
