package handlers

import (
	"lumepay/internal/middleware"
	"lumepay/internal/services/merchant"
	"lumepay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type SettingsHandler struct {
	merchants merchant.Service
}

func NewSettingsHandler(merchants merchant.Service) *SettingsHandler {
	return &SettingsHandler{merchants: merchants}
}

func (h *SettingsHandler) UpdateName(c *fiber.Ctx) error {
	var input struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.merchants.UpdateName(c.UserContext(), middleware.CurrentUser(c), input.Name)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Name updated", user)
}

func (h *SettingsHandler) UpdateBank(c *fiber.Ctx) error {
	var input struct {
		BankName    string `json:"bankName"`
		BankAccount string `json:"bankAccount"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	user, err := h.merchants.UpdateBank(c.UserContext(), middleware.CurrentUser(c), input.BankName, input.BankAccount)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Bank details updated", user)
}
