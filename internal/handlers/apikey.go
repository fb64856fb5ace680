package handlers

import (
	"lumepay/internal/middleware"
	"lumepay/internal/services/apikey"
	"lumepay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type APIKeyHandler struct {
	keys apikey.Service
}

func NewAPIKeyHandler(keys apikey.Service) *APIKeyHandler {
	return &APIKeyHandler{keys: keys}
}

// Create returns the raw key. It is never shown again.
func (h *APIKeyHandler) Create(c *fiber.Ctx) error {
	var input struct {
		Name string `json:"name"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	key, err := h.keys.Create(c.UserContext(), middleware.CurrentUser(c).ID, input.Name)
	if err != nil {
		return response.FromError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"apiKey": key})
}

func (h *APIKeyHandler) List(c *fiber.Ctx) error {
	keys, err := h.keys.List(c.UserContext(), middleware.CurrentUser(c).ID)
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(fiber.Map{"apiKeys": keys})
}

func (h *APIKeyHandler) Get(c *fiber.Ctx) error {
	key, err := h.keys.Get(c.UserContext(), middleware.CurrentUser(c).ID, c.Params("id"))
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(fiber.Map{"apiKey": key})
}

func (h *APIKeyHandler) Update(c *fiber.Ctx) error {
	var input apikey.UpdateInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	key, err := h.keys.Update(c.UserContext(), middleware.CurrentUser(c).ID, c.Params("id"), input)
	if err != nil {
		return response.FromError(c, err)
	}
	return c.JSON(fiber.Map{"apiKey": key})
}

func (h *APIKeyHandler) Delete(c *fiber.Ctx) error {
	if err := h.keys.Delete(c.UserContext(), middleware.CurrentUser(c).ID, c.Params("id")); err != nil {
		return response.FromError(c, err)
	}
	return c.SendStatus(fiber.StatusNoContent)
}
