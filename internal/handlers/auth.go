package handlers

import (
	"lumepay/internal/middleware"
	"lumepay/internal/services/auth"
	"lumepay/internal/utils/response"

	"github.com/gofiber/fiber/v2"
)

type AuthHandler struct {
	authService auth.Service
}

func NewAuthHandler(authService auth.Service) *AuthHandler {
	return &AuthHandler{authService: authService}
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var input auth.RegisterInput
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	sess, err := h.authService.Register(c.UserContext(), input)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Created(c, "Account created", sess)
}

// Login handles merchant authentication and returns a session token.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var input struct {
		Email    string `json:"email"`
		Password string `json:"password"`
	}
	if err := c.BodyParser(&input); err != nil {
		return response.BadRequest(c, "Invalid request body")
	}

	sess, err := h.authService.Login(c.UserContext(), input.Email, input.Password)
	if err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Login successful", sess)
}

// Logout revokes every session of the current merchant.
func (h *AuthHandler) Logout(c *fiber.Ctx) error {
	if err := h.authService.Logout(c.UserContext(), middleware.CurrentUser(c).ID); err != nil {
		return response.FromError(c, err)
	}
	return response.Success(c, "Logged out", nil)
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	return response.Success(c, "Current user", middleware.CurrentUser(c))
}
