package response

import (
	"errors"

	apperrors "lumepay/internal/errors"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog/log"
)

func Success(c *fiber.Ctx, message string, data interface{}) error {
	return c.JSON(fiber.Map{
		"message": message,
		"data":    data,
	})
}

func Created(c *fiber.Ctx, message string, data interface{}) error {
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": message,
		"data":    data,
	})
}

func Error(c *fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}

// DomainError writes the stable error body for an expected failure.
func DomainError(c *fiber.Ctx, e *apperrors.DomainError) error {
	body := fiber.Map{
		"error": e.Message,
		"code":  e.Code,
	}
	if e.Detail != "" {
		body["message"] = e.Detail
	}
	return c.Status(e.Status).JSON(body)
}

// FromError maps any service error to a response. Unexpected errors are
// logged and reported as INTERNAL without their text.
func FromError(c *fiber.Ctx, err error) error {
	if de, ok := apperrors.As(err); ok {
		return DomainError(c, de)
	}
	log.Error().Err(err).
		Str("method", c.Method()).
		Str("path", c.Path()).
		Msg("request failed")
	return DomainError(c, apperrors.ErrInternal)
}

func BadRequest(c *fiber.Ctx, message string) error {
	return DomainError(c, apperrors.ErrInvalidInput.WithDetail(message))
}

func Unauthorized(c *fiber.Ctx) error {
	return DomainError(c, apperrors.ErrInvalidSession)
}

// FiberErrorHandler renders errors that escape handlers, such as unknown
// routes or recovered panics, in the same body shape as domain errors.
func FiberErrorHandler(c *fiber.Ctx, err error) error {
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code := "INTERNAL"
		switch fe.Code {
		case fiber.StatusNotFound:
			code = "NOT_FOUND"
		case fiber.StatusMethodNotAllowed:
			code = "METHOD_NOT_ALLOWED"
		case fiber.StatusRequestEntityTooLarge, fiber.StatusBadRequest:
			code = "INVALID_INPUT"
		}
		return c.Status(fe.Code).JSON(fiber.Map{"error": fe.Message, "code": code})
	}
	return FromError(c, err)
}
