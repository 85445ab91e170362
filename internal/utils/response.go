package utils

import (
	"errors"

	"github.com/Sharon404/wallet-app/internal/apperr"

	"github.com/gofiber/fiber/v2"
)

// Respond sends a JSON response with the specified status code.
func Respond(c *fiber.Ctx, status int, data interface{}) error {
	return c.Status(status).JSON(data)
}

// Success sends a successful JSON response.
func Success(c *fiber.Ctx, data interface{}) error {
	return Respond(c, fiber.StatusOK, data)
}

// BadRequest sends a JSON error response with status 400.
func BadRequest(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusBadRequest, fiber.Map{"error": message})
}

// Unauthorized sends a JSON error response with status 401.
func Unauthorized(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusUnauthorized, fiber.Map{"error": message})
}

// Forbidden sends a JSON error response with status 403.
func Forbidden(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusForbidden, fiber.Map{"error": message})
}

// NotFound sends a JSON error response with status 404.
func NotFound(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusNotFound, fiber.Map{"error": message})
}

// InternalError sends a JSON error response with status 500.
func InternalError(c *fiber.Ctx, message string) error {
	return Respond(c, fiber.StatusInternalServerError, fiber.Map{"error": message})
}

// AppError maps a domain error to its JSON response. Unrecognized errors
// become an opaque 500 so internals never leak to clients.
func AppError(c *fiber.Ctx, err error) error {
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return Respond(c, ae.Status, fiber.Map{"error": ae.Message, "code": ae.Code})
	}
	var pe *apperr.ProviderError
	if errors.As(err, &pe) {
		if pe.Kind == apperr.ProviderRejected {
			return Respond(c, fiber.StatusBadRequest, fiber.Map{"error": pe.Message, "code": "PROVIDER_REJECTED"})
		}
		return Respond(c, fiber.StatusBadGateway, fiber.Map{"error": "payment provider unavailable", "code": "PROVIDER_UNAVAILABLE"})
	}
	return InternalError(c, "internal server error")
}
