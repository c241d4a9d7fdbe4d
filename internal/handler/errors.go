package handler

import (
	"errors"

	"go-inventory-ledger/internal/service"
	"go-inventory-ledger/pkg/jwt"
	"go-inventory-ledger/pkg/logger"

	"github.com/gofiber/fiber/v2"
)

// respondError maps a service error to a status code and the usual
// {"error": "..."} body. Unexpected errors are logged and hidden.
func respondError(c *fiber.Ctx, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case errors.Is(err, service.ErrValidation),
		errors.Is(err, service.ErrReference),
		errors.Is(err, service.ErrInsufficientQuantity):
		status = fiber.StatusBadRequest
	case errors.Is(err, service.ErrNotFound):
		status = fiber.StatusNotFound
	case errors.Is(err, service.ErrConflict):
		status = fiber.StatusConflict
	case errors.Is(err, service.ErrInvalidCredentials),
		errors.Is(err, service.ErrUserInactive),
		errors.Is(err, service.ErrSessionExpired),
		errors.Is(err, jwt.ErrInvalidToken),
		errors.Is(err, jwt.ErrMissingToken):
		status = fiber.StatusUnauthorized
	}

	if status == fiber.StatusInternalServerError {
		logger.Error(c.UserContext()).Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Msg("request failed")
		return c.Status(status).JSON(fiber.Map{"error": "Internal Server Error"})
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
