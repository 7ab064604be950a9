package middleware

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/voltwise/chargewatch/internal/domain"
)

// ErrorHandler maps domain errors onto HTTP statuses and logs the rest.
func ErrorHandler(log *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError

		switch {
		case domain.IsAuthExpired(err):
			code = fiber.StatusUnauthorized
		case domain.IsNotFound(err):
			code = fiber.StatusNotFound
		case domain.IsValidation(err):
			code = fiber.StatusUnprocessableEntity
		case domain.IsTransient(err):
			code = fiber.StatusServiceUnavailable
		default:
			if e, ok := err.(*fiber.Error); ok {
				code = e.Code
			}
		}

		if code == fiber.StatusInternalServerError {
			log.Error("Internal Server Error", zap.Error(err), zap.String("path", c.Path()))
		}

		return c.Status(code).JSON(fiber.Map{
			"error": err.Error(),
		})
	}
}
