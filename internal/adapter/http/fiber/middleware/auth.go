package middleware

import (
	"strings"

	"github.com/gofiber/fiber/v2"
)

// TokenSink receives the caller's bearer credential so downstream gateway
// calls can reuse it. Token issuing stays with the external auth backend;
// this middleware only captures what the UI already holds.
type TokenSink interface {
	SetToken(token string)
}

func CaptureToken(sink TokenSink) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get("Authorization")
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Missing authorization header"})
		}

		parts := strings.Split(authHeader, " ")
		if len(parts) != 2 || parts[0] != "Bearer" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{"error": "Invalid authorization header format"})
		}

		sink.SetToken(parts[1])
		return c.Next()
	}
}
