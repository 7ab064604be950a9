package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/voltwise/chargewatch/internal/ports"
)

type HistoryHandler struct {
	history ports.SessionHistoryRepository
	log     *zap.Logger
}

func NewHistoryHandler(history ports.SessionHistoryRepository, log *zap.Logger) *HistoryHandler {
	return &HistoryHandler{
		history: history,
		log:     log,
	}
}

func (h *HistoryHandler) List(c *fiber.Ctx) error {
	userID := c.Query("user_id")
	if userID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "user_id is required"})
	}
	limit := c.QueryInt("limit", 50)

	sessions, err := h.history.FindSessionsByUser(c.Context(), userID, limit)
	if err != nil {
		return err
	}
	return c.JSON(sessions)
}
