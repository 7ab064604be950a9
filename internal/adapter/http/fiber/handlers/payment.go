package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/voltwise/chargewatch/internal/domain"
	"github.com/voltwise/chargewatch/internal/service/payment"
)

type PaymentHandler struct {
	service *payment.Service
	log     *zap.Logger
}

func NewPaymentHandler(service *payment.Service, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{
		service: service,
		log:     log,
	}
}

func (h *PaymentHandler) GetBill(c *fiber.Ctx) error {
	detail, err := h.service.FetchBill(c.Context())
	if err != nil {
		return err
	}
	return c.JSON(detail)
}

type InitiatePaymentRequest struct {
	Method string `json:"method"`
}

func (h *PaymentHandler) Initiate(c *fiber.Ctx) error {
	var req InitiatePaymentRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}

	method := domain.PaymentMethod(req.Method)
	switch method {
	case domain.PaymentMethodCard, domain.PaymentMethodUPI, domain.PaymentMethodWallet:
	default:
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Unsupported payment method"})
	}

	url, err := h.service.Initiate(c.Context(), method)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"payment_url": url})
}
