package handlers

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/voltwise/chargewatch/internal/domain"
	"github.com/voltwise/chargewatch/internal/service/session"
)

type SessionHandler struct {
	engine  *session.Engine
	parking *session.ParkingMonitor
	log     *zap.Logger
}

func NewSessionHandler(engine *session.Engine, parking *session.ParkingMonitor, log *zap.Logger) *SessionHandler {
	return &SessionHandler{
		engine:  engine,
		parking: parking,
		log:     log,
	}
}

type StartSessionRequest struct {
	OrderID        string  `json:"order_id"`
	VehicleID      string  `json:"vehicle_id"`
	StationID      string  `json:"station_id"`
	UserID         string  `json:"user_id"`
	ChargerType    string  `json:"charger_type"`
	PowerKW        float64 `json:"power_kw"`
	CostPerUnit    float64 `json:"cost_per_unit"`
	StationName    string  `json:"station_name"`
	StationAddress string  `json:"station_address"`
	UserName       string  `json:"user_name"`
}

func (h *SessionHandler) Start(c *fiber.Ctx) error {
	var req StartSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "Invalid body"})
	}
	if req.OrderID == "" || req.StationID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "order_id and station_id are required"})
	}

	s, err := h.engine.Start(c.Context(), session.StartParams{
		OrderID:        req.OrderID,
		VehicleID:      req.VehicleID,
		StationID:      req.StationID,
		UserID:         req.UserID,
		ChargerType:    req.ChargerType,
		PowerKW:        req.PowerKW,
		CostPerUnit:    req.CostPerUnit,
		StationName:    req.StationName,
		StationAddress: req.StationAddress,
		UserName:       req.UserName,
	})
	if err != nil {
		return err
	}
	return c.Status(fiber.StatusCreated).JSON(s)
}

// SessionView is what the UI polls for rendering: the session plus the
// smooth displayed metrics and the corrected elapsed time.
type SessionView struct {
	Session        *domain.ChargingSession `json:"session"`
	Metrics        domain.DisplayedMetrics `json:"metrics"`
	ElapsedSeconds int64                   `json:"elapsed_seconds"`
}

func (h *SessionHandler) Get(c *fiber.Ctx) error {
	s := h.engine.Session()
	if s == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No active session"})
	}
	return c.JSON(SessionView{
		Session:        s,
		Metrics:        h.engine.Metrics(),
		ElapsedSeconds: h.engine.ElapsedSeconds(),
	})
}

func (h *SessionHandler) Pause(c *fiber.Ctx) error {
	if err := h.engine.Pause(c.Context()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "paused"})
}

func (h *SessionHandler) Resume(c *fiber.Ctx) error {
	if err := h.engine.Resume(c.Context()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "charging"})
}

func (h *SessionHandler) Stop(c *fiber.Ctx) error {
	if err := h.engine.Stop(c.Context()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "stopped"})
}

func (h *SessionHandler) Refresh(c *fiber.Ctx) error {
	if err := h.engine.RefreshNow(c.Context()); err != nil {
		return err
	}
	return h.Get(c)
}

func (h *SessionHandler) RetryParking(c *fiber.Ctx) error {
	if err := h.engine.RetryParkingHandoff(c.Context()); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"status": "ok"})
}

// ParkingView renders the post-charge parking phase with the locally
// derived running fee.
type ParkingView struct {
	Summary    domain.ParkingSessionSummary `json:"summary"`
	CurrentFee float64                      `json:"current_fee"`
}

func (h *SessionHandler) Parking(c *fiber.Ctx) error {
	summary := h.parking.Summary()
	if summary.SessionID == "" {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "No parking session"})
	}
	return c.JSON(ParkingView{
		Summary:    summary,
		CurrentFee: h.parking.CurrentFee(),
	})
}
