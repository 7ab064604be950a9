package main

import (
	"fmt"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SimulatorConfig describes the deterministic battery model served by the
// fake gateway.
type SimulatorConfig struct {
	InitialBattery float64
	TargetBattery  float64
	CapacityKWh    float64
	PowerKW        float64
	CostPerKWh     float64
	ParkingRate    float64
	TaxPercent     float64
	FailEvery      int
}

type simSession struct {
	id           string
	orderID      string
	vehicleID    string
	location     string
	startedAt    time.Time
	endedAt      *time.Time
	parkingStart *time.Time
	ended        bool
}

// Simulator serves the session gateway API with battery values derived
// purely from elapsed wall-clock time, so repeated runs behave identically.
type Simulator struct {
	cfg SimulatorConfig
	log *zap.Logger
	app *fiber.App

	mu       sync.Mutex
	sessions map[string]*simSession
	requests int
}

func NewSimulator(cfg SimulatorConfig, log *zap.Logger) *Simulator {
	s := &Simulator{
		cfg:      cfg,
		log:      log,
		sessions: make(map[string]*simSession),
	}

	app := fiber.New(fiber.Config{
		AppName:               "chargewatch-simulator",
		DisableStartupMessage: true,
	})

	v1 := app.Group("/api/v1")
	v1.Post("/sessions/start", s.handleStart)
	v1.Get("/sessions/:id/monitor", s.handleMonitor)
	v1.Post("/sessions/:id/end", s.handleEnd)
	v1.Get("/sessions/:id/parking", s.handleParking)
	v1.Get("/sessions/:id/payment", s.handlePaymentDetail)
	v1.Post("/sessions/:id/payment/initiate", s.handleInitiatePayment)

	s.app = app
	return s
}

func (s *Simulator) Listen(port int) error {
	return s.app.Listen(fmt.Sprintf(":%d", port))
}

func (s *Simulator) Stop() {
	s.app.Shutdown()
}

// battery returns the simulated state of charge at time t. Charging runs at
// constant power until the target is reached, then the session moves into
// the parking phase.
func (s *Simulator) battery(sess *simSession, t time.Time) (battery, energy float64) {
	end := t
	if sess.endedAt != nil {
		end = *sess.endedAt
	}
	hours := end.Sub(sess.startedAt).Hours()
	energy = s.cfg.PowerKW * hours
	battery = s.cfg.InitialBattery + energy/s.cfg.CapacityKWh*100
	if battery >= s.cfg.TargetBattery {
		battery = s.cfg.TargetBattery
		energy = (battery - s.cfg.InitialBattery) / 100 * s.cfg.CapacityKWh
	}
	return battery, energy
}

func (s *Simulator) phase(sess *simSession, t time.Time) string {
	if sess.ended {
		return "PARKING"
	}
	battery, _ := s.battery(sess, t)
	if battery >= s.cfg.TargetBattery {
		// Charging finished on its own; the vehicle is now parked.
		s.markParked(sess, t)
		return "PARKING"
	}
	return "CHARGING"
}

func (s *Simulator) markParked(sess *simSession, t time.Time) {
	if sess.ended {
		return
	}
	sess.ended = true
	ended := t
	sess.endedAt = &ended
	parking := t
	sess.parkingStart = &parking
}

func (s *Simulator) handleStart(c *fiber.Ctx) error {
	var req struct {
		OrderID   string `json:"order_id"`
		VehicleID string `json:"vehicle_id"`
		Location  string `json:"location"`
	}
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "invalid body"})
	}
	if req.OrderID == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"message": "order_id is required"})
	}

	sess := &simSession{
		id:        uuid.New().String(),
		orderID:   req.OrderID,
		vehicleID: req.VehicleID,
		location:  req.Location,
		startedAt: time.Now(),
	}

	s.mu.Lock()
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.log.Info("Session started",
		zap.String("session_id", sess.id),
		zap.String("order_id", req.OrderID),
	)
	return c.JSON(fiber.Map{"session_id": sess.id})
}

func (s *Simulator) handleMonitor(c *fiber.Ctx) error {
	s.mu.Lock()
	s.requests++
	inject := s.cfg.FailEvery > 0 && s.requests%s.cfg.FailEvery == 0
	sess, ok := s.sessions[c.Params("id")]
	s.mu.Unlock()

	if inject {
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"message": "injected failure"})
	}
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "session not found"})
	}

	now := time.Now()
	s.mu.Lock()
	phase := s.phase(sess, now)
	battery, energy := s.battery(sess, now)
	s.mu.Unlock()

	cost := energy * s.cfg.CostPerKWh
	elapsed := int64(now.Sub(sess.startedAt).Seconds())

	remaining := 0
	if phase == "CHARGING" && s.cfg.PowerKW > 0 {
		remainingKWh := (s.cfg.TargetBattery - battery) / 100 * s.cfg.CapacityKWh
		remaining = int(remainingKWh / s.cfg.PowerKW * 60)
	}

	return c.JSON(fiber.Map{
		"status":                      phase,
		"current_battery":             battery,
		"target_battery":              s.cfg.TargetBattery,
		"power_consumed":              energy,
		"cost":                        cost,
		"elapsed_seconds":             elapsed,
		"current_time":                now,
		"estimated_remaining_minutes": remaining,
	})
}

func (s *Simulator) handleEnd(c *fiber.Ctx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[c.Params("id")]
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "session not found"})
	}
	s.markParked(sess, time.Now())

	s.log.Info("Session ended", zap.String("session_id", sess.id))
	return c.JSON(fiber.Map{"status": "ok"})
}

func (s *Simulator) handleParking(c *fiber.Ctx) error {
	s.mu.Lock()
	sess, ok := s.sessions[c.Params("id")]
	s.mu.Unlock()
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "session not found"})
	}
	if sess.parkingStart == nil {
		return c.Status(fiber.StatusConflict).JSON(fiber.Map{"message": "session is still charging"})
	}

	now := time.Now()
	_, energy := s.battery(sess, now)
	chargingCost := energy * s.cfg.CostPerKWh
	fee := now.Sub(*sess.parkingStart).Minutes() * s.cfg.ParkingRate

	return c.JSON(fiber.Map{
		"parking_start_time":      sess.parkingStart,
		"current_fee":             fee,
		"charging_cost":           chargingCost,
		"parking_rate_per_minute": s.cfg.ParkingRate,
	})
}

func (s *Simulator) handlePaymentDetail(c *fiber.Ctx) error {
	s.mu.Lock()
	sess, ok := s.sessions[c.Params("id")]
	s.mu.Unlock()
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "session not found"})
	}

	now := time.Now()
	_, energy := s.battery(sess, now)
	base := energy * s.cfg.CostPerKWh
	if sess.parkingStart != nil {
		base += now.Sub(*sess.parkingStart).Minutes() * s.cfg.ParkingRate
	}
	total := base * (1 + s.cfg.TaxPercent/100)

	endTime := now
	if sess.endedAt != nil {
		endTime = *sess.endedAt
	}

	return c.JSON(fiber.Map{
		"user_name":          "Simulator User",
		"station_name":       "Simulated Station",
		"station_address":    "1 Test Drive",
		"session_start_time": sess.startedAt,
		"session_end_time":   endTime,
		"power_consumed":     energy,
		"base_cost":          base,
		"total_fee":          total,
	})
}

func (s *Simulator) handleInitiatePayment(c *fiber.Ctx) error {
	s.mu.Lock()
	sess, ok := s.sessions[c.Params("id")]
	s.mu.Unlock()
	if !ok {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"message": "session not found"})
	}

	s.log.Info("Payment initiated", zap.String("session_id", sess.id))
	return c.JSON(fiber.Map{
		"payment_url": "https://pay.simulator.local/" + sess.id,
	})
}
