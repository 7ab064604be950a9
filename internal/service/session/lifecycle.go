package session

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/voltwise/chargewatch/internal/adapter/queue"
	"github.com/voltwise/chargewatch/internal/domain"
)

// StartParams carries everything needed to open a new charging session.
type StartParams struct {
	OrderID   string
	VehicleID string
	StationID string
	UserID    string

	ChargerType string
	PowerKW     float64
	CostPerUnit float64

	StationName    string
	StationAddress string
	UserName       string
}

var (
	ErrSessionActive   = errors.New("a session is already active")
	ErrNoActiveSession = errors.New("no active session")
	ErrStopInFlight    = errors.New("stop already in progress")
)

// Start opens a session on the gateway and begins monitoring it. Gateway
// validation errors (wrong slot, too far from the station) are returned
// verbatim for the UI to display.
func (e *Engine) Start(ctx context.Context, params StartParams) (*domain.ChargingSession, error) {
	e.mu.Lock()
	if e.session != nil {
		e.mu.Unlock()
		return nil, ErrSessionActive
	}
	e.mu.Unlock()

	sessionID, err := e.gateway.StartSession(ctx, params.OrderID, params.VehicleID, params.StationID)
	if err != nil {
		return nil, err
	}

	now := e.clk.Now()
	s := &domain.ChargingSession{
		SessionID:      sessionID,
		BookingID:      params.OrderID,
		StationID:      params.StationID,
		UserID:         params.UserID,
		VehicleID:      params.VehicleID,
		Status:         domain.SessionStatusCharging,
		StartTime:      now,
		ChargerType:    params.ChargerType,
		PowerKW:        params.PowerKW,
		CostPerUnit:    params.CostPerUnit,
		StationName:    params.StationName,
		StationAddress: params.StationAddress,
		UserName:       params.UserName,
	}

	e.mu.Lock()
	if e.session != nil {
		e.mu.Unlock()
		return nil, ErrSessionActive
	}
	e.resetForSessionLocked(s)
	e.persistLocked(ctx)
	e.startLoopsLocked()
	copied := *s
	e.mu.Unlock()

	e.log.Info("Charging session started",
		zap.String("session_id", s.SessionID),
		zap.String("station_id", s.StationID),
	)
	e.publishEvent(queue.SubjectSessionStarted, &copied)

	// Seed local state from the first authoritative snapshot right away.
	go e.pollOnce(context.Background(), false)

	return &copied, nil
}

// Restore resumes monitoring the persisted session after a restart. It is a
// no-op when the store holds nothing or the stored session already finished.
func (e *Engine) Restore(ctx context.Context) (*domain.ChargingSession, error) {
	stored, err := e.store.LoadCurrent(ctx)
	if err != nil {
		if domain.IsNotFound(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to restore session: %w", err)
	}

	switch stored.Status {
	case domain.SessionStatusCharging, domain.SessionStatusPaused:
	default:
		return nil, nil
	}

	e.mu.Lock()
	if e.session != nil {
		e.mu.Unlock()
		return nil, ErrSessionActive
	}
	e.resetForSessionLocked(stored)
	e.startLoopsLocked()
	copied := *stored
	e.mu.Unlock()

	e.log.Info("Charging session restored",
		zap.String("session_id", stored.SessionID),
		zap.String("status", string(stored.Status)),
	)

	go e.pollOnce(context.Background(), false)
	return &copied, nil
}

// resetForSessionLocked installs a session and clears all per-session
// flags. Caller must hold mu.
func (e *Engine) resetForSessionLocked(s *domain.ChargingSession) {
	e.session = s
	e.elapsedOffset = 0
	e.frozen = false
	e.transitioned = false
	e.handoffDone = false
	e.fullPrompted = s.CurrentBattery >= 100
	e.stopInFlight = false
	e.parkingState = nil
	e.authBudget.Reset()
	e.sim.seed(domain.SimulationSample{
		Battery:        s.CurrentBattery,
		EnergyConsumed: s.EnergyConsumed,
		Cost:           s.TotalCost,
		CapturedAt:     e.clk.Now(),
	})
}

// Pause suspends the local session. There is no gateway contract for
// pausing, so this only stops the simulation and polling until Resume.
func (e *Engine) Pause(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return ErrNoActiveSession
	}
	if e.session.Status != domain.SessionStatusCharging {
		return nil
	}
	e.session.Status = domain.SessionStatusPaused
	e.persistLocked(ctx)
	return nil
}

// Resume returns a paused session to charging. The next poll re-anchors the
// simulation on fresh authoritative values.
func (e *Engine) Resume(ctx context.Context) error {
	e.mu.Lock()
	if e.session == nil {
		e.mu.Unlock()
		return ErrNoActiveSession
	}
	if e.session.Status != domain.SessionStatusPaused {
		e.mu.Unlock()
		return nil
	}
	e.session.Status = domain.SessionStatusCharging
	e.sim.seed(domain.SimulationSample{
		Battery:        e.session.CurrentBattery,
		EnergyConsumed: e.session.EnergyConsumed,
		Cost:           e.session.TotalCost,
		CapturedAt:     e.clk.Now(),
	})
	e.persistLocked(ctx)
	e.mu.Unlock()
	return nil
}

// Stop ends the session on the gateway. The local status flips to stopped
// before the call so the simulation halts immediately; if the gateway call
// fails the previous status is restored and the clock resumes.
func (e *Engine) Stop(ctx context.Context) error {
	e.mu.Lock()
	if e.session == nil {
		e.mu.Unlock()
		return ErrNoActiveSession
	}
	if e.stopInFlight {
		e.mu.Unlock()
		return ErrStopInFlight
	}
	if e.session.Status == domain.SessionStatusStopped || e.session.Status == domain.SessionStatusCompleted {
		e.mu.Unlock()
		return nil
	}
	e.stopInFlight = true
	prevStatus := e.session.Status
	e.session.Status = domain.SessionStatusStopped
	sessionID := e.session.SessionID
	e.mu.Unlock()

	err := e.gateway.EndSession(ctx, sessionID)

	e.mu.Lock()
	defer func() {
		e.stopInFlight = false
		e.mu.Unlock()
	}()

	if e.session == nil || e.session.SessionID != sessionID {
		return nil
	}

	if err != nil {
		// Roll back; if the session was charging the simulation picks up
		// again from the current anchor.
		e.session.Status = prevStatus
		if prevStatus == domain.SessionStatusCharging {
			e.sim.seed(domain.SimulationSample{
				Battery:        e.session.CurrentBattery,
				EnergyConsumed: e.session.EnergyConsumed,
				Cost:           e.session.TotalCost,
				CapturedAt:     e.clk.Now(),
			})
		}
		e.log.Warn("Failed to end session, rolled back",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		return err
	}

	now := e.clk.Now()
	e.session.EndTime = &now
	e.persistLocked(ctx)
	e.teardownLocked()
	copied := *e.session

	e.log.Info("Charging session stopped", zap.String("session_id", sessionID))

	go func() {
		e.archive(context.Background(), &copied)
		e.publishEvent(queue.SubjectSessionStopped, &copied)
	}()
	return nil
}

// FreezeMetrics pins the displayed metrics onto the authoritative bill.
// From here on the simulation clock never touches them again.
func (e *Engine) FreezeMetrics(detail *domain.PaymentDetail) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.session == nil {
		return
	}
	e.frozen = true
	e.sim.metrics = domain.DisplayedMetrics{
		SmoothBattery: e.session.CurrentBattery,
		SmoothEnergy:  detail.PowerConsumed,
		SmoothCost:    detail.Amount(),
	}
	e.session.EnergyConsumed = detail.PowerConsumed
	e.session.TotalCost = detail.Amount()
}

// CompletePayment marks the session as paid: it is archived, announced and
// removed from the store so no stale session survives the payment.
func (e *Engine) CompletePayment(ctx context.Context) error {
	e.mu.Lock()
	if e.session == nil {
		e.mu.Unlock()
		return ErrNoActiveSession
	}
	e.session.Status = domain.SessionStatusCompleted
	if e.session.EndTime == nil {
		now := e.clk.Now()
		e.session.EndTime = &now
	}
	e.teardownLocked()
	copied := *e.session
	e.session = nil
	e.mu.Unlock()

	if err := e.store.Delete(ctx, copied.SessionID); err != nil {
		e.log.Warn("Failed to clear session from store",
			zap.String("session_id", copied.SessionID),
			zap.Error(err),
		)
	}

	e.archive(ctx, &copied)
	e.publishEvent(queue.SubjectSessionPaid, &copied)

	e.log.Info("Session completed and cleared",
		zap.String("session_id", copied.SessionID),
	)
	return nil
}
