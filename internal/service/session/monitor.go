package session

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/voltwise/chargewatch/internal/adapter/queue"
	"github.com/voltwise/chargewatch/internal/domain"
	"github.com/voltwise/chargewatch/internal/observability/telemetry"
)

// RefreshNow forces an immediate authoritative poll. Unlike the periodic
// poll, failures here are surfaced to the caller so the UI can toast them.
func (e *Engine) RefreshNow(ctx context.Context) error {
	return e.pollOnce(ctx, true)
}

// pollOnce fetches one monitoring snapshot and reconciles local state with
// it. A single-flight guard drops overlapping polls; a session-id check
// drops responses that arrive after the session changed.
func (e *Engine) pollOnce(ctx context.Context, manual bool) error {
	e.mu.Lock()
	if e.session == nil || e.pollInFlight {
		e.mu.Unlock()
		return nil
	}
	status := e.session.Status
	if status != domain.SessionStatusCharging && !manual {
		e.mu.Unlock()
		return nil
	}
	e.pollInFlight = true
	sessionID := e.session.SessionID
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		e.pollInFlight = false
		e.mu.Unlock()
	}()

	start := e.clk.Now()
	snap, err := e.gateway.MonitoringSnapshot(ctx, sessionID)
	telemetry.PollLatency.Observe(e.clk.Now().Sub(start).Seconds())

	e.mu.Lock()
	if e.session == nil || e.session.SessionID != sessionID {
		// Late response for a session we no longer track.
		e.mu.Unlock()
		return nil
	}

	if err != nil {
		return e.handlePollErrorLocked(ctx, err, manual)
	}

	e.authBudget.Reset()
	telemetry.PollsTotal.WithLabelValues("ok").Inc()

	switch snap.Status {
	case domain.RemotePhaseParking:
		e.beginPhaseTransitionLocked(ctx)
		// Lock released; fetch parking details outside it.
		return e.completeParkingHandoff(ctx, sessionID)
	case domain.RemotePhaseCompleted:
		e.completeRemotelyLocked(ctx)
		return nil
	default:
		promptFull := e.applySnapshotLocked(ctx, snap)
		e.mu.Unlock()
		if promptFull {
			e.notifyFullBattery()
		}
		return nil
	}
}

// applySnapshotLocked reconciles one authoritative snapshot and reports
// whether the full-battery prompt should fire. Caller must hold mu.
func (e *Engine) applySnapshotLocked(ctx context.Context, snap *domain.MonitoringSnapshot) bool {
	s := e.session
	now := e.clk.Now()

	// Initial and target battery are seeded exactly once per session.
	if !s.BatterySeeded {
		s.InitialBattery = snap.CurrentBattery
		s.TargetBattery = snap.TargetBattery
		s.BatterySeeded = true
	}

	// The gateway is authoritative but the displayed battery never moves
	// backwards within a session.
	if snap.CurrentBattery > s.CurrentBattery {
		s.CurrentBattery = snap.CurrentBattery
	}
	s.EnergyConsumed = snap.PowerConsumed
	s.TotalCost = snap.Cost
	s.EstimatedRemainingMinutes = snap.EstimatedRemainingMinutes

	e.snapElapsedLocked(snap, now)

	if !e.frozen {
		e.sim.seed(domain.SimulationSample{
			Battery:        s.CurrentBattery,
			EnergyConsumed: snap.PowerConsumed,
			Cost:           snap.Cost,
			CapturedAt:     now,
		})
	}

	promptFull := false
	if s.CurrentBattery >= 100 && !e.fullPrompted {
		e.fullPrompted = true
		promptFull = true
	}

	e.persistLocked(ctx)
	return promptFull
}

// snapElapsedLocked corrects the local elapsed-time offset when it drifted
// beyond tolerance from the server's figure. Small drift is left alone so
// the displayed timer does not visibly jump.
func (e *Engine) snapElapsedLocked(snap *domain.MonitoringSnapshot, now time.Time) {
	if snap.ElapsedSeconds == nil {
		return
	}
	server := time.Duration(*snap.ElapsedSeconds) * time.Second
	local := now.Sub(e.session.StartTime) + e.elapsedOffset
	diff := server - local
	if diff < 0 {
		diff = -diff
	}
	if diff > e.monitorCfg.ElapsedTolerance {
		e.elapsedOffset = server - now.Sub(e.session.StartTime)
	}
}

// handlePollErrorLocked routes a failed poll through the error taxonomy.
// Caller must hold mu; the lock is released before any callback fires.
func (e *Engine) handlePollErrorLocked(ctx context.Context, err error, manual bool) error {
	switch {
	case domain.IsAuthExpired(err):
		telemetry.PollsTotal.WithLabelValues("auth_expired").Inc()
		tripped := e.authBudget.Observe()
		if !tripped {
			e.log.Debug("Auth failure tolerated",
				zap.Int("consecutive", e.authBudget.Count()),
			)
			e.mu.Unlock()
			return nil
		}
		e.teardownLocked()
		e.mu.Unlock()
		telemetry.AuthExpiriesTotal.Inc()
		e.log.Warn("Auth retry budget exhausted, clearing credentials")
		if e.creds != nil {
			e.creds.Expire()
		}
		return err

	case domain.IsNotFound(err):
		telemetry.PollsTotal.WithLabelValues("not_found").Inc()
		s := e.session
		s.Status = domain.SessionStatusStopped
		now := e.clk.Now()
		s.EndTime = &now
		e.persistLocked(ctx)
		e.teardownLocked()
		copied := *s
		e.mu.Unlock()
		e.publishEvent(queue.SubjectSessionStopped, &copied)
		e.notify(NoticeError, "Charging session no longer exists on the server")
		return err

	case domain.IsValidation(err):
		telemetry.PollsTotal.WithLabelValues("rejected").Inc()
		e.mu.Unlock()
		e.notify(NoticeError, err.Error())
		return err

	default:
		telemetry.PollsTotal.WithLabelValues("transient").Inc()
		e.mu.Unlock()
		e.log.Warn("Monitoring poll failed", zap.Error(err))
		if manual {
			e.notify(NoticeWarning, "Could not refresh charging status, will keep trying")
			return err
		}
		// Periodic polls stay silent; the next tick will try again.
		return nil
	}
}

// beginPhaseTransitionLocked flips the session out of charging synchronously
// so a concurrent poll cannot start a second handoff, then releases the lock.
func (e *Engine) beginPhaseTransitionLocked(ctx context.Context) {
	s := e.session
	if !e.transitioned {
		e.transitioned = true
		s.Status = domain.SessionStatusStopped
		now := e.clk.Now()
		s.EndTime = &now
		e.persistLocked(ctx)
		e.teardownLocked()
		telemetry.PhaseTransitionsTotal.WithLabelValues("parking").Inc()
	}
	e.mu.Unlock()
}

// completeParkingHandoff fetches the parking snapshot and emits the one-shot
// summary. A fetch failure is downgraded to a recoverable warning; the
// summary can then be produced later via RetryParkingHandoff.
func (e *Engine) completeParkingHandoff(ctx context.Context, sessionID string) error {
	snap, err := e.gateway.ParkingSnapshot(ctx, sessionID)

	e.mu.Lock()
	if e.session == nil || e.session.SessionID != sessionID || e.handoffDone {
		e.mu.Unlock()
		return nil
	}
	if err != nil {
		e.mu.Unlock()
		e.log.Warn("Parking details unavailable after phase transition",
			zap.String("session_id", sessionID),
			zap.Error(err),
		)
		e.notify(NoticeWarning, "Charging finished, but parking details could not be loaded. Tap to retry.")
		return nil
	}

	e.parkingState = snap
	summary := e.buildParkingSummaryLocked(snap)
	e.handoffDone = true
	copied := *e.session
	e.mu.Unlock()

	e.publishEvent(queue.SubjectSessionParking, &copied)
	if e.callbacks.OnParking != nil {
		e.callbacks.OnParking(summary)
	}
	return nil
}

// RetryParkingHandoff re-attempts the parking summary after a failed fetch
// during the phase transition. No-op if the handoff already happened.
func (e *Engine) RetryParkingHandoff(ctx context.Context) error {
	e.mu.Lock()
	if e.session == nil || !e.transitioned || e.handoffDone {
		e.mu.Unlock()
		return nil
	}
	sessionID := e.session.SessionID
	e.mu.Unlock()

	return e.completeParkingHandoff(ctx, sessionID)
}

// buildParkingSummaryLocked assembles the immutable handoff payload. When
// the server omits the parking start time it falls back to the charging end
// time. Caller must hold mu.
func (e *Engine) buildParkingSummaryLocked(snap *domain.ParkingSnapshot) domain.ParkingSessionSummary {
	s := e.session

	endTime := e.clk.Now()
	if s.EndTime != nil {
		endTime = *s.EndTime
	}
	parkingStart := endTime
	if snap.ParkingStartTime != nil {
		parkingStart = *snap.ParkingStartTime
	}

	totalCost := s.TotalCost
	if snap.ChargingCost > 0 {
		totalCost = snap.ChargingCost
	}

	return domain.ParkingSessionSummary{
		SessionID:            s.SessionID,
		BookingID:            s.BookingID,
		StationName:          s.StationName,
		StationAddress:       s.StationAddress,
		StartTime:            s.StartTime,
		EndTime:              endTime,
		EnergyConsumed:       s.EnergyConsumed,
		TotalCost:            totalCost,
		ParkingStartTime:     parkingStart,
		ParkingRatePerMinute: snap.ParkingRatePerMinute,
		ChargerType:          s.ChargerType,
		UserName:             s.UserName,
	}
}

// completeRemotelyLocked handles the gateway reporting the session as fully
// finished. Caller must hold mu; the lock is released before archiving.
func (e *Engine) completeRemotelyLocked(ctx context.Context) {
	s := e.session
	s.Status = domain.SessionStatusCompleted
	if s.EndTime == nil {
		now := e.clk.Now()
		s.EndTime = &now
	}
	e.persistLocked(ctx)
	e.teardownLocked()
	telemetry.PhaseTransitionsTotal.WithLabelValues("completed").Inc()
	copied := *s
	e.mu.Unlock()

	e.archive(ctx, &copied)
	e.publishEvent(queue.SubjectSessionCompleted, &copied)
}
