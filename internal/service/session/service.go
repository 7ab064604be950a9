package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voltwise/chargewatch/internal/adapter/queue"
	"github.com/voltwise/chargewatch/internal/domain"
	"github.com/voltwise/chargewatch/internal/infrastructure/clock"
	"github.com/voltwise/chargewatch/internal/infrastructure/retry"
	"github.com/voltwise/chargewatch/internal/observability/telemetry"
	"github.com/voltwise/chargewatch/internal/ports"
	"github.com/voltwise/chargewatch/pkg/config"
)

// NoticeLevel classifies user-facing notices emitted by the engine.
type NoticeLevel string

const (
	NoticeInfo    NoticeLevel = "info"
	NoticeWarning NoticeLevel = "warning"
	NoticeError   NoticeLevel = "error"
)

// Credentials is the slice of the token store the engine needs: clearing
// after repeated auth failures.
type Credentials interface {
	Expire()
}

// Callbacks are the engine's outbound notifications to the UI layer. All
// fields are optional; nil callbacks are skipped. Callbacks are invoked
// while the engine lock is NOT held.
type Callbacks struct {
	// OnParking fires exactly once per session when the charging phase ends
	// and the parking summary is available.
	OnParking func(summary domain.ParkingSessionSummary)
	// OnNotice surfaces toasts: transient failures on manual calls,
	// fatal session loss, parking handoff problems.
	OnNotice func(level NoticeLevel, message string)
	// OnFullBattery fires at most once per session when the battery
	// reaches 100%.
	OnFullBattery func()
}

// Engine drives one charging session: it owns the fast simulation tick, the
// slow authoritative poll, the lifecycle transitions and the persisted copy.
// All mutable state is guarded by mu; ticker goroutines are torn down
// together exactly once per session.
type Engine struct {
	gateway ports.SessionGateway
	store   ports.SessionStore
	history ports.SessionHistoryRepository
	events  queue.MessageQueue
	creds   Credentials
	clk     clock.Clock
	log     *zap.Logger

	monitorCfg config.MonitorConfig
	callbacks  Callbacks

	mu            sync.Mutex
	session       *domain.ChargingSession
	sim           *simClock
	elapsedOffset time.Duration
	frozen        bool

	pollInFlight  bool
	stopInFlight  bool
	transitioned  bool
	handoffDone   bool
	fullPrompted  bool
	parkingState  *domain.ParkingSnapshot
	authBudget    *retry.Budget
	stopCh        chan struct{}
	loopWG        sync.WaitGroup
}

type EngineDeps struct {
	Gateway ports.SessionGateway
	Store   ports.SessionStore
	History ports.SessionHistoryRepository
	Events  queue.MessageQueue
	Creds   Credentials
	Clock   clock.Clock
	Log     *zap.Logger
}

func NewEngine(deps EngineDeps, monitorCfg config.MonitorConfig, batteryCfg config.BatteryConfig, authCfg config.AuthConfig, callbacks Callbacks) *Engine {
	if deps.Clock == nil {
		deps.Clock = clock.New()
	}
	if deps.Events == nil {
		deps.Events = queue.NewNoopQueue()
	}
	maxRetries := authCfg.MaxAuthRetries
	if maxRetries <= 0 {
		maxRetries = 3
	}
	return &Engine{
		gateway:    deps.Gateway,
		store:      deps.Store,
		history:    deps.History,
		events:     deps.Events,
		creds:      deps.Creds,
		clk:        deps.Clock,
		log:        deps.Log,
		monitorCfg: monitorCfg,
		callbacks:  callbacks,
		sim:        newSimClock(batteryCfg.CapacityKWh, monitorCfg.FreshnessWindow),
		authBudget: retry.NewBudget(maxRetries),
	}
}

// Session returns a copy of the current session, or nil when idle.
func (e *Engine) Session() *domain.ChargingSession {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return nil
	}
	copied := *e.session
	return &copied
}

// Metrics returns the currently displayed metrics.
func (e *Engine) Metrics() domain.DisplayedMetrics {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sim.metrics
}

// ElapsedSeconds returns the displayed elapsed time, corrected toward the
// server's elapsed figure whenever the drift exceeded the tolerance.
func (e *Engine) ElapsedSeconds() int64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.session == nil {
		return 0
	}
	elapsed := e.clk.Now().Sub(e.session.StartTime) + e.elapsedOffset
	if elapsed < 0 {
		return 0
	}
	return int64(elapsed.Seconds())
}

// ParkingState returns the last fetched parking snapshot, if any.
func (e *Engine) ParkingState() *domain.ParkingSnapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.parkingState == nil {
		return nil
	}
	copied := *e.parkingState
	return &copied
}

// startLoops launches the two per-session tickers. Caller must hold mu.
func (e *Engine) startLoopsLocked() {
	if e.stopCh != nil {
		return
	}
	e.stopCh = make(chan struct{})
	telemetry.ActiveSessions.Inc()

	stop := e.stopCh
	e.loopWG.Add(1)
	go e.run(stop)
}

// teardownLocked cancels both tickers exactly once. Caller must hold mu.
func (e *Engine) teardownLocked() {
	if e.stopCh == nil {
		return
	}
	close(e.stopCh)
	e.stopCh = nil
	telemetry.ActiveSessions.Dec()
}

// Close tears down any running loops and waits for them to exit.
func (e *Engine) Close() {
	e.mu.Lock()
	e.teardownLocked()
	e.mu.Unlock()
	e.loopWG.Wait()
}

func (e *Engine) run(stop <-chan struct{}) {
	defer e.loopWG.Done()

	tick := e.clk.NewTicker(e.monitorCfg.TickInterval)
	defer tick.Stop()
	poll := e.clk.NewTicker(e.monitorCfg.PollInterval)
	defer poll.Stop()

	for {
		select {
		case <-stop:
			return
		case <-tick.C():
			e.Tick()
		case <-poll.C():
			go e.pollOnce(context.Background(), false)
		}
	}
}

// Tick advances the simulation clock by one step. It is a no-op while the
// anchor is fresh, the session is not actively charging, or the metrics are
// frozen for payment. Once the displayed battery reaches 100 the clock halts
// until the next authoritative poll re-anchors it.
func (e *Engine) Tick() {
	var (
		promptFull bool
	)

	e.mu.Lock()
	if e.session == nil || e.session.Status != domain.SessionStatusCharging || e.frozen {
		e.mu.Unlock()
		return
	}
	now := e.clk.Now()
	if e.sim.fresh(now) {
		e.mu.Unlock()
		return
	}
	if e.sim.metrics.SmoothBattery >= 100 {
		e.mu.Unlock()
		return
	}
	metrics := e.sim.advance(now, e.session.PowerKW, e.session.CostPerUnit)
	if metrics.SmoothBattery >= 100 && !e.fullPrompted {
		e.fullPrompted = true
		promptFull = true
	}
	e.mu.Unlock()

	if promptFull {
		e.notifyFullBattery()
	}
}

func (e *Engine) notifyFullBattery() {
	if e.callbacks.OnFullBattery != nil {
		e.callbacks.OnFullBattery()
	}
}

func (e *Engine) notify(level NoticeLevel, message string) {
	if e.callbacks.OnNotice != nil {
		e.callbacks.OnNotice(level, message)
	}
}

// persistLocked saves the current session snapshot. Store failures are
// logged, never fatal: the gateway remains the source of truth. Caller must
// hold mu.
func (e *Engine) persistLocked(ctx context.Context) {
	if e.session == nil {
		return
	}
	copied := *e.session
	if err := e.store.Save(ctx, &copied); err != nil {
		e.log.Warn("Failed to persist session",
			zap.String("session_id", copied.SessionID),
			zap.Error(err),
		)
	}
}

func (e *Engine) publishEvent(subject string, s *domain.ChargingSession) {
	event := queue.SessionEvent{
		SessionID: s.SessionID,
		BookingID: s.BookingID,
		StationID: s.StationID,
		Status:    string(s.Status),
		At:        e.clk.Now(),
	}
	if err := queue.PublishEvent(e.events, subject, event); err != nil {
		e.log.Warn("Failed to publish session event",
			zap.String("subject", subject),
			zap.Error(err),
		)
	}
}

func (e *Engine) archive(ctx context.Context, s *domain.ChargingSession) {
	if e.history == nil {
		return
	}
	if err := e.history.ArchiveSession(ctx, domain.NewSessionArchive(s)); err != nil {
		e.log.Warn("Failed to archive session",
			zap.String("session_id", s.SessionID),
			zap.Error(err),
		)
		return
	}
	telemetry.EnergyDeliveredTotal.Add(s.EnergyConsumed)
}
