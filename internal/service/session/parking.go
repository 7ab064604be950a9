package session

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voltwise/chargewatch/internal/domain"
	"github.com/voltwise/chargewatch/internal/infrastructure/clock"
	"github.com/voltwise/chargewatch/internal/ports"
	"github.com/voltwise/chargewatch/pkg/config"
)

// ParkingMonitor tracks the post-charge parking phase. The server is polled
// at a relaxed cadence; between polls the running fee is derived locally
// from the parking start time and the server-supplied per-minute rate.
type ParkingMonitor struct {
	gateway ports.SessionGateway
	clk     clock.Clock
	log     *zap.Logger

	interval time.Duration

	mu      sync.Mutex
	summary domain.ParkingSessionSummary
	anchor  domain.ParkingSnapshot
	active  bool
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewParkingMonitor(gateway ports.SessionGateway, monitorCfg config.MonitorConfig, clk clock.Clock, log *zap.Logger) *ParkingMonitor {
	interval := monitorCfg.ParkingInterval
	if interval <= 0 {
		interval = 15 * time.Second
	}
	if clk == nil {
		clk = clock.New()
	}
	return &ParkingMonitor{
		gateway:  gateway,
		clk:      clk,
		log:      log,
		interval: interval,
	}
}

// Begin starts tracking the parking phase described by the handoff summary.
func (m *ParkingMonitor) Begin(summary domain.ParkingSessionSummary) {
	m.mu.Lock()
	if m.active {
		m.mu.Unlock()
		return
	}
	m.summary = summary
	m.anchor = domain.ParkingSnapshot{
		ParkingStartTime:     &summary.ParkingStartTime,
		ChargingCost:         summary.TotalCost,
		ParkingRatePerMinute: summary.ParkingRatePerMinute,
	}
	m.active = true
	m.stopCh = make(chan struct{})
	stop := m.stopCh
	m.mu.Unlock()

	m.wg.Add(1)
	go m.run(stop)

	m.log.Info("Parking phase monitoring started",
		zap.String("session_id", summary.SessionID),
	)
}

// End stops tracking. Safe to call more than once.
func (m *ParkingMonitor) End() {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return
	}
	m.active = false
	close(m.stopCh)
	m.stopCh = nil
	m.mu.Unlock()
	m.wg.Wait()
}

func (m *ParkingMonitor) run(stop <-chan struct{}) {
	defer m.wg.Done()

	ticker := m.clk.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case <-ticker.C():
			m.PollOnce(context.Background())
		}
	}
}

// PollOnce refreshes the authoritative parking fee. Failures are logged and
// ignored; the locally derived fee keeps counting.
func (m *ParkingMonitor) PollOnce(ctx context.Context) {
	m.mu.Lock()
	if !m.active {
		m.mu.Unlock()
		return
	}
	sessionID := m.summary.SessionID
	m.mu.Unlock()

	snap, err := m.gateway.ParkingSnapshot(ctx, sessionID)
	if err != nil {
		m.log.Warn("Parking poll failed", zap.String("session_id", sessionID), zap.Error(err))
		return
	}

	m.mu.Lock()
	if m.active && m.summary.SessionID == sessionID {
		if snap.ParkingStartTime == nil {
			snap.ParkingStartTime = m.anchor.ParkingStartTime
		}
		m.anchor = *snap
	}
	m.mu.Unlock()
}

// CurrentFee returns the displayed parking fee: the last authoritative fee
// plus the per-minute rate applied to the time since the parking started,
// whichever is larger.
func (m *ParkingMonitor) CurrentFee() float64 {
	m.mu.Lock()
	defer m.mu.Unlock()

	start := m.summary.ParkingStartTime
	if m.anchor.ParkingStartTime != nil {
		start = *m.anchor.ParkingStartTime
	}
	minutes := m.clk.Now().Sub(start).Minutes()
	if minutes < 0 {
		minutes = 0
	}
	derived := m.anchor.ParkingRatePerMinute * minutes
	if m.anchor.CurrentFee > derived {
		return m.anchor.CurrentFee
	}
	return derived
}

// Summary returns the immutable handoff payload this monitor was started
// with.
func (m *ParkingMonitor) Summary() domain.ParkingSessionSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.summary
}
