package session

import (
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/voltwise/chargewatch/internal/domain"
	"github.com/voltwise/chargewatch/internal/infrastructure/clock"
	"github.com/voltwise/chargewatch/internal/mocks"
	"github.com/voltwise/chargewatch/pkg/config"
)

type recordedNotices struct {
	mu       sync.Mutex
	notices  []string
	parkings []domain.ParkingSessionSummary
	full     int
}

func (r *recordedNotices) callbacks() Callbacks {
	return Callbacks{
		OnParking: func(s domain.ParkingSessionSummary) {
			r.mu.Lock()
			r.parkings = append(r.parkings, s)
			r.mu.Unlock()
		},
		OnNotice: func(level NoticeLevel, msg string) {
			r.mu.Lock()
			r.notices = append(r.notices, string(level)+": "+msg)
			r.mu.Unlock()
		},
		OnFullBattery: func() {
			r.mu.Lock()
			r.full++
			r.mu.Unlock()
		},
	}
}

func (r *recordedNotices) parkingCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.parkings)
}

func (r *recordedNotices) fullCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.full
}

type fakeCreds struct {
	mu      sync.Mutex
	expired int
}

func (f *fakeCreds) Expire() {
	f.mu.Lock()
	f.expired++
	f.mu.Unlock()
}

func (f *fakeCreds) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.expired
}

func testMonitorConfig() config.MonitorConfig {
	return config.MonitorConfig{
		PollInterval:     5 * time.Second,
		TickInterval:     100 * time.Millisecond,
		FreshnessWindow:  3 * time.Second,
		ElapsedTolerance: 2 * time.Second,
		ParkingInterval:  15 * time.Second,
	}
}

type testEnv struct {
	engine  *Engine
	clk     *clock.Fake
	gateway *mocks.MockSessionGateway
	store   *mocks.MockSessionStore
	history *mocks.MockHistoryRepository
	events  *mocks.MockQueue
	creds   *fakeCreds
	rec     *recordedNotices
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	env := &testEnv{
		clk:     clock.NewFake(time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)),
		gateway: &mocks.MockSessionGateway{},
		store:   &mocks.MockSessionStore{},
		history: &mocks.MockHistoryRepository{},
		events:  &mocks.MockQueue{},
		creds:   &fakeCreds{},
		rec:     &recordedNotices{},
	}
	env.engine = NewEngine(EngineDeps{
		Gateway: env.gateway,
		Store:   env.store,
		History: env.history,
		Events:  env.events,
		Creds:   env.creds,
		Clock:   env.clk,
		Log:     zap.NewNop(),
	},
		testMonitorConfig(),
		config.BatteryConfig{CapacityKWh: 50},
		config.AuthConfig{MaxAuthRetries: 3},
		env.rec.callbacks(),
	)
	t.Cleanup(env.engine.Close)
	return env
}

// install puts a session into the engine without launching the ticker
// goroutines, so tests can drive Tick and pollOnce deterministically.
func (env *testEnv) install(s *domain.ChargingSession) {
	env.engine.mu.Lock()
	env.engine.resetForSessionLocked(s)
	env.engine.mu.Unlock()
}

func chargingSession() *domain.ChargingSession {
	return &domain.ChargingSession{
		SessionID:   "sess-1",
		BookingID:   "book-1",
		StationID:   "station-9",
		UserID:      "user-1",
		Status:      domain.SessionStatusCharging,
		StartTime:   time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC),
		PowerKW:     50,
		CostPerUnit: 12,
		StationName: "Central Plaza",
	}
}

func chargingSnapshot(battery float64) *domain.MonitoringSnapshot {
	return &domain.MonitoringSnapshot{
		Status:         domain.RemotePhaseCharging,
		CurrentBattery: battery,
		TargetBattery:  80,
	}
}
