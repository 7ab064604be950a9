package websocket

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/voltwise/chargewatch/internal/infrastructure/clock"
	"github.com/voltwise/chargewatch/internal/service/session"
)

// MetricsFrame is the JSON payload streamed to UI clients once per
// broadcast interval while a session is active.
type MetricsFrame struct {
	SessionID      string    `json:"session_id"`
	Status         string    `json:"status"`
	CurrentBattery float64   `json:"current_battery"`
	EnergyConsumed float64   `json:"energy_consumed"`
	TotalCost      float64   `json:"total_cost"`
	ElapsedSeconds int64     `json:"elapsed_seconds"`
	At             time.Time `json:"at"`
}

// Broadcaster samples the engine's displayed metrics and pushes them to the
// hub. It stays quiet while no session is active.
type Broadcaster struct {
	hub      *Hub
	engine   *session.Engine
	clk      clock.Clock
	interval time.Duration
	log      *zap.Logger
	stopCh   chan struct{}
}

func NewBroadcaster(hub *Hub, engine *session.Engine, clk clock.Clock, interval time.Duration, log *zap.Logger) *Broadcaster {
	if interval <= 0 {
		interval = time.Second
	}
	return &Broadcaster{
		hub:      hub,
		engine:   engine,
		clk:      clk,
		interval: interval,
		log:      log,
		stopCh:   make(chan struct{}),
	}
}

func (b *Broadcaster) Run() {
	ticker := b.clk.NewTicker(b.interval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopCh:
			return
		case <-ticker.C():
			b.broadcastOnce()
		}
	}
}

func (b *Broadcaster) Stop() {
	close(b.stopCh)
}

func (b *Broadcaster) broadcastOnce() {
	s := b.engine.Session()
	if s == nil {
		return
	}
	if b.hub.ClientCount() == 0 {
		return
	}

	metrics := b.engine.Metrics()
	frame := MetricsFrame{
		SessionID:      s.SessionID,
		Status:         string(s.Status),
		CurrentBattery: metrics.SmoothBattery,
		EnergyConsumed: metrics.SmoothEnergy,
		TotalCost:      metrics.SmoothCost,
		ElapsedSeconds: b.engine.ElapsedSeconds(),
		At:             b.clk.Now(),
	}

	data, err := json.Marshal(frame)
	if err != nil {
		b.log.Warn("Failed to marshal metrics frame", zap.Error(err))
		return
	}
	b.hub.Broadcast(data)
}
