package session

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/voltwise/chargewatch/internal/domain"
	"github.com/voltwise/chargewatch/internal/infrastructure/clock"
	"github.com/voltwise/chargewatch/internal/mocks"
)

func newParkingEnv(t *testing.T) (*ParkingMonitor, *clock.Fake, *mocks.MockSessionGateway) {
	t.Helper()
	clk := clock.NewFake(time.Date(2026, 3, 14, 11, 0, 0, 0, time.UTC))
	gw := &mocks.MockSessionGateway{}
	m := NewParkingMonitor(gw, testMonitorConfig(), clk, zap.NewNop())
	t.Cleanup(m.End)
	return m, clk, gw
}

func parkingSummary(start time.Time) domain.ParkingSessionSummary {
	return domain.ParkingSessionSummary{
		SessionID:            "sess-1",
		ParkingStartTime:     start,
		ParkingRatePerMinute: 2,
		TotalCost:            120,
	}
}

func TestParkingFeeDerivedLocally(t *testing.T) {
	m, clk, _ := newParkingEnv(t)
	m.Begin(parkingSummary(clk.Now()))

	clk.Advance(10 * time.Minute)

	if fee := m.CurrentFee(); math.Abs(fee-20) > 0.001 {
		t.Errorf("expected 10 min * 2/min = 20, got %f", fee)
	}
}

func TestParkingPollAnchorsServerFee(t *testing.T) {
	m, clk, gw := newParkingEnv(t)
	start := clk.Now()
	m.Begin(parkingSummary(start))

	clk.Advance(5 * time.Minute)
	gw.ParkingSnapshotFunc = func(ctx context.Context, sessionID string) (*domain.ParkingSnapshot, error) {
		return &domain.ParkingSnapshot{
			CurrentFee:           14,
			ParkingRatePerMinute: 2,
		}, nil
	}
	m.PollOnce(context.Background())

	// Server fee (14) beats the locally derived 10 until the derivation
	// catches up.
	if fee := m.CurrentFee(); math.Abs(fee-14) > 0.001 {
		t.Errorf("expected authoritative fee 14, got %f", fee)
	}

	clk.Advance(5 * time.Minute)
	if fee := m.CurrentFee(); math.Abs(fee-20) > 0.001 {
		t.Errorf("expected derived fee 20 after catch-up, got %f", fee)
	}
}

func TestParkingPollFailureKeepsDerivedFee(t *testing.T) {
	m, clk, gw := newParkingEnv(t)
	m.Begin(parkingSummary(clk.Now()))

	gw.ParkingSnapshotFunc = func(ctx context.Context, sessionID string) (*domain.ParkingSnapshot, error) {
		return nil, &domain.TransientError{Err: errors.New("unavailable")}
	}
	clk.Advance(4 * time.Minute)
	m.PollOnce(context.Background())

	if fee := m.CurrentFee(); math.Abs(fee-8) > 0.001 {
		t.Errorf("expected derived fee 8 despite poll failure, got %f", fee)
	}
}

func TestParkingBeginIsIdempotent(t *testing.T) {
	m, clk, _ := newParkingEnv(t)
	first := parkingSummary(clk.Now())
	m.Begin(first)
	m.Begin(parkingSummary(clk.Now().Add(time.Hour)))

	if got := m.Summary().ParkingStartTime; !got.Equal(first.ParkingStartTime) {
		t.Errorf("second Begin must not replace the summary, got %v", got)
	}
}
