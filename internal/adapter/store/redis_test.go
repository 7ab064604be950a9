package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"go.uber.org/zap"

	"github.com/voltwise/chargewatch/internal/domain"
	"github.com/voltwise/chargewatch/internal/ports"
)

func newRedisStore(t *testing.T) ports.SessionStore {
	t.Helper()
	mr := miniredis.RunT(t)

	store, err := NewRedisStore("redis://"+mr.Addr(), time.Hour, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func sampleSession() *domain.ChargingSession {
	return &domain.ChargingSession{
		SessionID:      "sess-1",
		BookingID:      "book-1",
		StationID:      "station-9",
		Status:         domain.SessionStatusCharging,
		StartTime:      time.Now().UTC().Truncate(time.Second),
		InitialBattery: 20,
		CurrentBattery: 21,
		TargetBattery:  80,
		BatterySeeded:  true,
		PowerKW:        50,
	}
}

func TestRedisStoreRoundTrip(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	want := sampleSession()
	if err := store.Save(ctx, want); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := store.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.SessionID != want.SessionID || got.CurrentBattery != want.CurrentBattery {
		t.Errorf("loaded session differs: got %+v", got)
	}
	if got.Status != domain.SessionStatusCharging {
		t.Errorf("expected status charging, got %s", got.Status)
	}
}

func TestRedisStoreLoadCurrent(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	if _, err := store.LoadCurrent(ctx); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("expected not found on empty store, got %v", err)
	}

	if err := store.Save(ctx, sampleSession()); err != nil {
		t.Fatalf("save failed: %v", err)
	}

	got, err := store.LoadCurrent(ctx)
	if err != nil {
		t.Fatalf("load current failed: %v", err)
	}
	if got.SessionID != "sess-1" {
		t.Errorf("expected sess-1, got %s", got.SessionID)
	}
}

func TestRedisStoreLastWriterWins(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	first := sampleSession()
	store.Save(ctx, first)

	second := sampleSession()
	second.CurrentBattery = 45
	store.Save(ctx, second)

	got, err := store.Load(ctx, "sess-1")
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if got.CurrentBattery != 45 {
		t.Errorf("expected last write to win, got battery %f", got.CurrentBattery)
	}
}

func TestRedisStoreDeleteClearsCurrent(t *testing.T) {
	store := newRedisStore(t)
	ctx := context.Background()

	store.Save(ctx, sampleSession())
	if err := store.Delete(ctx, "sess-1"); err != nil {
		t.Fatalf("delete failed: %v", err)
	}

	if _, err := store.Load(ctx, "sess-1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
	if _, err := store.LoadCurrent(ctx); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected current cleared after delete, got %v", err)
	}
}

func TestLocalStoreRoundTrip(t *testing.T) {
	store := NewLocalStore(time.Hour, zap.NewNop())
	ctx := context.Background()

	store.Save(ctx, sampleSession())

	got, err := store.LoadCurrent(ctx)
	if err != nil {
		t.Fatalf("load current failed: %v", err)
	}
	if got.SessionID != "sess-1" {
		t.Errorf("expected sess-1, got %s", got.SessionID)
	}

	store.Delete(ctx, "sess-1")
	if _, err := store.LoadCurrent(ctx); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Errorf("expected not found after delete, got %v", err)
	}
}
