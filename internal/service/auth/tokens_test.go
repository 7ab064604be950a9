package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/voltwise/chargewatch/internal/infrastructure/clock"
)

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"sub": "user-1",
		"exp": exp.Unix(),
	})
	signed, err := token.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}
	return signed
}

func TestTokenRoundTrip(t *testing.T) {
	clk := clock.NewFake(time.Now())
	store := NewTokenStore(time.Second, clk, zap.NewNop())

	store.SetToken(signedToken(t, time.Now().Add(time.Hour)))

	token, ok := store.Token()
	if !ok || token == "" {
		t.Fatal("expected token to be available")
	}

	store.Clear()
	if _, ok := store.Token(); ok {
		t.Error("expected no token after clear")
	}
}

func TestExpiredTokenTreatedAsAbsent(t *testing.T) {
	now := time.Now()
	clk := clock.NewFake(now)
	store := NewTokenStore(time.Second, clk, zap.NewNop())

	store.SetToken(signedToken(t, now.Add(-time.Minute)))

	if _, ok := store.Token(); ok {
		t.Error("expected expired token to be treated as absent")
	}
}

func TestOpaqueTokenPassesThrough(t *testing.T) {
	clk := clock.NewFake(time.Now())
	store := NewTokenStore(time.Second, clk, zap.NewNop())

	store.SetToken("opaque-session-key")

	if _, ok := store.Token(); !ok {
		t.Error("expected opaque token to pass through")
	}
}

func TestExpireSchedulesRedirectHook(t *testing.T) {
	clk := clock.NewFake(time.Now())
	store := NewTokenStore(2*time.Second, clk, zap.NewNop())

	fired := false
	store.SetOnExpired(func() { fired = true })
	store.SetToken(signedToken(t, time.Now().Add(time.Hour)))

	store.Expire()

	if _, ok := store.Token(); ok {
		t.Fatal("expected token cleared")
	}
	if fired {
		t.Fatal("hook should wait for the redirect delay")
	}

	clk.Advance(2 * time.Second)
	if !fired {
		t.Error("expected hook to fire after the redirect delay")
	}
}
