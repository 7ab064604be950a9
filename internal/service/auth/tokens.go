package auth

import (
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"

	"github.com/voltwise/chargewatch/internal/infrastructure/clock"
	"github.com/voltwise/chargewatch/internal/ports"
)

// TokenStore holds the bearer credential issued by the external auth
// backend. It never signs or refreshes tokens; it only introspects expiry
// locally and clears credentials when the gateway says they are dead.
type TokenStore struct {
	mu    sync.RWMutex
	token string

	redirectDelay time.Duration
	onExpired     func()
	clk           clock.Clock
	log           *zap.Logger
}

var _ ports.TokenSource = (*TokenStore)(nil)

func NewTokenStore(redirectDelay time.Duration, clk clock.Clock, log *zap.Logger) *TokenStore {
	return &TokenStore{
		redirectDelay: redirectDelay,
		clk:           clk,
		log:           log,
	}
}

// SetToken replaces the stored credential.
func (s *TokenStore) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

// SetOnExpired registers the hook invoked (after the redirect delay) once
// credentials are force-cleared. Typically this redirects the user to login.
func (s *TokenStore) SetOnExpired(fn func()) {
	s.mu.Lock()
	s.onExpired = fn
	s.mu.Unlock()
}

// Token returns the current credential. A token whose exp claim already
// passed is treated as absent so callers fail fast instead of sending a
// request the gateway will reject.
func (s *TokenStore) Token() (string, bool) {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	if token == "" {
		return "", false
	}
	if expired, known := s.isExpired(token); known && expired {
		return "", false
	}
	return token, true
}

// Clear drops the stored credential.
func (s *TokenStore) Clear() {
	s.mu.Lock()
	s.token = ""
	s.mu.Unlock()
}

// Expire force-clears the credential and schedules the on-expired hook.
// Called by the monitoring loop when the consecutive-401 budget trips.
func (s *TokenStore) Expire() {
	s.mu.Lock()
	s.token = ""
	hook := s.onExpired
	s.mu.Unlock()

	s.log.Warn("Credentials cleared after repeated auth failures")

	if hook != nil {
		s.clk.AfterFunc(s.redirectDelay, hook)
	}
}

// isExpired parses the token without verifying its signature; verification
// is the gateway's job, we only want the exp claim.
func (s *TokenStore) isExpired(token string) (expired, known bool) {
	parsed, _, err := jwt.NewParser().ParseUnverified(token, jwt.MapClaims{})
	if err != nil {
		// Opaque tokens pass through; the gateway decides.
		return false, false
	}
	exp, err := parsed.Claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false, false
	}
	return exp.Time.Before(s.clk.Now()), true
}
