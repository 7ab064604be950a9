package store

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/voltwise/chargewatch/internal/domain"
	"github.com/voltwise/chargewatch/internal/ports"
)

type localEntry struct {
	session   domain.ChargingSession
	expiresAt time.Time
}

// LocalStore keeps sessions in memory. Used as a fallback when Redis is not
// configured; sessions do not survive a process restart.
type LocalStore struct {
	mu      sync.RWMutex
	data    map[string]localEntry
	current string
	ttl     time.Duration
	log     *zap.Logger
}

func NewLocalStore(ttl time.Duration, log *zap.Logger) ports.SessionStore {
	log.Info("Local in-memory session store initialized")
	return &LocalStore{
		data: make(map[string]localEntry),
		ttl:  ttl,
		log:  log,
	}
}

func (s *LocalStore) Save(ctx context.Context, session *domain.ChargingSession) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry := localEntry{session: *session}
	if s.ttl > 0 {
		entry.expiresAt = time.Now().Add(s.ttl)
	}
	s.data[session.SessionID] = entry
	s.current = session.SessionID
	return nil
}

func (s *LocalStore) Load(ctx context.Context, sessionID string) (*domain.ChargingSession, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.data[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	if !entry.expiresAt.IsZero() && entry.expiresAt.Before(time.Now()) {
		return nil, domain.ErrSessionNotFound
	}

	session := entry.session
	return &session, nil
}

func (s *LocalStore) LoadCurrent(ctx context.Context) (*domain.ChargingSession, error) {
	s.mu.RLock()
	current := s.current
	s.mu.RUnlock()

	if current == "" {
		return nil, domain.ErrSessionNotFound
	}
	return s.Load(ctx, current)
}

func (s *LocalStore) Delete(ctx context.Context, sessionID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.data, sessionID)
	if s.current == sessionID {
		s.current = ""
	}
	return nil
}

func (s *LocalStore) Close() error {
	return nil
}
