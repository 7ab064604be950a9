package mocks

import (
	"context"
	"sync"

	"github.com/voltwise/chargewatch/internal/domain"
)

// MockSessionStore is a mock implementation of the SessionStore interface.
// With no Func fields set it behaves as a working in-memory store.
type MockSessionStore struct {
	SaveFunc        func(ctx context.Context, session *domain.ChargingSession) error
	LoadFunc        func(ctx context.Context, sessionID string) (*domain.ChargingSession, error)
	LoadCurrentFunc func(ctx context.Context) (*domain.ChargingSession, error)
	DeleteFunc      func(ctx context.Context, sessionID string) error

	mu       sync.Mutex
	sessions map[string]domain.ChargingSession
	current  string
}

func (m *MockSessionStore) Save(ctx context.Context, session *domain.ChargingSession) error {
	if m.SaveFunc != nil {
		return m.SaveFunc(ctx, session)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.sessions == nil {
		m.sessions = make(map[string]domain.ChargingSession)
	}
	m.sessions[session.SessionID] = *session
	m.current = session.SessionID
	return nil
}

func (m *MockSessionStore) Load(ctx context.Context, sessionID string) (*domain.ChargingSession, error) {
	if m.LoadFunc != nil {
		return m.LoadFunc(ctx, sessionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.sessions[sessionID]
	if !ok {
		return nil, domain.ErrSessionNotFound
	}
	copied := s
	return &copied, nil
}

func (m *MockSessionStore) LoadCurrent(ctx context.Context) (*domain.ChargingSession, error) {
	if m.LoadCurrentFunc != nil {
		return m.LoadCurrentFunc(ctx)
	}
	m.mu.Lock()
	current := m.current
	m.mu.Unlock()
	if current == "" {
		return nil, domain.ErrSessionNotFound
	}
	return m.Load(ctx, current)
}

func (m *MockSessionStore) Delete(ctx context.Context, sessionID string) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, sessionID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sessions, sessionID)
	if m.current == sessionID {
		m.current = ""
	}
	return nil
}

func (m *MockSessionStore) Close() error { return nil }

// MockHistoryRepository is a mock implementation of SessionHistoryRepository
type MockHistoryRepository struct {
	ArchiveSessionFunc     func(ctx context.Context, archive *domain.SessionArchive) error
	SavePaymentFunc        func(ctx context.Context, payment *domain.PaymentRecord) error
	FindSessionsByUserFunc func(ctx context.Context, userID string, limit int) ([]domain.SessionArchive, error)

	mu       sync.Mutex
	Archived []domain.SessionArchive
	Payments []domain.PaymentRecord
}

func (m *MockHistoryRepository) ArchiveSession(ctx context.Context, archive *domain.SessionArchive) error {
	if m.ArchiveSessionFunc != nil {
		return m.ArchiveSessionFunc(ctx, archive)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Archived = append(m.Archived, *archive)
	return nil
}

func (m *MockHistoryRepository) SavePayment(ctx context.Context, payment *domain.PaymentRecord) error {
	if m.SavePaymentFunc != nil {
		return m.SavePaymentFunc(ctx, payment)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Payments = append(m.Payments, *payment)
	return nil
}

func (m *MockHistoryRepository) FindSessionsByUser(ctx context.Context, userID string, limit int) ([]domain.SessionArchive, error) {
	if m.FindSessionsByUserFunc != nil {
		return m.FindSessionsByUserFunc(ctx, userID, limit)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.SessionArchive
	for _, a := range m.Archived {
		if a.UserID == userID {
			out = append(out, a)
		}
	}
	return out, nil
}
