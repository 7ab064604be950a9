package ports

import (
	"context"

	"github.com/voltwise/chargewatch/internal/domain"
)

// SessionStore is the durable key-value store holding the last-known session
// fields so a restart can resume without re-fetching everything. Writes are
// last-writer-wins, keyed by session id.
type SessionStore interface {
	Save(ctx context.Context, session *domain.ChargingSession) error
	Load(ctx context.Context, sessionID string) (*domain.ChargingSession, error)
	// LoadCurrent returns the single active session, if any.
	LoadCurrent(ctx context.Context) (*domain.ChargingSession, error)
	Delete(ctx context.Context, sessionID string) error
	Close() error
}

// SessionHistoryRepository archives finished sessions and payment outcomes.
type SessionHistoryRepository interface {
	ArchiveSession(ctx context.Context, archive *domain.SessionArchive) error
	SavePayment(ctx context.Context, payment *domain.PaymentRecord) error
	FindSessionsByUser(ctx context.Context, userID string, limit int) ([]domain.SessionArchive, error)
}
