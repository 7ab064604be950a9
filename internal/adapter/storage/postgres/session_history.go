package postgres

import (
	"context"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/voltwise/chargewatch/internal/domain"
	"github.com/voltwise/chargewatch/internal/ports"
)

type SessionHistoryRepository struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewSessionHistoryRepository(db *gorm.DB, log *zap.Logger) ports.SessionHistoryRepository {
	return &SessionHistoryRepository{
		db:  db,
		log: log,
	}
}

func (r *SessionHistoryRepository) ArchiveSession(ctx context.Context, archive *domain.SessionArchive) error {
	// A session can be archived twice (stopped, then paid); the later row wins.
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "session_id"}},
			UpdateAll: true,
		}).
		Create(archive).Error
}

func (r *SessionHistoryRepository) SavePayment(ctx context.Context, payment *domain.PaymentRecord) error {
	return r.db.WithContext(ctx).Save(payment).Error
}

func (r *SessionHistoryRepository) FindSessionsByUser(ctx context.Context, userID string, limit int) ([]domain.SessionArchive, error) {
	if limit <= 0 {
		limit = 50
	}
	var sessions []domain.SessionArchive
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("start_time desc").
		Limit(limit).
		Find(&sessions).Error
	return sessions, err
}
