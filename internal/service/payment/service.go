package payment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/voltwise/chargewatch/internal/domain"
	"github.com/voltwise/chargewatch/internal/observability/telemetry"
	"github.com/voltwise/chargewatch/internal/ports"
	"github.com/voltwise/chargewatch/pkg/config"
)

// SessionFinalizer is the slice of the session engine the payment flow
// drives: freezing displayed metrics on the authoritative bill and clearing
// the session once payment is underway.
type SessionFinalizer interface {
	Session() *domain.ChargingSession
	FreezeMetrics(detail *domain.PaymentDetail)
	CompletePayment(ctx context.Context) error
}

// Service runs the payment finalization flow. FetchBill freezes the
// displayed metrics on the server's bill; Initiate re-checks the amount,
// resyncs silently if it moved beyond tolerance, and hands off to the
// configured payment initiator.
type Service struct {
	gateway    ports.SessionGateway
	engine     SessionFinalizer
	history    ports.SessionHistoryRepository
	initiators map[domain.PaymentProvider]ports.PaymentInitiator
	log        *zap.Logger

	provider  domain.PaymentProvider
	currency  string
	tolerance int64
	returnURL string

	mu       sync.Mutex
	expected *domain.PaymentDetail
	notifier func(message string)
}

func NewService(gateway ports.SessionGateway, engine SessionFinalizer, history ports.SessionHistoryRepository, cfg config.PaymentConfig, log *zap.Logger) *Service {
	tolerance := cfg.ToleranceMinorUnits
	if tolerance <= 0 {
		tolerance = 500
	}
	provider := domain.PaymentProvider(cfg.Provider)
	if provider == "" {
		provider = domain.PaymentProviderGateway
	}
	return &Service{
		gateway:    gateway,
		engine:     engine,
		history:    history,
		initiators: make(map[domain.PaymentProvider]ports.PaymentInitiator),
		log:        log,
		provider:   provider,
		currency:   cfg.Currency,
		tolerance:  tolerance,
		returnURL:  cfg.ReturnURL,
	}
}

// RegisterInitiator adds a payment initiator backend.
func (s *Service) RegisterInitiator(provider domain.PaymentProvider, initiator ports.PaymentInitiator) {
	s.initiators[provider] = initiator
}

// SetNotifier installs the callback that surfaces payment notices to the
// user, such as the amount having been resynchronized with the server. A nil
// notifier drops notices.
func (s *Service) SetNotifier(fn func(message string)) {
	s.notifier = fn
}

func (s *Service) notifyUser(message string) {
	if s.notifier != nil {
		s.notifier(message)
	}
}

// FetchBill retrieves the authoritative bill and freezes the displayed
// metrics on it. The returned detail is what the payment screen renders.
func (s *Service) FetchBill(ctx context.Context) (*domain.PaymentDetail, error) {
	session := s.engine.Session()
	if session == nil {
		return nil, fmt.Errorf("no session to bill")
	}

	detail, err := s.gateway.PaymentDetail(ctx, session.SessionID, session.UserID)
	if err != nil {
		return nil, err
	}

	s.engine.FreezeMetrics(detail)

	s.mu.Lock()
	s.expected = detail
	s.mu.Unlock()

	s.log.Info("Payment detail fetched",
		zap.String("session_id", session.SessionID),
		zap.Int64("amount_minor", detail.AmountMinorUnits()),
	)
	return detail, nil
}

// Initiate re-fetches the bill, silently corrects the frozen amount if the
// server's figure drifted beyond tolerance, then hands the bill to the
// payment initiator. A failed re-fetch falls back to the frozen amount. On
// success the session is cleared so it cannot be paid twice.
func (s *Service) Initiate(ctx context.Context, method domain.PaymentMethod) (string, error) {
	session := s.engine.Session()
	if session == nil {
		return "", fmt.Errorf("no session to pay for")
	}

	s.mu.Lock()
	expected := s.expected
	s.mu.Unlock()
	if expected == nil {
		return "", fmt.Errorf("payment detail not fetched")
	}

	// Silent re-fetch: the bill may have ticked up since the screen loaded.
	// A failed re-fetch is tolerated and initiation proceeds with the frozen
	// amount.
	amount := expected.AmountMinorUnits()
	detail, err := s.gateway.PaymentDetail(ctx, session.SessionID, session.UserID)
	if err != nil {
		s.log.Warn("Bill re-fetch failed, proceeding with frozen amount",
			zap.String("session_id", session.SessionID),
			zap.Int64("amount_minor", amount),
			zap.Error(err),
		)
	} else if drift := detail.AmountMinorUnits() - amount; drift > s.tolerance || drift < -s.tolerance {
		telemetry.PaymentResyncsTotal.Inc()
		s.log.Info("Payment amount resynced before initiation",
			zap.Int64("expected_minor", amount),
			zap.Int64("server_minor", detail.AmountMinorUnits()),
		)
		s.engine.FreezeMetrics(detail)
		s.mu.Lock()
		s.expected = detail
		s.mu.Unlock()
		amount = detail.AmountMinorUnits()
		s.notifyUser("The payment amount was updated to match the latest bill")
	}

	initiator, ok := s.initiators[s.provider]
	if !ok {
		return "", fmt.Errorf("no payment initiator registered for provider %q", s.provider)
	}

	paymentURL, err := initiator.Initiate(ctx, &ports.PaymentInitiation{
		SessionID:   session.SessionID,
		UserID:      session.UserID,
		Method:      method,
		Amount:      amount,
		Currency:    s.currency,
		Description: fmt.Sprintf("EV charging at %s", session.StationName),
		ReturnURL:   s.returnURL,
	})
	if err != nil {
		s.recordPayment(ctx, session, method, amount, domain.PaymentStatusFailed, "")
		return "", fmt.Errorf("payment initiation failed: %w", err)
	}

	s.recordPayment(ctx, session, method, amount, domain.PaymentStatusInitiated, paymentURL)

	if err := s.engine.CompletePayment(ctx); err != nil {
		s.log.Warn("Failed to finalize session after payment initiation",
			zap.String("session_id", session.SessionID),
			zap.Error(err),
		)
	}

	s.mu.Lock()
	s.expected = nil
	s.mu.Unlock()

	s.log.Info("Payment initiated",
		zap.String("session_id", session.SessionID),
		zap.String("provider", initiator.Name()),
		zap.Int64("amount_minor", amount),
	)
	return paymentURL, nil
}

func (s *Service) recordPayment(ctx context.Context, session *domain.ChargingSession, method domain.PaymentMethod, amount int64, status domain.PaymentStatus, url string) {
	if s.history == nil {
		return
	}
	now := time.Now()
	record := &domain.PaymentRecord{
		ID:         uuid.New().String(),
		SessionID:  session.SessionID,
		UserID:     session.UserID,
		Method:     method,
		Status:     status,
		Amount:     amount,
		Currency:   s.currency,
		PaymentURL: url,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.history.SavePayment(ctx, record); err != nil {
		s.log.Warn("Failed to record payment",
			zap.String("session_id", session.SessionID),
			zap.Error(err),
		)
	}
}
