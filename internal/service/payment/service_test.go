package payment

import (
	"context"
	"errors"
	"sync"
	"testing"

	"go.uber.org/zap"

	"github.com/voltwise/chargewatch/internal/domain"
	"github.com/voltwise/chargewatch/internal/mocks"
	"github.com/voltwise/chargewatch/internal/ports"
	"github.com/voltwise/chargewatch/pkg/config"
)

type fakeFinalizer struct {
	mu        sync.Mutex
	session   *domain.ChargingSession
	frozen    []*domain.PaymentDetail
	completed int
}

func (f *fakeFinalizer) Session() *domain.ChargingSession {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.session == nil {
		return nil
	}
	copied := *f.session
	return &copied
}

func (f *fakeFinalizer) FreezeMetrics(detail *domain.PaymentDetail) {
	f.mu.Lock()
	f.frozen = append(f.frozen, detail)
	f.mu.Unlock()
}

func (f *fakeFinalizer) CompletePayment(ctx context.Context) error {
	f.mu.Lock()
	f.completed++
	f.session = nil
	f.mu.Unlock()
	return nil
}

func billOf(amount float64) *domain.PaymentDetail {
	return &domain.PaymentDetail{
		PowerConsumed: 10,
		BaseCost:      amount,
		TotalFee:      amount,
		HasTotalFee:   true,
	}
}

func newPaymentEnv(t *testing.T) (*Service, *fakeFinalizer, *mocks.MockSessionGateway, *mocks.MockHistoryRepository, *mocks.MockPaymentInitiator) {
	t.Helper()
	finalizer := &fakeFinalizer{session: &domain.ChargingSession{
		SessionID:   "sess-1",
		UserID:      "user-1",
		StationName: "Central Plaza",
		Status:      domain.SessionStatusStopped,
	}}
	gw := &mocks.MockSessionGateway{}
	history := &mocks.MockHistoryRepository{}
	initiator := &mocks.MockPaymentInitiator{}

	svc := NewService(gw, finalizer, history, config.PaymentConfig{
		Provider:            "gateway",
		Currency:            "inr",
		ToleranceMinorUnits: 500,
	}, zap.NewNop())
	svc.RegisterInitiator(domain.PaymentProviderGateway, initiator)
	return svc, finalizer, gw, history, initiator
}

func TestFetchBillFreezesMetrics(t *testing.T) {
	svc, finalizer, gw, _, _ := newPaymentEnv(t)

	gw.PaymentDetailFunc = func(ctx context.Context, sessionID, userID string) (*domain.PaymentDetail, error) {
		return billOf(150), nil
	}

	detail, err := svc.FetchBill(context.Background())
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}
	if detail.AmountMinorUnits() != 15000 {
		t.Errorf("expected 15000 minor units, got %d", detail.AmountMinorUnits())
	}
	if len(finalizer.frozen) != 1 {
		t.Errorf("expected metrics frozen once, got %d", len(finalizer.frozen))
	}
}

func TestInitiateWithinToleranceNoResync(t *testing.T) {
	svc, finalizer, gw, history, initiator := newPaymentEnv(t)

	var notices []string
	svc.SetNotifier(func(msg string) { notices = append(notices, msg) })

	amount := 150.0
	gw.PaymentDetailFunc = func(ctx context.Context, sessionID, userID string) (*domain.PaymentDetail, error) {
		return billOf(amount), nil
	}
	svc.FetchBill(context.Background())

	// The bill drifts by exactly the tolerance (5.00 = 500 minor units).
	amount = 155.0
	var initiated *ports.PaymentInitiation
	initiator.InitiateFunc = func(ctx context.Context, req *ports.PaymentInitiation) (string, error) {
		initiated = req
		return "https://pay.example.com/p/1", nil
	}

	url, err := svc.Initiate(context.Background(), domain.PaymentMethodCard)
	if err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	if url != "https://pay.example.com/p/1" {
		t.Errorf("unexpected url %s", url)
	}
	// Frozen once at FetchBill, never again: drift stayed within tolerance.
	if len(finalizer.frozen) != 1 {
		t.Errorf("expected no resync, frozen %d times", len(finalizer.frozen))
	}
	if initiated.Amount != 15000 {
		t.Errorf("expected original amount 15000, got %d", initiated.Amount)
	}
	if finalizer.completed != 1 {
		t.Error("expected session completed after initiation")
	}
	if len(history.Payments) != 1 || history.Payments[0].Status != domain.PaymentStatusInitiated {
		t.Errorf("expected one initiated payment record, got %+v", history.Payments)
	}
	if len(notices) != 0 {
		t.Errorf("expected no user notice within tolerance, got %v", notices)
	}
}

func TestInitiateBeyondToleranceResyncsOnce(t *testing.T) {
	svc, finalizer, gw, _, initiator := newPaymentEnv(t)

	var notices []string
	svc.SetNotifier(func(msg string) { notices = append(notices, msg) })

	amount := 150.0
	gw.PaymentDetailFunc = func(ctx context.Context, sessionID, userID string) (*domain.PaymentDetail, error) {
		return billOf(amount), nil
	}
	svc.FetchBill(context.Background())

	// Drift of 5.01 is one minor unit beyond tolerance.
	amount = 155.01
	var initiated *ports.PaymentInitiation
	initiator.InitiateFunc = func(ctx context.Context, req *ports.PaymentInitiation) (string, error) {
		initiated = req
		return "https://pay.example.com/p/2", nil
	}

	if _, err := svc.Initiate(context.Background(), domain.PaymentMethodUPI); err != nil {
		t.Fatalf("initiate failed: %v", err)
	}
	// One freeze from FetchBill plus exactly one from the resync.
	if len(finalizer.frozen) != 2 {
		t.Errorf("expected exactly one resync, frozen %d times", len(finalizer.frozen))
	}
	if initiated.Amount != 15501 {
		t.Errorf("expected resynced amount 15501, got %d", initiated.Amount)
	}
	if len(notices) != 1 {
		t.Errorf("expected exactly one resync notice, got %v", notices)
	}
}

func TestInitiateWithoutFetchFails(t *testing.T) {
	svc, _, _, _, _ := newPaymentEnv(t)

	if _, err := svc.Initiate(context.Background(), domain.PaymentMethodCard); err == nil {
		t.Error("expected error when the bill was never fetched")
	}
}

func TestInitiatorFailureKeepsSession(t *testing.T) {
	svc, finalizer, gw, history, initiator := newPaymentEnv(t)

	gw.PaymentDetailFunc = func(ctx context.Context, sessionID, userID string) (*domain.PaymentDetail, error) {
		return billOf(150), nil
	}
	svc.FetchBill(context.Background())

	initiator.InitiateFunc = func(ctx context.Context, req *ports.PaymentInitiation) (string, error) {
		return "", errors.New("provider unavailable")
	}

	if _, err := svc.Initiate(context.Background(), domain.PaymentMethodCard); err == nil {
		t.Fatal("expected initiation error")
	}
	if finalizer.completed != 0 {
		t.Error("session must survive a failed initiation")
	}
	if len(history.Payments) != 1 || history.Payments[0].Status != domain.PaymentStatusFailed {
		t.Errorf("expected a failed payment record, got %+v", history.Payments)
	}
}

func TestRefetchFailureFallsBackToFrozenAmount(t *testing.T) {
	svc, finalizer, gw, _, initiator := newPaymentEnv(t)

	calls := 0
	gw.PaymentDetailFunc = func(ctx context.Context, sessionID, userID string) (*domain.PaymentDetail, error) {
		calls++
		if calls > 1 {
			return nil, &domain.TransientError{Err: errors.New("gateway down")}
		}
		return billOf(150), nil
	}
	svc.FetchBill(context.Background())

	var initiated *ports.PaymentInitiation
	initiator.InitiateFunc = func(ctx context.Context, req *ports.PaymentInitiation) (string, error) {
		initiated = req
		return "https://pay.example.com/p/3", nil
	}

	if _, err := svc.Initiate(context.Background(), domain.PaymentMethodCard); err != nil {
		t.Fatalf("initiation must tolerate a failed re-fetch, got %v", err)
	}
	if initiated.Amount != 15000 {
		t.Errorf("expected the frozen amount 15000, got %d", initiated.Amount)
	}
	// Frozen once at FetchBill only: no detail arrived to resync against.
	if len(finalizer.frozen) != 1 {
		t.Errorf("expected no resync, frozen %d times", len(finalizer.frozen))
	}
	if finalizer.completed != 1 {
		t.Error("expected session completed after initiation")
	}
}
