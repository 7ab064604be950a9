package mocks

import (
	"context"

	"github.com/voltwise/chargewatch/internal/domain"
	"github.com/voltwise/chargewatch/internal/ports"
)

// MockSessionGateway is a mock implementation of the SessionGateway interface
type MockSessionGateway struct {
	StartSessionFunc       func(ctx context.Context, orderID, vehicleID, location string) (string, error)
	MonitoringSnapshotFunc func(ctx context.Context, sessionID string) (*domain.MonitoringSnapshot, error)
	EndSessionFunc         func(ctx context.Context, sessionID string) error
	ParkingSnapshotFunc    func(ctx context.Context, sessionID string) (*domain.ParkingSnapshot, error)
	PaymentDetailFunc      func(ctx context.Context, sessionID, userID string) (*domain.PaymentDetail, error)
	InitiatePaymentFunc    func(ctx context.Context, sessionID, userID string, method domain.PaymentMethod, returnURL string) (string, error)
}

func (m *MockSessionGateway) StartSession(ctx context.Context, orderID, vehicleID, location string) (string, error) {
	if m.StartSessionFunc != nil {
		return m.StartSessionFunc(ctx, orderID, vehicleID, location)
	}
	return "mock-session", nil
}

func (m *MockSessionGateway) MonitoringSnapshot(ctx context.Context, sessionID string) (*domain.MonitoringSnapshot, error) {
	if m.MonitoringSnapshotFunc != nil {
		return m.MonitoringSnapshotFunc(ctx, sessionID)
	}
	return &domain.MonitoringSnapshot{Status: domain.RemotePhaseCharging}, nil
}

func (m *MockSessionGateway) EndSession(ctx context.Context, sessionID string) error {
	if m.EndSessionFunc != nil {
		return m.EndSessionFunc(ctx, sessionID)
	}
	return nil
}

func (m *MockSessionGateway) ParkingSnapshot(ctx context.Context, sessionID string) (*domain.ParkingSnapshot, error) {
	if m.ParkingSnapshotFunc != nil {
		return m.ParkingSnapshotFunc(ctx, sessionID)
	}
	return &domain.ParkingSnapshot{}, nil
}

func (m *MockSessionGateway) PaymentDetail(ctx context.Context, sessionID, userID string) (*domain.PaymentDetail, error) {
	if m.PaymentDetailFunc != nil {
		return m.PaymentDetailFunc(ctx, sessionID, userID)
	}
	return &domain.PaymentDetail{}, nil
}

func (m *MockSessionGateway) InitiatePayment(ctx context.Context, sessionID, userID string, method domain.PaymentMethod, returnURL string) (string, error) {
	if m.InitiatePaymentFunc != nil {
		return m.InitiatePaymentFunc(ctx, sessionID, userID, method, returnURL)
	}
	return "https://pay.example.com/mock", nil
}

// MockTokenSource is a mock implementation of the TokenSource interface
type MockTokenSource struct {
	TokenFunc func() (string, bool)
	ClearFunc func()
}

func (m *MockTokenSource) Token() (string, bool) {
	if m.TokenFunc != nil {
		return m.TokenFunc()
	}
	return "mock-token", true
}

func (m *MockTokenSource) Clear() {
	if m.ClearFunc != nil {
		m.ClearFunc()
	}
}

// MockPaymentInitiator is a mock implementation of the PaymentInitiator interface
type MockPaymentInitiator struct {
	InitiateFunc func(ctx context.Context, req *ports.PaymentInitiation) (string, error)
	NameFunc     func() string
}

func (m *MockPaymentInitiator) Initiate(ctx context.Context, req *ports.PaymentInitiation) (string, error) {
	if m.InitiateFunc != nil {
		return m.InitiateFunc(ctx, req)
	}
	return "https://pay.example.com/mock", nil
}

func (m *MockPaymentInitiator) Name() string {
	if m.NameFunc != nil {
		return m.NameFunc()
	}
	return "mock"
}
