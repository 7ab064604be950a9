package ports

import (
	"context"

	"github.com/voltwise/chargewatch/internal/domain"
)

// SessionGateway is the remote, authoritative source for session state.
// Implementations must honor context deadlines; the engine never blocks
// indefinitely on a gateway call.
type SessionGateway interface {
	StartSession(ctx context.Context, orderID, vehicleID, location string) (string, error)
	MonitoringSnapshot(ctx context.Context, sessionID string) (*domain.MonitoringSnapshot, error)
	EndSession(ctx context.Context, sessionID string) error
	ParkingSnapshot(ctx context.Context, sessionID string) (*domain.ParkingSnapshot, error)
	PaymentDetail(ctx context.Context, sessionID, userID string) (*domain.PaymentDetail, error)
	InitiatePayment(ctx context.Context, sessionID, userID string, method domain.PaymentMethod, returnURL string) (string, error)
}

// PaymentInitiator turns a frozen bill into an external payment URL.
type PaymentInitiator interface {
	Initiate(ctx context.Context, req *PaymentInitiation) (string, error)
	Name() string
}

// PaymentInitiation is the input to a payment initiator. Amount is in
// integer minor units.
type PaymentInitiation struct {
	SessionID   string
	UserID      string
	Method      domain.PaymentMethod
	Amount      int64
	Currency    string
	Description string
	ReturnURL   string
}

// TokenSource exposes the locally-held bearer credential. The issuing and
// refreshing of tokens is owned by an external auth subsystem.
type TokenSource interface {
	Token() (string, bool)
	Clear()
}
