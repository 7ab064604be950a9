package payment

import (
	"context"

	"github.com/voltwise/chargewatch/internal/ports"
)

// GatewayInitiator delegates payment initiation to the session gateway
// itself, which hosts the payment page for its own sessions.
type GatewayInitiator struct {
	gateway ports.SessionGateway
}

func NewGatewayInitiator(gateway ports.SessionGateway) *GatewayInitiator {
	return &GatewayInitiator{gateway: gateway}
}

func (i *GatewayInitiator) Name() string {
	return "gateway"
}

func (i *GatewayInitiator) Initiate(ctx context.Context, req *ports.PaymentInitiation) (string, error) {
	return i.gateway.InitiatePayment(ctx, req.SessionID, req.UserID, req.Method, req.ReturnURL)
}
