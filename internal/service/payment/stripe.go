package payment

import (
	"context"
	"fmt"

	"github.com/stripe/stripe-go/v76"
	checkoutsession "github.com/stripe/stripe-go/v76/checkout/session"

	"github.com/voltwise/chargewatch/internal/ports"
	"github.com/voltwise/chargewatch/pkg/config"
)

// StripeInitiator creates a Stripe Checkout session for the frozen bill and
// returns its hosted payment URL.
type StripeInitiator struct {
	successURL string
	cancelURL  string
}

func NewStripeInitiator(cfg config.StripeConfig) *StripeInitiator {
	stripe.Key = cfg.SecretKey
	return &StripeInitiator{
		successURL: cfg.SuccessURL,
		cancelURL:  cfg.CancelURL,
	}
}

func (i *StripeInitiator) Name() string {
	return "stripe"
}

func (i *StripeInitiator) Initiate(ctx context.Context, req *ports.PaymentInitiation) (string, error) {
	successURL := i.successURL
	if req.ReturnURL != "" {
		successURL = req.ReturnURL
	}

	params := &stripe.CheckoutSessionParams{
		Mode:       stripe.String(string(stripe.CheckoutSessionModePayment)),
		SuccessURL: stripe.String(successURL),
		CancelURL:  stripe.String(i.cancelURL),
		LineItems: []*stripe.CheckoutSessionLineItemParams{
			{
				PriceData: &stripe.CheckoutSessionLineItemPriceDataParams{
					Currency:   stripe.String(req.Currency),
					UnitAmount: stripe.Int64(req.Amount),
					ProductData: &stripe.CheckoutSessionLineItemPriceDataProductDataParams{
						Name: stripe.String(req.Description),
					},
				},
				Quantity: stripe.Int64(1),
			},
		},
		Params: stripe.Params{
			Metadata: map[string]string{
				"session_id": req.SessionID,
				"user_id":    req.UserID,
			},
		},
	}

	cs, err := checkoutsession.New(params)
	if err != nil {
		return "", fmt.Errorf("stripe error: %w", err)
	}
	return cs.URL, nil
}
