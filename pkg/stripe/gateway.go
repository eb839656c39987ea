package stripe

import (
	"context"

	"github.com/stripe/stripe-go/v84"
	"github.com/stripe/stripe-go/v84/paymentintent"
	"github.com/stripe/stripe-go/v84/refund"
)

// PaymentGateway exposes the subset of Stripe operations the order lifecycle
// needs. Amounts cross this boundary in cents; everywhere else money is decimal.
type PaymentGateway interface {
	CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	CreateRefund(ctx context.Context, params *stripe.RefundParams) (*stripe.Refund, error)
}

type gatewayWrapper struct{}

// NewGateway wraps the provided Stripe client so services can be tested
// against a fake gateway.
func NewGateway(api *Client) PaymentGateway {
	if api == nil {
		return nil
	}
	return &gatewayWrapper{}
}

func (w *gatewayWrapper) CreatePaymentIntent(ctx context.Context, params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error) {
	if params != nil {
		params.Context = ctx
	}
	return paymentintent.New(params)
}

func (w *gatewayWrapper) CreateRefund(ctx context.Context, params *stripe.RefundParams) (*stripe.Refund, error) {
	if params != nil {
		params.Context = ctx
	}
	return refund.New(params)
}
