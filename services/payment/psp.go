package payment

import (
	"context"

	"github.com/stripe/stripe-go/v76"
	"github.com/stripe/stripe-go/v76/client"
	"go.uber.org/zap"
)

// Intent is the PSP-side authorization handle in provider-neutral form.
type Intent struct {
	ID           string
	ClientSecret string
	Status       string
}

// ConfirmParams carries what a confirm call needs beyond the intent id.
type ConfirmParams struct {
	PaymentMethodID string
	ReturnURL       string
}

// PSPClient is the payment service provider collaborator. The Stripe
// implementation is the only production one; tests substitute fakes.
type PSPClient interface {
	CreateIntent(ctx context.Context, amountCents int64, currency string, methodTypes []string) (Intent, error)
	ConfirmIntent(ctx context.Context, id string, params ConfirmParams) (Intent, error)
	CancelIntent(ctx context.Context, id string) error
}

// stripeIntentAPI is the slice of the Stripe SDK the client needs, kept
// narrow so tests can stub it.
type stripeIntentAPI interface {
	New(params *stripe.PaymentIntentParams) (*stripe.PaymentIntent, error)
	Confirm(id string, params *stripe.PaymentIntentConfirmParams) (*stripe.PaymentIntent, error)
	Cancel(id string, params *stripe.PaymentIntentCancelParams) (*stripe.PaymentIntent, error)
}

// StripeClient implements PSPClient over Stripe PaymentIntents.
type StripeClient struct {
	intents stripeIntentAPI
	logger  *zap.Logger
}

// NewStripeClient builds a StripeClient with its own API handle for the
// given secret key.
func NewStripeClient(apiKey string, logger *zap.Logger) *StripeClient {
	sc := client.New(apiKey, nil)
	return &StripeClient{intents: sc.PaymentIntents, logger: logger}
}

// NewStripeClientWithAPI wires a custom intent API, used by tests.
func NewStripeClientWithAPI(api stripeIntentAPI, logger *zap.Logger) *StripeClient {
	return &StripeClient{intents: api, logger: logger}
}

func (c *StripeClient) CreateIntent(ctx context.Context, amountCents int64, currency string, methodTypes []string) (Intent, error) {
	params := &stripe.PaymentIntentParams{
		Amount:   stripe.Int64(amountCents),
		Currency: stripe.String(currency),
	}
	params.Context = ctx
	for _, mt := range methodTypes {
		params.PaymentMethodTypes = append(params.PaymentMethodTypes, stripe.String(mt))
	}

	pi, err := c.intents.New(params)
	if err != nil {
		c.logger.Warn("stripe intent create failed", zap.Int64("amountCents", amountCents), zap.Error(err))
		return Intent{}, err
	}
	c.logger.Info("stripe intent created",
		zap.String("intentId", pi.ID), zap.Int64("amountCents", amountCents))
	return toIntent(pi), nil
}

func (c *StripeClient) ConfirmIntent(ctx context.Context, id string, p ConfirmParams) (Intent, error) {
	params := &stripe.PaymentIntentConfirmParams{}
	params.Context = ctx
	if p.PaymentMethodID != "" {
		params.PaymentMethod = stripe.String(p.PaymentMethodID)
	}
	if p.ReturnURL != "" {
		params.ReturnURL = stripe.String(p.ReturnURL)
	}

	pi, err := c.intents.Confirm(id, params)
	if err != nil {
		return Intent{}, err
	}
	return toIntent(pi), nil
}

func (c *StripeClient) CancelIntent(ctx context.Context, id string) error {
	params := &stripe.PaymentIntentCancelParams{}
	params.Context = ctx
	_, err := c.intents.Cancel(id, params)
	return err
}

func toIntent(pi *stripe.PaymentIntent) Intent {
	return Intent{
		ID:           pi.ID,
		ClientSecret: pi.ClientSecret,
		Status:       string(pi.Status),
	}
}
