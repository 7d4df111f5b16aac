package checkout

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lacquer/models"
	"lacquer/services/payment"
)

// InitiateRequest starts a checkout session for one service booking.
type InitiateRequest struct {
	UserID         string               `json:"userId"`
	ArtistID       string               `json:"artistId"`
	ServiceID      string               `json:"serviceId"`
	Date           string               `json:"date"`
	StartTime      string               `json:"startTime"`
	ServicePrice   decimal.Decimal      `json:"servicePrice"`
	TaxRatePercent decimal.Decimal      `json:"taxRatePercent"`
	DepositPolicy  models.DepositPolicy `json:"depositPolicy"`
	Method         models.PaymentMethod `json:"method"`
}

// SessionUpdate mutates a live session. Nil fields are untouched; an empty
// coupon or gift-card code removes the applied one.
type SessionUpdate struct {
	Method           *models.PaymentMethod `json:"method,omitempty"`
	CouponCode       *string               `json:"couponCode,omitempty"`
	GiftCardCode     *string               `json:"giftCardCode,omitempty"`
	DepositReduction *decimal.Decimal      `json:"depositReduction,omitempty"`
}

// CheckoutService manages the stateful checkout session from first quote to
// confirmed booking.
type CheckoutService interface {
	InitiateSession(ctx context.Context, req InitiateRequest) (*models.CheckoutSession, error)
	UpdateSession(ctx context.Context, sessionID string, upd SessionUpdate) (*models.CheckoutSession, error)
	GetQuote(ctx context.Context, sessionID string) (models.PricingResult, error)
	// PaymentIntent hands the widget a fresh authorization handle for the
	// session's current amount and rail.
	PaymentIntent(ctx context.Context, sessionID string) (*models.PaymentAuthorization, error)
	Confirm(ctx context.Context, sessionID string, billing models.BillingDetails) (SubmitOutcome, error)
	CancelSession(ctx context.Context, sessionID string) error
}

// DefaultCheckoutService implements CheckoutService.
type DefaultCheckoutService struct {
	Sessions     SessionStore
	Ledger       DiscountLedger
	Auth         *payment.AuthorizationManager
	Orchestrator *ConfirmationOrchestrator
	Logger       *zap.Logger
}
