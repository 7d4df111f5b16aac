package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"lacquer/models"
	"lacquer/services/pricing"
)

// InitiateSession quotes the booking and stores a fresh session. No
// authorization is created yet; that waits for PaymentIntent or Confirm.
func (s *DefaultCheckoutService) InitiateSession(ctx context.Context, req InitiateRequest) (*models.CheckoutSession, error) {
	if req.ArtistID == "" || req.ServiceID == "" || req.Date == "" || req.StartTime == "" {
		return nil, NewSessionError("artist, service, date, and start time are required")
	}
	if !req.Method.Valid() {
		return nil, NewSessionError(fmt.Sprintf("unsupported payment method %q", req.Method))
	}

	session := &models.CheckoutSession{
		SessionID: uuid.New().String(),
		UserID:    req.UserID,
		ArtistID:  req.ArtistID,
		ServiceID: req.ServiceID,
		Date:      req.Date,
		StartTime: req.StartTime,
		Pricing: models.PricingInput{
			ServicePrice:   req.ServicePrice,
			TaxRatePercent: req.TaxRatePercent,
			DepositPolicy:  req.DepositPolicy,
			Method:         req.Method,
		},
		CreatedAt: time.Now(),
	}

	quote, err := pricing.Quote(session.Pricing)
	if err != nil {
		return nil, err
	}
	session.Quote = quote

	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	s.Logger.Info("checkout session initiated",
		zap.String("sessionId", session.SessionID),
		zap.String("method", string(req.Method)),
		zap.String("total", quote.Total.String()))
	return session, nil
}

// UpdateSession applies discount and rail changes, reprices, and invalidates
// the live authorization whenever the charge amount or the rail moved: a
// stale authorization must never be confirmed against a changed amount.
func (s *DefaultCheckoutService) UpdateSession(ctx context.Context, sessionID string, upd SessionUpdate) (*models.CheckoutSession, error) {
	session, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, NewSessionError(err.Error())
	}

	prevMethod := session.Pricing.Method
	prevCharge := session.Quote.ChargeNowCents()

	if upd.Method != nil {
		if !upd.Method.Valid() {
			return nil, NewSessionError(fmt.Sprintf("unsupported payment method %q", *upd.Method))
		}
		session.Pricing.Method = *upd.Method
	}

	if upd.CouponCode != nil {
		if *upd.CouponCode == "" {
			session.AppliedCouponID = ""
			session.Pricing.CouponDiscount = decimal.Zero
			session.Pricing.CouponKind = ""
		} else {
			coupon, err := s.Ledger.ValidateCoupon(ctx, *upd.CouponCode, session.ServiceID, session.Pricing.ServicePrice)
			if err != nil {
				return nil, err
			}
			session.AppliedCouponID = coupon.ID
			session.Pricing.CouponKind = coupon.Kind
			session.Pricing.CouponDiscount = s.Ledger.CalculateDiscount(coupon, session.Pricing.ServicePrice)
		}
	}

	if upd.GiftCardCode != nil {
		if *upd.GiftCardCode == "" {
			session.AppliedGiftCardID = ""
			session.GiftCardBalance = decimal.Zero
		} else {
			remaining := session.Pricing.ServicePrice.Sub(session.Pricing.CouponDiscount)
			card, err := s.Ledger.ValidateGiftCard(ctx, *upd.GiftCardCode, remaining)
			if err != nil {
				return nil, err
			}
			session.AppliedGiftCardID = card.ID
			session.GiftCardBalance = card.Balance()
		}
	}

	// The gift card covers whatever the coupon leaves and no more. Deriving
	// the discount from the snapshot on every reprice keeps the eventual
	// debit in step when a coupon lands or is removed after the card.
	giftCap := clampToZero(session.Pricing.ServicePrice.Sub(session.Pricing.CouponDiscount))
	session.Pricing.GiftCardDiscount = decimal.Min(session.GiftCardBalance, giftCap)

	if upd.DepositReduction != nil {
		session.Pricing.DepositReduction = *upd.DepositReduction
	}

	quote, err := pricing.Quote(session.Pricing)
	if err != nil {
		return nil, err
	}
	session.Quote = quote

	if session.Authorization != nil &&
		(session.Pricing.Method != prevMethod || quote.ChargeNowCents() != prevCharge) {
		s.Auth.Invalidate(ctx, session.Authorization)
		session.Authorization = nil
	}

	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return session, nil
}

func (s *DefaultCheckoutService) GetQuote(ctx context.Context, sessionID string) (models.PricingResult, error) {
	session, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return models.PricingResult{}, NewSessionError(err.Error())
	}
	return session.Quote, nil
}

// PaymentIntent ensures a live authorization and returns it so the embedded
// payment widget can mount with the handle.
func (s *DefaultCheckoutService) PaymentIntent(ctx context.Context, sessionID string) (*models.PaymentAuthorization, error) {
	session, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return nil, NewSessionError(err.Error())
	}

	method := session.Pricing.Method
	if !method.RequiresAuthorization() {
		return nil, NewSessionError(fmt.Sprintf("%s checkout does not use a payment intent", method))
	}
	if session.Quote.Kind != models.ResultStandard || session.Quote.ChargeNowCents() == 0 {
		return nil, NewSessionError("nothing to charge for this session")
	}

	auth, err := s.Auth.EnsureFresh(ctx, session.Authorization,
		session.Quote.ChargeNowCents(), method.PSPMethodTypes())
	if err != nil {
		return nil, err
	}
	session.Authorization = auth
	if err := s.Sessions.Save(ctx, session); err != nil {
		return nil, err
	}
	return auth, nil
}

func (s *DefaultCheckoutService) Confirm(ctx context.Context, sessionID string, billing models.BillingDetails) (SubmitOutcome, error) {
	return s.Orchestrator.Submit(ctx, sessionID, billing)
}

func clampToZero(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}

// CancelSession drops the session and releases its authorization.
func (s *DefaultCheckoutService) CancelSession(ctx context.Context, sessionID string) error {
	session, err := s.Sessions.Get(ctx, sessionID)
	if err != nil {
		return NewSessionError(err.Error())
	}
	if session.Authorization != nil {
		s.Auth.Invalidate(ctx, session.Authorization)
	}
	return s.Sessions.Delete(ctx, sessionID)
}
