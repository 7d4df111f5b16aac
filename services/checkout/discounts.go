package checkout

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	discountRepo "lacquer/database/repository/discount"
	"lacquer/models"
)

// DiscountLedger validates and consumes coupon and gift-card codes. The
// pricing engine never calls this itself; it only sees the resulting dollar
// totals.
type DiscountLedger interface {
	ValidateCoupon(ctx context.Context, code, serviceID string, amount decimal.Decimal) (*models.Coupon, error)
	CalculateDiscount(coupon *models.Coupon, amount decimal.Decimal) decimal.Decimal
	ValidateGiftCard(ctx context.Context, code string, amount decimal.Decimal) (*models.GiftCard, error)
	ConsumeCoupon(ctx context.Context, id string) error
	ConsumeGiftCard(ctx context.Context, id string, amountCents int64) error
}

// DefaultDiscountLedger implements DiscountLedger over the mongo repos.
type DefaultDiscountLedger struct {
	Coupons   discountRepo.CouponRepository
	GiftCards discountRepo.GiftCardRepository
	Logger    *zap.Logger
}

func (l *DefaultDiscountLedger) ValidateCoupon(ctx context.Context, code, serviceID string, amount decimal.Decimal) (*models.Coupon, error) {
	coupon, err := l.Coupons.GetByCode(ctx, code)
	if err != nil {
		return nil, NewDiscountError(fmt.Sprintf("coupon %q not found", code))
	}
	if !coupon.ExpiresAt.IsZero() && coupon.ExpiresAt.Before(time.Now()) {
		return nil, NewDiscountError("coupon has expired")
	}
	if coupon.MaxRedemptions > 0 && coupon.Redeemed >= coupon.MaxRedemptions {
		return nil, NewDiscountError("coupon has no redemptions left")
	}
	if coupon.ServiceID != "" && coupon.ServiceID != serviceID {
		return nil, NewDiscountError("coupon does not apply to this service")
	}
	return coupon, nil
}

// CalculateDiscount returns the dollar discount the coupon grants on amount,
// capped at the amount itself.
func (l *DefaultDiscountLedger) CalculateDiscount(coupon *models.Coupon, amount decimal.Decimal) decimal.Decimal {
	var discount decimal.Decimal
	switch coupon.Kind {
	case models.CouponAmount:
		discount = coupon.Value
	case models.CouponPercent:
		discount = amount.Mul(coupon.Value.Div(decimal.NewFromInt(100))).Round(2)
	case models.CouponFull:
		discount = amount
	case models.CouponDeferred:
		// Pay-after-service coupons defer collection rather than discount it.
		discount = decimal.Zero
	}
	if discount.GreaterThan(amount) {
		discount = amount
	}
	return discount
}

func (l *DefaultDiscountLedger) ValidateGiftCard(ctx context.Context, code string, amount decimal.Decimal) (*models.GiftCard, error) {
	card, err := l.GiftCards.GetByCode(ctx, code)
	if err != nil {
		return nil, NewDiscountError(fmt.Sprintf("gift card %q not found", code))
	}
	if !card.Active {
		return nil, NewDiscountError("gift card is no longer active")
	}
	if card.BalanceCents <= 0 {
		return nil, NewDiscountError("gift card has no balance")
	}
	return card, nil
}

func (l *DefaultDiscountLedger) ConsumeCoupon(ctx context.Context, id string) error {
	if err := l.Coupons.IncrementRedeemed(ctx, id); err != nil {
		return fmt.Errorf("failed to consume coupon %s: %w", id, err)
	}
	return nil
}

func (l *DefaultDiscountLedger) ConsumeGiftCard(ctx context.Context, id string, amountCents int64) error {
	if err := l.GiftCards.Debit(ctx, id, amountCents); err != nil {
		return fmt.Errorf("failed to consume gift card %s: %w", id, err)
	}
	return nil
}
