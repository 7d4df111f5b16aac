package models

import "github.com/shopspring/decimal"

// DepositPolicy describes how much of an order an artist collects up front.
// Percent is expressed as a percentage (e.g. 33.33), Fixed as a dollar
// amount; when both are set, Fixed wins.
type DepositPolicy struct {
	Enabled bool            `json:"enabled"`
	Percent decimal.Decimal `json:"percent"`
	Fixed   decimal.Decimal `json:"fixed"`
}

// PricingInput is everything the pricing engine needs to quote a booking.
// All money values are non-negative dollars.
type PricingInput struct {
	ServicePrice     decimal.Decimal `json:"servicePrice"`
	TaxRatePercent   decimal.Decimal `json:"taxRatePercent"`
	DepositPolicy    DepositPolicy   `json:"depositPolicy"`
	Method           PaymentMethod   `json:"method"`
	CouponDiscount   decimal.Decimal `json:"couponDiscount"`
	GiftCardDiscount decimal.Decimal `json:"giftCardDiscount"`
	DepositReduction decimal.Decimal `json:"depositReduction"`
	CouponKind       CouponKind      `json:"couponKind,omitempty"`
}

// ResultKind distinguishes the three shapes a quote can take.
type ResultKind string

const (
	// ResultStandard collects a deposit or full amount now, plus processor fee.
	ResultStandard ResultKind = "standard"
	// ResultFree is the all-zero quote: nothing owed, no fee, no payment step.
	ResultFree ResultKind = "free"
	// ResultDeferred records a deposit/remaining split to be collected after
	// the appointment; no fee and no payment is taken now.
	ResultDeferred ResultKind = "deferred"
)

// PricingResult is the charge breakdown for a booking.
//
// Invariants for the standard kind:
//
//	subtotal  = max(0, servicePrice - couponDiscount - giftCardDiscount)
//	total     = subtotal + tax + fee
//	remaining = max(0, subtotal + tax - deposit), or 0 when full payment
//	            is forced (then deposit = subtotal + tax)
type PricingResult struct {
	Kind      ResultKind      `json:"kind"`
	Subtotal  decimal.Decimal `json:"subtotal"`
	Tax       decimal.Decimal `json:"tax"`
	Deposit   decimal.Decimal `json:"deposit"`
	Fee       decimal.Decimal `json:"fee"`
	Total     decimal.Decimal `json:"total"`
	Remaining decimal.Decimal `json:"remaining"`
	// FullPayment is set when the deposit rule was overridden and the whole
	// subtotal+tax is collected now.
	FullPayment bool `json:"fullPayment"`
}

// ChargeNow is the amount the customer pays at confirmation time: the
// deposit plus the processor fee. For forced-full quotes the deposit already
// equals subtotal+tax.
func (r PricingResult) ChargeNow() decimal.Decimal {
	return r.Deposit.Add(r.Fee)
}

// ChargeNowCents returns ChargeNow in integer cents, as the PSP expects.
func (r PricingResult) ChargeNowCents() int64 {
	return toCents(r.ChargeNow())
}

// TotalCents returns Total in integer cents.
func (r PricingResult) TotalCents() int64 {
	return toCents(r.Total)
}

func toCents(d decimal.Decimal) int64 {
	return d.Round(2).Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
