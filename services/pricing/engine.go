// Package pricing turns a service price, discounts, tax policy, and deposit
// policy into a final charge breakdown. It is deterministic and side-effect
// free; coupon and gift-card lookups happen elsewhere and only their dollar
// totals arrive here.
package pricing

import (
	"fmt"

	"github.com/shopspring/decimal"

	"lacquer/models"
)

var (
	// fullPaymentThreshold: below this subtotal+tax the deposit split is not
	// worth the second collection round trip, so the full amount is charged.
	fullPaymentThreshold = decimal.NewFromInt(200)

	// Processor cut for the PSP-backed rails: 2.9% + 30¢.
	processorRate  = decimal.NewFromFloat(0.029)
	processorFixed = decimal.NewFromFloat(0.30)

	// Cherry charges a flat 1.9% with no fixed component.
	cherryRate = decimal.NewFromFloat(0.019)

	hundred = decimal.NewFromInt(100)
	one     = decimal.NewFromInt(1)
)

// Quote computes the charge breakdown for the given input.
//
// Every intermediate value is rounded to cents (half-up) before the next step
// so repeated recomputation as the customer toggles discounts or rails cannot
// drift.
func Quote(in models.PricingInput) (models.PricingResult, error) {
	if err := validate(in); err != nil {
		return models.PricingResult{}, err
	}

	subtotal := round2(clamp0(in.ServicePrice.Sub(in.CouponDiscount).Sub(in.GiftCardDiscount)))

	// A zeroed-out order or a 100%-off coupon skips tax, deposit, and fee
	// entirely: nothing is owed and no payment step runs.
	if subtotal.IsZero() || in.CouponKind == models.CouponFull {
		return freeResult(), nil
	}

	tax := round2(subtotal.Mul(in.TaxRatePercent.Div(hundred)))
	base := subtotal.Add(tax)

	// "Pay after service" coupons record the split for out-of-band
	// collection; no fee applies and nothing is charged now.
	if in.CouponKind == models.CouponDeferred {
		deposit := policyDeposit(in, subtotal)
		if deposit.GreaterThan(base) {
			deposit = base
		}
		return models.PricingResult{
			Kind:      models.ResultDeferred,
			Subtotal:  subtotal,
			Tax:       tax,
			Deposit:   deposit,
			Fee:       decimal.Zero,
			Total:     base,
			Remaining: round2(base.Sub(deposit)),
		}, nil
	}

	forced := base.LessThan(fullPaymentThreshold) ||
		in.Method != models.MethodCard ||
		!in.DepositPolicy.Enabled

	var deposit, remaining decimal.Decimal
	if forced {
		deposit = base
		remaining = decimal.Zero
	} else {
		// A fixed policy can ask for more than the discounted order is worth;
		// the deposit never exceeds what is owed.
		deposit = clamp0(round2(policyDeposit(in, subtotal).Sub(in.DepositReduction)))
		if deposit.GreaterThan(base) {
			deposit = base
		}
		remaining = round2(base.Sub(deposit))
	}

	// The fee is computed on what actually hits the processor now: the
	// deposit for a split card charge, the full subtotal+tax otherwise. A
	// fully-reduced deposit means nothing is charged now, so no fee either.
	chargeBasis := deposit
	if forced || in.Method != models.MethodCard {
		chargeBasis = base
	}
	fee := decimal.Zero
	if chargeBasis.IsPositive() {
		fee = grossedUpFee(in.Method, chargeBasis)
	}

	return models.PricingResult{
		Kind:        models.ResultStandard,
		Subtotal:    subtotal,
		Tax:         tax,
		Deposit:     deposit,
		Fee:         fee,
		Total:       round2(base.Add(fee)),
		Remaining:   remaining,
		FullPayment: forced,
	}, nil
}

// grossedUpFee returns the processor fee for charging basis on the given
// rail. For the PSP rails the fee is solved so the merchant still nets the
// full basis after the processor takes its percentage plus fixed cut:
//
//	basis + fee = (basis + fixed) / (1 - rate)
//
// Cherry's flat percentage needs no gross-up.
func grossedUpFee(method models.PaymentMethod, basis decimal.Decimal) decimal.Decimal {
	if method == models.MethodCherry {
		return round2(basis.Mul(cherryRate))
	}
	grossed := basis.Add(processorFixed).Div(one.Sub(processorRate))
	return round2(grossed.Sub(basis))
}

// policyDeposit is the deposit the artist's policy asks for, before any
// reduction: the fixed amount when set, otherwise the percentage of the
// subtotal.
func policyDeposit(in models.PricingInput, subtotal decimal.Decimal) decimal.Decimal {
	if !in.DepositPolicy.Enabled {
		return decimal.Zero
	}
	if in.DepositPolicy.Fixed.IsPositive() {
		return round2(in.DepositPolicy.Fixed)
	}
	return round2(subtotal.Mul(in.DepositPolicy.Percent.Div(hundred)))
}

func freeResult() models.PricingResult {
	return models.PricingResult{
		Kind:      models.ResultFree,
		Subtotal:  decimal.Zero,
		Tax:       decimal.Zero,
		Deposit:   decimal.Zero,
		Fee:       decimal.Zero,
		Total:     decimal.Zero,
		Remaining: decimal.Zero,
	}
}

func validate(in models.PricingInput) error {
	if !in.Method.Valid() {
		return fmt.Errorf("pricing: unsupported payment method %q", in.Method)
	}
	for _, v := range []struct {
		name string
		val  decimal.Decimal
	}{
		{"servicePrice", in.ServicePrice},
		{"taxRatePercent", in.TaxRatePercent},
		{"couponDiscount", in.CouponDiscount},
		{"giftCardDiscount", in.GiftCardDiscount},
		{"depositReduction", in.DepositReduction},
	} {
		if v.val.IsNegative() {
			return fmt.Errorf("pricing: %s must not be negative", v.name)
		}
	}
	return nil
}

func round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

func clamp0(d decimal.Decimal) decimal.Decimal {
	if d.IsNegative() {
		return decimal.Zero
	}
	return d
}
