package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CouponKind classifies how a coupon discounts an order.
type CouponKind string

const (
	// CouponAmount subtracts a fixed dollar amount.
	CouponAmount CouponKind = "amount"
	// CouponPercent subtracts a percentage of the service price.
	CouponPercent CouponKind = "percent"
	// CouponFull is a 100%-off coupon; the quote collapses to the free result.
	CouponFull CouponKind = "full"
	// CouponDeferred is the pay-after-service class: nothing is collected at
	// booking time and no processor fee applies.
	CouponDeferred CouponKind = "deferred"
)

// Coupon is a redeemable discount code, optionally scoped to one service.
type Coupon struct {
	ID             string          `bson:"id" json:"id"`
	Code           string          `bson:"code" json:"code"`
	Kind           CouponKind      `bson:"kind" json:"kind"`
	Value          decimal.Decimal `bson:"value" json:"value"` // dollars for amount, percentage for percent
	ServiceID      string          `bson:"serviceId,omitempty" json:"serviceId,omitempty"`
	MaxRedemptions int             `bson:"maxRedemptions" json:"maxRedemptions"`
	Redeemed       int             `bson:"redeemed" json:"redeemed"`
	ExpiresAt      time.Time       `bson:"expiresAt" json:"expiresAt"`
	CreatedAt      time.Time       `bson:"createdAt" json:"createdAt"`
}

// GiftCard is a stored-value code drawn down as bookings consume it.
type GiftCard struct {
	ID           string    `bson:"id" json:"id"`
	Code         string    `bson:"code" json:"code"`
	BalanceCents int64     `bson:"balanceCents" json:"balanceCents"`
	Active       bool      `bson:"active" json:"active"`
	CreatedAt    time.Time `bson:"createdAt" json:"createdAt"`
	UpdatedAt    time.Time `bson:"updatedAt" json:"updatedAt"`
}

// Balance returns the gift card balance in dollars.
func (g GiftCard) Balance() decimal.Decimal {
	return decimal.New(g.BalanceCents, -2)
}
