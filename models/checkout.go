package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// CheckoutSession holds context between quoting and final confirmation. It is
// the single owner of the live PaymentAuthorization: the handle lives here,
// never in package-level state, so confirmation is effectively single-writer
// per session.
type CheckoutSession struct {
	SessionID string `json:"sessionId"`
	UserID    string `json:"userId"`
	ArtistID  string `json:"artistId"`
	ServiceID string `json:"serviceId"`
	Date      string `json:"date"` // e.g. "2026-03-14"
	StartTime string `json:"startTime"`

	Pricing PricingInput  `json:"pricing"`
	Quote   PricingResult `json:"quote"`

	Authorization *PaymentAuthorization `json:"authorization,omitempty"`

	AppliedCouponID   string `json:"appliedCouponId,omitempty"`
	AppliedGiftCardID string `json:"appliedGiftCardId,omitempty"`

	// GiftCardBalance snapshots the applied card's balance so the discount
	// can be re-derived whenever other discounts move; the card is only ever
	// debited what the order actually needed.
	GiftCardBalance decimal.Decimal `json:"giftCardBalance"`

	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
}

// Appointment is the booking record persisted once a payment confirms.
type Appointment struct {
	ID                string        `bson:"id" json:"id"`
	UserID            string        `bson:"userId" json:"userId"`
	ArtistID          string        `bson:"artistId" json:"artistId"`
	ServiceID         string        `bson:"serviceId" json:"serviceId"`
	Date              string        `bson:"date" json:"date"`
	StartTime         string        `bson:"startTime" json:"startTime"`
	Method            PaymentMethod `bson:"method" json:"method"`
	ProviderPaymentID string        `bson:"providerPaymentId" json:"providerPaymentId"`
	DepositCents      int64         `bson:"depositCents" json:"depositCents"`
	RemainingCents    int64         `bson:"remainingCents" json:"remainingCents"`
	CreatedAt         time.Time     `bson:"createdAt" json:"createdAt"`
}

// TimeSlotBooking marks an artist's slot as taken by an appointment.
type TimeSlotBooking struct {
	ArtistID      string    `bson:"artistId" json:"artistId"`
	Date          string    `bson:"date" json:"date"`
	StartTime     string    `bson:"startTime" json:"startTime"`
	AppointmentID string    `bson:"appointmentId" json:"appointmentId"`
	CreatedAt     time.Time `bson:"createdAt" json:"createdAt"`
}
