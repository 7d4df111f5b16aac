package checkout

import (
	"context"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	appointmentRepo "lacquer/database/repository/appointment"
	"lacquer/models"
	"lacquer/services/payment"
)

var hundredDec = decimal.NewFromInt(100)

// Finalizer runs the downstream collaborators after a payment confirms:
// appointment creation, slot booking, and discount consumption. The payment
// is already captured by the time Finalize runs, so individual failures are
// logged and reported but never roll it back.
type Finalizer interface {
	Finalize(ctx context.Context, session *models.CheckoutSession, result models.ConfirmationResult) (string, error)
}

// DefaultFinalizer implements Finalizer over the appointment repo and the
// discount ledger.
type DefaultFinalizer struct {
	Appointments appointmentRepo.AppointmentRepository
	Ledger       DiscountLedger
	Logger       *zap.Logger
}

func (f *DefaultFinalizer) Finalize(ctx context.Context, session *models.CheckoutSession, result models.ConfirmationResult) (string, error) {
	if result.ProviderPaymentID == payment.CherrySentinelPaymentID {
		// Known trust gap: Cherry settlement is unconfirmed at this point and
		// there is no reconciliation step downstream.
		f.Logger.Warn("finalizing booking on provisional cherry payment",
			zap.String("sessionId", session.SessionID))
	}

	appt := models.Appointment{
		UserID:            session.UserID,
		ArtistID:          session.ArtistID,
		ServiceID:         session.ServiceID,
		Date:              session.Date,
		StartTime:         session.StartTime,
		Method:            session.Pricing.Method,
		ProviderPaymentID: result.ProviderPaymentID,
		DepositCents:      session.Quote.ChargeNowCents(),
		RemainingCents:    remainingCents(session.Quote),
	}

	apptID, err := f.Appointments.CreateAppointment(ctx, appt)
	if err != nil {
		// The charge went through; surface the appointment gap to the caller
		// instead of pretending the booking exists.
		f.Logger.Error("appointment creation failed after captured payment",
			zap.String("sessionId", session.SessionID),
			zap.String("providerPaymentId", result.ProviderPaymentID),
			zap.Error(err))
		return "", err
	}

	if err := f.Appointments.BookTimeSlot(ctx, models.TimeSlotBooking{
		ArtistID:      session.ArtistID,
		Date:          session.Date,
		StartTime:     session.StartTime,
		AppointmentID: apptID,
	}); err != nil {
		f.Logger.Error("slot booking failed after captured payment",
			zap.String("appointmentId", apptID), zap.Error(err))
	}

	if session.AppliedCouponID != "" {
		if err := f.Ledger.ConsumeCoupon(ctx, session.AppliedCouponID); err != nil {
			f.Logger.Error("coupon consumption failed", zap.Error(err))
		}
	}
	if session.AppliedGiftCardID != "" {
		cents := session.Pricing.GiftCardDiscount.Mul(hundredDec).Round(0).IntPart()
		if err := f.Ledger.ConsumeGiftCard(ctx, session.AppliedGiftCardID, cents); err != nil {
			f.Logger.Error("gift card consumption failed", zap.Error(err))
		}
	}

	return apptID, nil
}

func remainingCents(q models.PricingResult) int64 {
	return q.Remaining.Mul(hundredDec).Round(0).IntPart()
}
