package checkout

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"lacquer/models"
	"lacquer/services/payment"
)

// SubmitState names the stations of the confirmation state machine.
type SubmitState string

const (
	StateIdle         SubmitState = "idle"
	StateValidating   SubmitState = "validating"
	StateEnsuringAuth SubmitState = "ensuring_authorization"
	StateConfirming   SubmitState = "confirming"
	StateRetrying     SubmitState = "retrying"
	StateSucceeded    SubmitState = "succeeded"
	StateFailed       SubmitState = "failed"
)

// AdapterResolver returns the rail adapter for a method. Production wiring
// uses payment.ForMethod; tests substitute fakes.
type AdapterResolver func(models.PaymentMethod) (payment.Adapter, error)

// SubmitOutcome is the terminal result of one submission.
type SubmitOutcome struct {
	State         SubmitState               `json:"state"`
	Result        models.ConfirmationResult `json:"result"`
	AppointmentID string                    `json:"appointmentId,omitempty"`
}

// ConfirmationOrchestrator drives submit → ensure-fresh-authorization →
// confirm → classify, with at most one automatic retry, to a terminal state.
// Retry policy lives here and only here; adapters never retry on their own.
type ConfirmationOrchestrator struct {
	Sessions  SessionStore
	Auth      *payment.AuthorizationManager
	Finalizer Finalizer
	Logger    *zap.Logger

	// AdapterFor defaults to payment.ForMethod when nil.
	AdapterFor AdapterResolver

	// One in-flight submission per session. Set before the first network
	// call, cleared on every exit path.
	inflight sync.Map
}

// Submit runs the confirmation state machine for the given session. The
// returned outcome is always terminal; an error is returned only for
// re-entrant submits and missing sessions.
func (o *ConfirmationOrchestrator) Submit(ctx context.Context, sessionID string, billing models.BillingDetails) (SubmitOutcome, error) {
	if _, loaded := o.inflight.LoadOrStore(sessionID, struct{}{}); loaded {
		return SubmitOutcome{}, ErrSubmitInFlight
	}
	defer o.inflight.Delete(sessionID)

	session, err := o.Sessions.Get(ctx, sessionID)
	if err != nil {
		return SubmitOutcome{}, NewSessionError(err.Error())
	}

	// Free and deferred quotes collect nothing now, and neither does a
	// standard quote whose deposit was fully reduced: there is no payment
	// step, finalize straight away.
	if session.Quote.Kind != models.ResultStandard || session.Quote.ChargeNowCents() == 0 {
		return o.succeed(ctx, session, models.ConfirmationResult{Success: true})
	}

	// Validating.
	method := session.Pricing.Method
	adapter, err := o.adapterFor(method)
	if err != nil {
		return o.fail(ctx, session, classifyToResult(err)), nil
	}
	if err := adapter.ValidateDetails(billing); err != nil {
		// Required-fields failures block before any network call.
		return o.fail(ctx, session, classifyToResult(err)), nil
	}

	// EnsuringAuthorization. Cherry checks out externally and never holds a
	// PSP authorization; the state is passed through untouched.
	if method.RequiresAuthorization() {
		auth, err := o.Auth.EnsureFresh(ctx, session.Authorization,
			session.Quote.ChargeNowCents(), method.PSPMethodTypes())
		if err != nil {
			return o.fail(ctx, session, classifyToResult(err)), nil
		}
		session.Authorization = auth
	}

	// Confirming.
	result := o.confirmSafely(ctx, adapter, session, billing)
	if result.Success {
		return o.succeed(ctx, session, result)
	}

	// Retrying: exactly once, and only when the PSP no longer recognises
	// the authorization. Everything else is terminal for this submit.
	if result.ErrorClass == models.ErrClassAuthExpired && method.RequiresAuthorization() {
		o.Logger.Info("authorization expired mid-confirm, retrying once",
			zap.String("sessionId", session.SessionID))

		o.Auth.Invalidate(ctx, session.Authorization)
		session.Authorization = nil
		fresh, err := o.Auth.EnsureFresh(ctx, nil,
			session.Quote.ChargeNowCents(), method.PSPMethodTypes())
		if err != nil {
			return o.fail(ctx, session, classifyToResult(err)), nil
		}
		session.Authorization = fresh

		retried := o.confirmSafely(ctx, adapter, session, billing)
		if retried.Success {
			return o.succeed(ctx, session, retried)
		}
		if retried.ErrorClass == models.ErrClassAuthExpired {
			// A second expiry is never retried again.
			retried.Message = "payment session expired, please try again"
		}
		return o.fail(ctx, session, retried), nil
	}

	return o.fail(ctx, session, result), nil
}

// confirmSafely invokes the adapter and converts any panic into a network
// failure so the state machine always reaches a terminal state.
func (o *ConfirmationOrchestrator) confirmSafely(ctx context.Context, adapter payment.Adapter, session *models.CheckoutSession, billing models.BillingDetails) (result models.ConfirmationResult) {
	defer func() {
		if r := recover(); r != nil {
			o.Logger.Error("panic during payment confirmation",
				zap.String("sessionId", session.SessionID), zap.Any("panic", r))
			result = models.ConfirmationResult{
				ErrorClass: models.ErrClassNetwork,
				Message:    "unexpected error during payment confirmation",
			}
		}
	}()
	return adapter.Confirm(ctx, session.Authorization, billing)
}

func (o *ConfirmationOrchestrator) succeed(ctx context.Context, session *models.CheckoutSession, result models.ConfirmationResult) (SubmitOutcome, error) {
	if session.Authorization != nil {
		session.Authorization.Status = models.AuthorizationConfirmed
	}

	apptID, err := o.Finalizer.Finalize(ctx, session, result)
	if err != nil {
		// The payment stands; only the booking record is missing.
		o.Logger.Error("finalization incomplete after successful payment",
			zap.String("sessionId", session.SessionID), zap.Error(err))
	}

	if err := o.Sessions.Delete(ctx, session.SessionID); err != nil {
		o.Logger.Warn("failed to clear confirmed session",
			zap.String("sessionId", session.SessionID), zap.Error(err))
	}

	o.Logger.Info("checkout confirmed",
		zap.String("sessionId", session.SessionID),
		zap.String("providerPaymentId", result.ProviderPaymentID),
		zap.String("appointmentId", apptID))
	return SubmitOutcome{State: StateSucceeded, Result: result, AppointmentID: apptID}, nil
}

func (o *ConfirmationOrchestrator) fail(ctx context.Context, session *models.CheckoutSession, result models.ConfirmationResult) SubmitOutcome {
	// Persist whatever authorization state we ended up with so the next
	// submit can reuse or recreate it.
	if err := o.Sessions.Save(ctx, session); err != nil {
		o.Logger.Warn("failed to persist session after failed submit",
			zap.String("sessionId", session.SessionID), zap.Error(err))
	}
	o.Logger.Info("checkout submit failed",
		zap.String("sessionId", session.SessionID),
		zap.String("class", string(result.ErrorClass)),
		zap.String("reason", result.Message))
	return SubmitOutcome{State: StateFailed, Result: result}
}

func (o *ConfirmationOrchestrator) adapterFor(method models.PaymentMethod) (payment.Adapter, error) {
	if o.AdapterFor != nil {
		return o.AdapterFor(method)
	}
	return payment.ForMethod(method, o.Auth.PSP, o.Logger)
}

func classifyToResult(err error) models.ConfirmationResult {
	var perr *payment.Error
	if errors.As(err, &perr) {
		return models.ConfirmationResult{ErrorClass: perr.Class, Message: perr.Message}
	}
	return models.ConfirmationResult{ErrorClass: models.ErrClassNetwork, Message: err.Error()}
}
