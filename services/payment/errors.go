package payment

import (
	"errors"
	"fmt"

	"github.com/stripe/stripe-go/v76"

	"lacquer/models"
)

// Error is the typed failure every payment operation reports. The Class is
// what the confirmation orchestrator keys its retry decision on.
type Error struct {
	Class   models.ErrorClass
	Code    string
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewValidationError(msg string) error {
	return &Error{Class: models.ErrClassValidation, Code: "validationError", Message: msg}
}

func NewNetworkError(msg string) error {
	return &Error{Class: models.ErrClassNetwork, Code: "networkError", Message: msg}
}

func NewAuthExpiredError(msg string) error {
	return &Error{Class: models.ErrClassAuthExpired, Code: "authorizationExpired", Message: msg}
}

func NewTerminalError(msg string) error {
	return &Error{Class: models.ErrClassTerminal, Code: "paymentDeclined", Message: msg}
}

// Classify buckets an arbitrary error from a PSP call. PSP reports of an
// unknown or expired intent are the only retryable class; declined cards and
// malformed requests are final; anything unrecognised is treated as a
// transport failure so the caller still reaches a terminal state.
func Classify(err error) *Error {
	if err == nil {
		return nil
	}

	var perr *Error
	if errors.As(err, &perr) {
		return perr
	}

	var serr *stripe.Error
	if errors.As(err, &serr) {
		switch serr.Code {
		case stripe.ErrorCodeResourceMissing, stripe.ErrorCodePaymentIntentUnexpectedState:
			return &Error{Class: models.ErrClassAuthExpired, Code: string(serr.Code), Message: serr.Msg}
		}
		switch serr.Type {
		case stripe.ErrorTypeCard:
			// Declines, fraud blocks, insufficient funds: surface the PSP
			// reason verbatim, never retry.
			return &Error{Class: models.ErrClassTerminal, Code: string(serr.Code), Message: serr.Msg}
		case stripe.ErrorTypeInvalidRequest:
			return &Error{Class: models.ErrClassValidation, Code: string(serr.Code), Message: serr.Msg}
		}
		return &Error{Class: models.ErrClassNetwork, Code: string(serr.Code), Message: serr.Msg}
	}

	return &Error{Class: models.ErrClassNetwork, Code: "networkError", Message: err.Error()}
}
