package checkout

import "fmt"

// CheckoutError is the typed failure for session and discount operations.
type CheckoutError struct {
	Code    string
	Message string
}

func (e *CheckoutError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func NewSessionError(msg string) error {
	return &CheckoutError{Code: "sessionError", Message: msg}
}

func NewDiscountError(msg string) error {
	return &CheckoutError{Code: "discountError", Message: msg}
}

// ErrSubmitInFlight rejects a re-entrant confirm: each session allows
// exactly one in-flight submission.
var ErrSubmitInFlight = &CheckoutError{
	Code:    "submitInFlight",
	Message: "a confirmation is already in progress for this session",
}
