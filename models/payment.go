package models

import "time"

// PaymentMethod identifies one of the supported payment rails.
// Every switch over a PaymentMethod must handle all five values;
// the default branch is an unsupported-method error, never a fallback.
type PaymentMethod string

const (
	MethodCard     PaymentMethod = "card"
	MethodKlarna   PaymentMethod = "klarna"
	MethodAffirm   PaymentMethod = "affirm"
	MethodAfterpay PaymentMethod = "afterpay"
	MethodCherry   PaymentMethod = "cherry"
)

// Valid reports whether m is one of the known rails.
func (m PaymentMethod) Valid() bool {
	switch m {
	case MethodCard, MethodKlarna, MethodAffirm, MethodAfterpay, MethodCherry:
		return true
	}
	return false
}

// IsBNPL reports whether m is a buy-now-pay-later rail requiring manual pre-approval.
func (m PaymentMethod) IsBNPL() bool {
	return m == MethodKlarna || m == MethodAffirm
}

// RequiresAuthorization reports whether confirming on m needs a PSP-side
// authorization handle. Cherry checks out on the provider's own site, so no
// handle is ever created for it.
func (m PaymentMethod) RequiresAuthorization() bool {
	return m != MethodCherry
}

// PSPMethodTypes returns the PSP payment_method_types value for m.
func (m PaymentMethod) PSPMethodTypes() []string {
	switch m {
	case MethodCard:
		return []string{"card"}
	case MethodKlarna:
		return []string{"klarna"}
	case MethodAffirm:
		return []string{"affirm"}
	case MethodAfterpay:
		return []string{"afterpay_clearpay"}
	}
	return nil
}

// AuthorizationStatus is the lifecycle state of a PaymentAuthorization.
type AuthorizationStatus string

const (
	AuthorizationPending   AuthorizationStatus = "pending"
	AuthorizationConfirmed AuthorizationStatus = "confirmed"
	AuthorizationFailed    AuthorizationStatus = "failed"
	AuthorizationExpired   AuthorizationStatus = "expired"
)

// PaymentAuthorization is a PSP-side handle for a pending amount. A checkout
// session owns at most one live authorization; it is invalidated whenever the
// amount or the selected rail changes, and expires 20 minutes after creation.
type PaymentAuthorization struct {
	ID          string              `json:"id"`
	Handle      string              `json:"handle"` // client secret handed to the payment widget
	AmountCents int64               `json:"amountCents"`
	MethodTypes []string            `json:"methodTypes"`
	Status      AuthorizationStatus `json:"status"`
	CreatedAt   time.Time           `json:"createdAt"`
}

// ErrorClass buckets confirmation failures for the orchestrator's retry decision.
type ErrorClass string

const (
	ErrClassValidation  ErrorClass = "validation"
	ErrClassNetwork     ErrorClass = "network"
	ErrClassAuthExpired ErrorClass = "authorization_expired"
	ErrClassTerminal    ErrorClass = "terminal"
)

// ConfirmationResult is the uniform outcome of a rail adapter's Confirm call.
// Adapters never return a Go error for expected failure modes; the class on
// the result is what the orchestrator classifies on.
type ConfirmationResult struct {
	Success           bool       `json:"success"`
	ProviderPaymentID string     `json:"providerPaymentId,omitempty"`
	ErrorClass        ErrorClass `json:"errorClass,omitempty"`
	Message           string     `json:"message,omitempty"`
}

// PreApproval is the manual gate state for the BNPL rails.
type PreApproval string

const (
	PreApprovalUnknown  PreApproval = "unknown"
	PreApprovalApproved PreApproval = "approved"
	PreApprovalDeclined PreApproval = "declined"
)

// BillingDetails carries everything the customer entered for the selected
// rail. PaymentMethodID is the token the embedded payment widget produced;
// it is only meaningful for the PSP-backed rails.
type BillingDetails struct {
	Name            string      `json:"name"`
	Email           string      `json:"email"`
	Phone           string      `json:"phone,omitempty"`
	AddressLine1    string      `json:"addressLine1"`
	City            string      `json:"city"`
	State           string      `json:"state"`
	PostalCode      string      `json:"postalCode"`
	Country         string      `json:"country"`
	PaymentMethodID string      `json:"paymentMethodId,omitempty"`
	ReturnURL       string      `json:"returnUrl,omitempty"`
	PreApproval     PreApproval `json:"preApproval,omitempty"`
}
