package payment

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"go.uber.org/zap"

	"lacquer/models"
)

// Adapter confirms a payment against one rail. The contract is uniform:
// Confirm never returns a Go error for expected failure modes; the outcome,
// including its error class, is always in the ConfirmationResult so the
// orchestrator can classify deterministically.
type Adapter interface {
	Method() models.PaymentMethod
	// ValidateDetails is the rail's required-fields predicate. It runs
	// before any network call.
	ValidateDetails(b models.BillingDetails) error
	Confirm(ctx context.Context, auth *models.PaymentAuthorization, b models.BillingDetails) models.ConfirmationResult
}

// ForMethod returns the adapter for the given rail. The switch is
// exhaustive over models.PaymentMethod; an unknown rail is a validation
// error, never a silent fallback.
func ForMethod(method models.PaymentMethod, psp PSPClient, logger *zap.Logger) (Adapter, error) {
	switch method {
	case models.MethodCard:
		return &CardAdapter{PSP: psp, Logger: logger}, nil
	case models.MethodKlarna, models.MethodAffirm:
		return &BNPLAdapter{Rail: method, PSP: psp, Logger: logger}, nil
	case models.MethodAfterpay:
		return &AfterpayAdapter{PSP: psp, Logger: logger}, nil
	case models.MethodCherry:
		return &CherryAdapter{Logger: logger}, nil
	}
	return nil, NewValidationError(fmt.Sprintf("unsupported payment method %q", method))
}

// confirmViaPSP is the shared confirm path for the PSP-backed rails.
func confirmViaPSP(ctx context.Context, psp PSPClient, logger *zap.Logger, auth *models.PaymentAuthorization, p ConfirmParams) models.ConfirmationResult {
	if auth == nil {
		return models.ConfirmationResult{
			ErrorClass: models.ErrClassAuthExpired,
			Message:    "no live authorization for this session",
		}
	}

	intent, err := psp.ConfirmIntent(ctx, auth.ID, p)
	if err != nil {
		perr := Classify(err)
		logger.Warn("psp confirm failed",
			zap.String("intentId", auth.ID),
			zap.String("class", string(perr.Class)),
			zap.String("reason", perr.Message))
		return models.ConfirmationResult{ErrorClass: perr.Class, Message: perr.Message}
	}

	switch intent.Status {
	case "succeeded", "requires_action", "processing":
		// requires_action covers redirect rails where the PSP reports the
		// charge as committed pending the customer's return.
		return models.ConfirmationResult{Success: true, ProviderPaymentID: intent.ID}
	}

	return models.ConfirmationResult{
		ErrorClass: models.ErrClassTerminal,
		Message:    fmt.Sprintf("payment not completed (status %s)", intent.Status),
	}
}

// requireFields returns a validation error naming every missing field.
func requireFields(fields map[string]string) error {
	var missing []string
	for name, val := range fields {
		if strings.TrimSpace(val) == "" {
			missing = append(missing, name)
		}
	}
	if len(missing) == 0 {
		return nil
	}
	sort.Strings(missing)
	return NewValidationError("missing required fields: " + strings.Join(missing, ", "))
}

func requireAddress(b models.BillingDetails) map[string]string {
	return map[string]string{
		"addressLine1": b.AddressLine1,
		"city":         b.City,
		"state":        b.State,
		"postalCode":   b.PostalCode,
		"country":      b.Country,
	}
}
