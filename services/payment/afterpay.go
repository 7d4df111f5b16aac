package payment

import (
	"context"

	"go.uber.org/zap"

	"lacquer/models"
)

// AfterpayAdapter confirms an Afterpay charge synchronously. Afterpay always
// charges the full amount and needs a redirect-return URL, but has no
// pre-approval gate.
type AfterpayAdapter struct {
	PSP    PSPClient
	Logger *zap.Logger
}

func (a *AfterpayAdapter) Method() models.PaymentMethod { return models.MethodAfterpay }

func (a *AfterpayAdapter) ValidateDetails(b models.BillingDetails) error {
	fields := requireAddress(b)
	fields["name"] = b.Name
	fields["email"] = b.Email
	fields["returnUrl"] = b.ReturnURL
	return requireFields(fields)
}

func (a *AfterpayAdapter) Confirm(ctx context.Context, auth *models.PaymentAuthorization, b models.BillingDetails) models.ConfirmationResult {
	return confirmViaPSP(ctx, a.PSP, a.Logger, auth, ConfirmParams{
		PaymentMethodID: b.PaymentMethodID,
		ReturnURL:       b.ReturnURL,
	})
}
