package payment

import (
	"context"

	"go.uber.org/zap"

	"lacquer/models"
)

// CardAdapter confirms a card charge synchronously against the PSP. Cards
// are the only rail that can charge a deposit instead of the full amount.
type CardAdapter struct {
	PSP    PSPClient
	Logger *zap.Logger
}

func (a *CardAdapter) Method() models.PaymentMethod { return models.MethodCard }

func (a *CardAdapter) ValidateDetails(b models.BillingDetails) error {
	fields := requireAddress(b)
	fields["name"] = b.Name
	// The embedded card widget tokenizes the card fields before submit; a
	// missing token means the widget never reported ready.
	fields["paymentMethodId"] = b.PaymentMethodID
	return requireFields(fields)
}

func (a *CardAdapter) Confirm(ctx context.Context, auth *models.PaymentAuthorization, b models.BillingDetails) models.ConfirmationResult {
	return confirmViaPSP(ctx, a.PSP, a.Logger, auth, ConfirmParams{
		PaymentMethodID: b.PaymentMethodID,
	})
}
