package payment

import (
	"context"

	"go.uber.org/zap"

	"lacquer/models"
)

// CherrySentinelPaymentID marks a booking whose payment runs through
// Cherry's external checkout. True settlement happens on Cherry's side and
// is not reconciled here; downstream consumers must treat this id as
// provisional, not as a captured payment.
const CherrySentinelPaymentID = "cherry_external_checkout"

// CherryAdapter opens Cherry's third-party checkout in a new browsing
// context, so there is nothing to confirm against the PSP: Confirm
// immediately reports a provisional success with the fixed sentinel id.
type CherryAdapter struct {
	Logger *zap.Logger
}

func (a *CherryAdapter) Method() models.PaymentMethod { return models.MethodCherry }

// ValidateDetails never fails: Cherry collects everything on its own site.
func (a *CherryAdapter) ValidateDetails(models.BillingDetails) error { return nil }

func (a *CherryAdapter) Confirm(ctx context.Context, auth *models.PaymentAuthorization, b models.BillingDetails) models.ConfirmationResult {
	a.Logger.Info("cherry checkout handed off, settlement unconfirmed",
		zap.String("sentinel", CherrySentinelPaymentID))
	return models.ConfirmationResult{
		Success:           true,
		ProviderPaymentID: CherrySentinelPaymentID,
	}
}
