package payment

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"lacquer/models"
)

// BNPLAdapter handles the Klarna and Affirm rails. Both always charge the
// full subtotal+tax+fee and both sit behind a manual pre-approval gate: the
// customer must come back marked approved before a confirm is allowed, and a
// declined customer is routed to the provider's own site instead.
type BNPLAdapter struct {
	Rail   models.PaymentMethod // MethodKlarna or MethodAffirm
	PSP    PSPClient
	Logger *zap.Logger
}

func (a *BNPLAdapter) Method() models.PaymentMethod { return a.Rail }

func (a *BNPLAdapter) ValidateDetails(b models.BillingDetails) error {
	fields := requireAddress(b)
	fields["name"] = b.Name
	fields["email"] = b.Email
	if err := requireFields(fields); err != nil {
		return err
	}

	switch b.PreApproval {
	case models.PreApprovalApproved:
		return nil
	case models.PreApprovalDeclined:
		return NewValidationError(fmt.Sprintf("%s declined this purchase; finish checkout on the provider's site", a.Rail))
	default:
		return NewValidationError(fmt.Sprintf("%s pre-approval is still pending", a.Rail))
	}
}

func (a *BNPLAdapter) Confirm(ctx context.Context, auth *models.PaymentAuthorization, b models.BillingDetails) models.ConfirmationResult {
	return confirmViaPSP(ctx, a.PSP, a.Logger, auth, ConfirmParams{
		PaymentMethodID: b.PaymentMethodID,
		ReturnURL:       b.ReturnURL,
	})
}
