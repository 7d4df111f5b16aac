package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"lacquer/models"
	"lacquer/services/checkout"
	"lacquer/services/payment"
	"lacquer/utils"
)

// CheckoutHandler exposes the checkout session lifecycle over HTTP.
type CheckoutHandler struct {
	Service checkout.CheckoutService
	Logger  *zap.Logger
}

func NewCheckoutHandler(svc checkout.CheckoutService, logger *zap.Logger) *CheckoutHandler {
	return &CheckoutHandler{Service: svc, Logger: logger}
}

// InitiateSession handles POST /api/checkout/session.
func (h *CheckoutHandler) InitiateSession(c *gin.Context) {
	var req checkout.InitiateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	session, err := h.Service.InitiateSession(c.Request.Context(), req)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessionID": session.SessionID,
		"quote":     session.Quote,
	})
}

// UpdateSession handles PUT /api/checkout/session/:sessionID. Nil fields in
// the payload leave the session untouched.
func (h *CheckoutHandler) UpdateSession(c *gin.Context) {
	sessionID := c.Param("sessionID")
	var upd checkout.SessionUpdate
	if err := c.ShouldBindJSON(&upd); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	session, err := h.Service.UpdateSession(c.Request.Context(), sessionID, upd)
	if err != nil {
		h.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"sessionID": session.SessionID,
		"quote":     session.Quote,
	})
}

// GetQuote handles GET /api/checkout/session/:sessionID/quote.
func (h *CheckoutHandler) GetQuote(c *gin.Context) {
	quote, err := h.Service.GetQuote(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, quote)
}

// GetPaymentIntent handles POST /api/checkout/session/:sessionID/payment-intent.
// The embedded payment widget mounts with the returned handle.
func (h *CheckoutHandler) GetPaymentIntent(c *gin.Context) {
	auth, err := h.Service.PaymentIntent(c.Request.Context(), c.Param("sessionID"))
	if err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"paymentIntentID": auth.ID,
		"clientSecret":    auth.Handle,
		"amountCents":     auth.AmountCents,
	})
}

// ConfirmBooking handles POST /api/checkout/session/:sessionID/confirm.
func (h *CheckoutHandler) ConfirmBooking(c *gin.Context) {
	sessionID := c.Param("sessionID")
	var billing models.BillingDetails
	if err := c.ShouldBindJSON(&billing); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "invalid input", err.Error())
		return
	}

	outcome, err := h.Service.Confirm(c.Request.Context(), sessionID, billing)
	if err != nil {
		if errors.Is(err, checkout.ErrSubmitInFlight) {
			utils.JSONError(c, http.StatusConflict, "confirmation already in progress", err.Error())
			return
		}
		h.respondError(c, err)
		return
	}

	if outcome.State != checkout.StateSucceeded {
		h.Logger.Warn("confirmation failed",
			zap.String("sessionId", sessionID),
			zap.String("errorClass", string(outcome.Result.ErrorClass)))
		c.JSON(statusForClass(outcome.Result.ErrorClass), gin.H{
			"state":      string(outcome.State),
			"errorClass": string(outcome.Result.ErrorClass),
			"message":    outcome.Result.Message,
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"state":         string(outcome.State),
		"appointmentID": outcome.AppointmentID,
		"paymentID":     outcome.Result.ProviderPaymentID,
	})
}

// CancelSession handles DELETE /api/checkout/session/:sessionID.
func (h *CheckoutHandler) CancelSession(c *gin.Context) {
	if err := h.Service.CancelSession(c.Request.Context(), c.Param("sessionID")); err != nil {
		h.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Session cancelled"})
}

// respondError maps typed service errors to HTTP statuses.
func (h *CheckoutHandler) respondError(c *gin.Context, err error) {
	var ce *checkout.CheckoutError
	if errors.As(err, &ce) {
		status := http.StatusBadRequest
		if ce.Code == "discountError" {
			status = http.StatusUnprocessableEntity
		}
		utils.JSONError(c, status, ce.Message, ce.Code)
		return
	}

	var pe *payment.Error
	if errors.As(err, &pe) {
		utils.JSONError(c, statusForClass(pe.Class), pe.Message, pe.Code)
		return
	}

	h.Logger.Error("checkout request failed", zap.Error(err))
	utils.JSONError(c, http.StatusInternalServerError, "Internal Server Error", err.Error())
}

func statusForClass(class models.ErrorClass) int {
	switch class {
	case models.ErrClassValidation:
		return http.StatusUnprocessableEntity
	case models.ErrClassAuthExpired:
		return http.StatusConflict
	case models.ErrClassTerminal:
		return http.StatusPaymentRequired
	default:
		return http.StatusBadGateway
	}
}
