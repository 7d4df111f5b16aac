// File: lacquer/handlers/handlerBundle.go
package handlers

import (
	"github.com/gin-gonic/gin"
)

// HandlerBundle groups all your endpoint handlers into one struct.
type HandlerBundle struct {
	// Checkout endpoints
	InitiateSession  gin.HandlerFunc
	UpdateSession    gin.HandlerFunc
	GetQuote         gin.HandlerFunc
	GetPaymentIntent gin.HandlerFunc
	ConfirmBooking   gin.HandlerFunc
	CancelSession    gin.HandlerFunc
}
