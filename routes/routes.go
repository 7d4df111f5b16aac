package routes

import (
	"net/http"
	"time"

	"lacquer/handlers"
	"lacquer/middleware"
	"lacquer/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

// RegisterCheckoutRoutes sets up the endpoints for the checkout engine.
func RegisterCheckoutRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	checkoutGroup := r.Group("/api/checkout")
	{
		checkoutGroup.POST("/session", hb.InitiateSession)
		checkoutGroup.PUT("/session/:sessionID", hb.UpdateSession)
		checkoutGroup.GET("/session/:sessionID/quote", hb.GetQuote)
		checkoutGroup.POST("/session/:sessionID/payment-intent", hb.GetPaymentIntent)
		checkoutGroup.POST("/session/:sessionID/confirm", hb.ConfirmBooking)
		checkoutGroup.DELETE("/session/:sessionID", hb.CancelSession)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "services": utils.GetHealthStatus()})
	})
}

// RegisterRoutes centralizes registration of all endpoints and middleware.
func RegisterRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	// Setup global middleware (e.g., CORS) here.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))
	r.Use(utils.ErrorHandler())
	r.Use(middleware.RateLimitMiddleware())

	RegisterHealthRoute(r)
	RegisterCheckoutRoutes(r, hb)
}
