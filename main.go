// File: lacquer/main.go
package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"lacquer/config"
	"lacquer/cron"
	"lacquer/database"
	appointmentRepoPkg "lacquer/database/repository/appointment"
	discountRepoPkg "lacquer/database/repository/discount"
	"lacquer/handlers"
	"lacquer/routes"
	"lacquer/services/checkout"
	"lacquer/services/payment"
	"lacquer/utils"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/stripe/stripe-go/v76"
)

func main() {
	config.LoadConfig()
	logger := utils.GetLogger()

	database.InitDB()
	utils.InitCache()
	stripe.Key = config.AppConfig.StripeKey

	// Create the Gin router.
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(gin.Logger())

	// The payment processor client and the delayed-cancel queue.
	psp := payment.NewStripeClient(config.AppConfig.StripeKey, logger)
	taskClient := asynq.NewClient(asynq.RedisClientOpt{
		Addr:     config.AppConfig.RedisAddr,
		Password: config.AppConfig.RedisPassword,
		DB:       config.AppConfig.RedisQueueDB,
	})
	cron.InitAuthorizationWorker(psp)

	// repositories.
	couponRepo := discountRepoPkg.NewMongoCouponRepo()
	giftCardRepo := discountRepoPkg.NewMongoGiftCardRepo()
	apptRepo := appointmentRepoPkg.NewMongoAppointmentRepo()

	// services.
	sessionStore := &checkout.RedisSessionStore{
		Client: utils.GetCacheClient(),
	}

	discountLedger := &checkout.DefaultDiscountLedger{
		Coupons:   couponRepo,
		GiftCards: giftCardRepo,
		Logger:    logger,
	}

	authManager := &payment.AuthorizationManager{
		PSP:      psp,
		Currency: config.AppConfig.Currency,
		Logger:   logger,
		Tasks:    taskClient,
	}

	finalizer := &checkout.DefaultFinalizer{
		Appointments: apptRepo,
		Ledger:       discountLedger,
		Logger:       logger,
	}

	orchestrator := &checkout.ConfirmationOrchestrator{
		Sessions:  sessionStore,
		Auth:      authManager,
		Finalizer: finalizer,
		Logger:    logger,
	}

	checkoutService := &checkout.DefaultCheckoutService{
		Sessions:     sessionStore,
		Ledger:       discountLedger,
		Auth:         authManager,
		Orchestrator: orchestrator,
		Logger:       logger,
	}

	checkoutHandler := handlers.NewCheckoutHandler(checkoutService, logger)

	// Assemble the handler bundle.
	handlerBundle := &handlers.HandlerBundle{
		InitiateSession:  checkoutHandler.InitiateSession,
		UpdateSession:    checkoutHandler.UpdateSession,
		GetQuote:         checkoutHandler.GetQuote,
		GetPaymentIntent: checkoutHandler.GetPaymentIntent,
		ConfirmBooking:   checkoutHandler.ConfirmBooking,
		CancelSession:    checkoutHandler.CancelSession,
	}

	// Register routes with the assembled handler bundle.
	routes.RegisterRoutes(router, handlerBundle)

	utils.StartHealthMonitor(utils.GetCacheClient(), database.MongoClient)

	// Start the HTTP server.
	port := config.AppConfig.AppPort
	if port == "" {
		port = "8080"
	}
	srv := &http.Server{
		Addr:    "0.0.0.0:" + port,
		Handler: router,
	}

	logger.Sugar().Infof("Starting server on %s...", srv.Addr)
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Sugar().Fatalf("main: server failed to start: %v", err)
		}
	}()

	// Wait for an OS signal to gracefully shutdown.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Sugar().Info("main: server is shutting down...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.Sugar().Fatalf("main: server forced to shutdown: %v", err)
	}

	taskClient.Close()
	logger.Sugar().Info("main: server stopped gracefully")
}
