package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/nikolayk812/payhook/internal/config"
	"github.com/nikolayk812/payhook/internal/handler"
	"github.com/nikolayk812/payhook/internal/middleware"
	"github.com/nikolayk812/payhook/internal/notifier"
	"github.com/nikolayk812/payhook/internal/provider/stripe"
	"github.com/nikolayk812/payhook/internal/repository"
	"github.com/nikolayk812/payhook/internal/service"
	"go.uber.org/zap"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatal("Failed to create logger:", err)
	}
	defer logger.Sync()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	ctx := context.Background()

	// Clients are constructed once here and injected below, no package-level
	// singletons.
	pool, err := pgxpool.New(ctx, cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to create pgx pool", zap.Error(err))
	}
	defer pool.Close()

	if err := pool.Ping(ctx); err != nil {
		logger.Fatal("Failed to ping database", zap.Error(err))
	}

	orderRepo, err := repository.NewOrder(pool)
	if err != nil {
		logger.Fatal("Failed to create order repository", zap.Error(err))
	}

	eventRepo, err := repository.NewWebhookEvent(pool)
	if err != nil {
		logger.Fatal("Failed to create webhook event repository", zap.Error(err))
	}

	paymentProvider, err := stripe.New(cfg.StripeAPIKey, cfg.StripeWebhookSecret)
	if err != nil {
		logger.Fatal("Failed to create stripe provider", zap.Error(err))
	}

	emailNotifier, err := notifier.NewEmail(notifier.EmailConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUsername,
		Password: cfg.SMTPPassword,
		From:     cfg.EmailFrom,
	})
	if err != nil {
		logger.Fatal("Failed to create email notifier", zap.Error(err))
	}

	checkoutService, err := service.NewCheckout(orderRepo, paymentProvider, logger,
		cfg.CheckoutSuccessURL, cfg.CheckoutCancelURL, cfg.ProviderTimeout)
	if err != nil {
		logger.Fatal("Failed to create checkout service", zap.Error(err))
	}

	reconcileService, err := service.NewReconcile(orderRepo, eventRepo, paymentProvider, emailNotifier, logger)
	if err != nil {
		logger.Fatal("Failed to create reconcile service", zap.Error(err))
	}

	orderHandler := handler.NewOrder(checkoutService, logger)
	webhookHandler := handler.NewWebhook(reconcileService, logger)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.RequestID())
	router.Use(middleware.Logger(logger))

	v1 := router.Group("/api/v1")
	{
		v1.POST("/checkout", orderHandler.CreateCheckout)
		v1.GET("/orders/:id", orderHandler.GetOrder)
		v1.GET("/orders", orderHandler.ListOrders)
		v1.POST("/webhooks/stripe", webhookHandler.HandleStripe)
		v1.GET("/health", func(c *gin.Context) {
			if err := pool.Ping(c.Request.Context()); err != nil {
				c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unhealthy", "database": err.Error()})
				return
			}
			c.JSON(http.StatusOK, gin.H{"status": "healthy"})
		})
	}

	server := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		logger.Info("Starting HTTP server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal("HTTP server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("Server shutdown failed", zap.Error(err))
	}

	logger.Info("Server stopped")
}
