// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"github.com/Sharon404/wallet-app/internal/config"
	"github.com/Sharon404/wallet-app/internal/handlers"
	"github.com/Sharon404/wallet-app/internal/middleware"
	"github.com/Sharon404/wallet-app/internal/providers/flutterwave"
	"github.com/Sharon404/wallet-app/internal/providers/mpesa"
	"github.com/Sharon404/wallet-app/internal/repositories"
	"github.com/Sharon404/wallet-app/internal/services/auth"
	"github.com/Sharon404/wallet-app/internal/services/card"
	"github.com/Sharon404/wallet-app/internal/services/notification"
	"github.com/Sharon404/wallet-app/internal/services/rates"
	"github.com/Sharon404/wallet-app/internal/services/reconcile"
	"github.com/Sharon404/wallet-app/internal/services/settlement"

	"github.com/gofiber/fiber/v2"
	"github.com/shopspring/decimal"
)

// SetupRoutes configures all application routes.
// It groups routes by functionality and applies appropriate middleware.
func SetupRoutes(app *fiber.App) {
	// Repositories
	ledger := repositories.NewLedger(repositories.DB)
	userRepo := repositories.NewUserRepository(repositories.DB)

	// Provider clients
	mpesaClient := mpesa.NewClient(mpesa.ConfigFromEnv())
	flwClient := flutterwave.NewClient(flutterwave.ConfigFromEnv())

	// Services
	notifier := notification.NewService()
	authService := auth.NewService(userRepo, ledger, repositories.CacheService, notifier)
	rateService := rates.NewService(repositories.CacheService, rates.Config{
		BaseURL: config.GetEnv("RATES_API_URL", ""),
	})
	cardService := card.NewService()

	threshold := decimal.NewFromInt(int64(config.GetIntEnv("LARGE_TRANSFER_THRESHOLD", 50000)))
	settlementService := settlement.NewService(
		ledger,
		userRepo,
		rateService,
		authService,
		mpesaClient,
		flwClient,
		cardService,
		notifier,
		settlement.Config{LargeTransferThreshold: threshold},
	)
	reconcileService := reconcile.NewService(ledger)

	// Handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(userRepo)
	walletHandler := handlers.NewWalletHandler(settlementService, rateService, flwClient)
	transactionHandler := handlers.NewTransactionHandler(settlementService)
	webhookHandler := handlers.NewWebhookHandler(reconcileService,
		config.GetEnv("FLW_WEBHOOK_SECRET", ""))

	// Health check at the root
	app.Get("/health", handlers.HealthCheck)

	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to the Wallet API",
			"version": "1.0.0",
			"docs":    "/api",
		})
	})

	api := app.Group("/api")

	// Public endpoints (no auth required)
	api.Post("/register", authHandler.RegisterUser)
	api.Get("/activate", authHandler.ActivateUser)
	api.Post("/login", authHandler.LoginUser)
	api.Post("/verify-otp", authHandler.VerifyOtp)
	api.Post("/refresh", authHandler.RefreshToken)

	// Provider callbacks; authenticated by signature, not by session.
	webhooks := app.Group("/webhooks")
	webhooks.Post("/push-payment", webhookHandler.MpesaPush)
	webhooks.Post("/push-payment/result", webhookHandler.MpesaB2C)
	webhooks.Post("/transfer-result", webhookHandler.Flutterwave)

	// Protected routes with auth middleware
	authMiddleware := middleware.NewAuthMiddleware(userRepo)
	protected := api.Use(authMiddleware.Handler)

	protected.Post("/logout", authHandler.Logout)
	protected.Post("/change-password", authHandler.ChangePassword)
	protected.Get("/user/profile", userHandler.GetProfile)
	protected.Post("/user/pin", authHandler.SetPin)
	protected.Post("/otp", authHandler.RequestOtp)

	protected.Get("/wallet", walletHandler.GetWallet)
	protected.Get("/convert-preview", walletHandler.ConvertPreview)
	protected.Get("/banks", walletHandler.ListBanks)

	protected.Get("/transactions", transactionHandler.History)
	protected.Post("/transactions", transactionHandler.Create)
	protected.Get("/transactions/:reference/status", transactionHandler.Status)
}
