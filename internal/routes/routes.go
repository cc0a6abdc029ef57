// Package routes defines the API routing configuration.
// It sets up all HTTP routes and their corresponding handlers,
// including middleware and authentication requirements.
package routes

import (
	"log"

	"aurum/internal/config"
	"aurum/internal/events"
	"aurum/internal/handlers"
	"aurum/internal/metrics"
	"aurum/internal/middleware"
	"aurum/internal/models"
	"aurum/internal/repositories"
	"aurum/internal/services/auth"
	"aurum/internal/services/billing"
	"aurum/internal/services/oauth"
	"aurum/internal/services/session"
	"aurum/internal/services/siwe"
	"aurum/internal/services/totp"

	"github.com/gofiber/adaptor/v2"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

// SetupRoutes configures all application routes.
// It groups routes by functionality and applies appropriate middleware.
func SetupRoutes(app *fiber.App, db *gorm.DB) {
	// Initialize repositories
	identityRepo := repositories.NewIdentityRepository(db, repositories.CacheService)
	paymentRepo := repositories.NewPaymentRepository(db)
	planRepo := repositories.NewPlanRepository(db)

	redisClient := repositories.CacheService.Client()

	// Event publisher; the app degrades to no-op publishing when the
	// stream is unreachable rather than refusing to start.
	var publisher events.Publisher
	watermillPub, err := events.NewWatermillPublisher(redisClient)
	if err != nil {
		log.Printf("Event publisher unavailable, continuing without events: %v", err)
		publisher = events.NewNoopPublisher()
	} else {
		publisher = watermillPub
	}

	collector := metrics.NewCollector()

	// Initialize the auth service and its collaborators
	sessionManager := session.NewManager(
		session.NewRedisStore(redisClient),
		config.GetDurationEnv("SESSION_TTL", session.DefaultTTL),
	)
	verifier := siwe.NewVerifier(siwe.Config{
		Domain:    config.GetEnv("SIWE_DOMAIN", "localhost"),
		URI:       config.GetEnv("SIWE_URI", "http://localhost:8080"),
		Statement: config.GetEnv("SIWE_STATEMENT", "Sign in to Aurum"),
		ChainID:   config.GetInt64Env("SIWE_CHAIN_ID", 1),
	}, siwe.NewRedisNonceStore(redisClient))
	totpService := totp.NewService(config.GetEnv("TOTP_ISSUER", "Aurum"))

	authService := auth.NewService(
		identityRepo,
		sessionManager,
		verifier,
		totpService,
		publisher,
		collector,
		auth.Config{
			PendingTokenSecret: config.GetEnv("PENDING_TOKEN_SECRET", "aurum-pending-secret"),
		},
	)

	billingService := billing.NewService(
		billing.Config{
			SecretKey:     config.GetEnv("STRIPE_SECRET_KEY", ""),
			WebhookSecret: config.GetEnv("STRIPE_WEBHOOK_SECRET", ""),
			SuccessURL:    config.GetEnv("BILLING_SUCCESS_URL", "http://localhost:8080/billing/success"),
			CancelURL:     config.GetEnv("BILLING_CANCEL_URL", "http://localhost:8080/billing/cancel"),
		},
		identityRepo,
		paymentRepo,
		planRepo,
		publisher,
		collector,
	)
	seedPlans(billingService)

	oauthService := oauth.NewService(oauth.Config{
		GoogleClientID:     config.GetEnv("OAUTH_GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: config.GetEnv("OAUTH_GOOGLE_CLIENT_SECRET", ""),
		GitHubClientID:     config.GetEnv("OAUTH_GITHUB_CLIENT_ID", ""),
		GitHubClientSecret: config.GetEnv("OAUTH_GITHUB_CLIENT_SECRET", ""),
		RedirectBase:       config.GetEnv("OAUTH_REDIRECT_BASE", "http://localhost:8080/api/auth/oauth"),
	}, repositories.CacheService)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	userHandler := handlers.NewUserHandler(authService)
	walletHandler := handlers.NewWalletHandler(authService)
	twoFactorHandler := handlers.NewTwoFactorHandler(authService)
	billingHandler := handlers.NewBillingHandler(billingService)
	oauthHandler := handlers.NewOAuthHandler(oauthService, authService)
	adminHandler := handlers.NewAdminHandler(identityRepo, paymentRepo)

	app.Use(middleware.Metrics())

	// Root welcome route and operational endpoints
	app.Get("/", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{
			"message": "Welcome to Aurum API",
			"version": "1.0.0",
			"docs":    "/api",
		})
	})
	app.Get("/health", handlers.HealthCheck)
	app.Get("/metrics", adaptor.HTTPHandler(metrics.Handler()))

	api := app.Group("/api")

	// Public endpoints (no auth required)
	api.Post("/register", userHandler.Register)
	api.Post("/login", authHandler.Login)
	api.Post("/login/2fa", authHandler.LoginSecondFactor)
	api.Get("/auth/wallet/challenge", walletHandler.Challenge)
	api.Post("/auth/wallet/verify", walletHandler.Verify)
	api.Get("/auth/oauth/:provider", oauthHandler.Redirect)
	api.Get("/auth/oauth/:provider/callback", oauthHandler.Callback)
	api.Get("/plans", billingHandler.ListPlans)
	api.Post("/billing/webhook", billingHandler.Webhook)

	// Create middleware instance
	sessionMiddleware := middleware.NewSessionMiddleware(authService)

	// Protected routes with session middleware
	protected := api.Use(sessionMiddleware.Handler)

	protected.Get("/me", userHandler.Me)
	protected.Post("/logout", authHandler.Logout)
	protected.Post("/change-password", authHandler.ChangePassword)
	protected.Post("/billing/checkout", billingHandler.CreateCheckout)

	twofa := protected.Group("/2fa")
	twofa.Post("/setup", twoFactorHandler.Setup)
	twofa.Post("/enable", twoFactorHandler.Enable)
	twofa.Post("/disable", twoFactorHandler.Disable)

	setupAdminRoutes(app, sessionMiddleware, adminHandler)
}

func setupAdminRoutes(app *fiber.App, sessionMiddleware *middleware.SessionMiddleware, h *handlers.AdminHandler) {
	admin := app.Group("/api/admin", sessionMiddleware.Handler, middleware.RequireAdmin)

	admin.Get("/users", h.ListIdentities)
	admin.Get("/users/:id", h.GetIdentity)
	admin.Patch("/users/:id/role", h.UpdateRole)
	admin.Patch("/users/:id/premium", h.SetPremium)
	admin.Delete("/users/:id", h.DeleteIdentity)
	admin.Get("/users/:id/payments", h.ListIdentityPayments)
	admin.Get("/payments", h.ListPayments)

	// Cache stats endpoint for diagnostics
	admin.Get("/cache-stats", handlers.CacheStats)
}

// seedPlans upserts the subscription catalog so /plans always has rows
// to serve. Price ids come from the environment; the defaults only make
// sense against a Stripe test account.
func seedPlans(svc billing.Service) {
	plans := []models.SubscriptionPlan{
		{
			Code:          "premium_monthly",
			Name:          "Premium Monthly",
			StripePriceID: config.GetEnv("STRIPE_PRICE_MONTHLY", "price_premium_monthly"),
			AmountCents:   999,
			Currency:      "usd",
			Interval:      "month",
		},
		{
			Code:          "premium_yearly",
			Name:          "Premium Yearly",
			StripePriceID: config.GetEnv("STRIPE_PRICE_YEARLY", "price_premium_yearly"),
			AmountCents:   9999,
			Currency:      "usd",
			Interval:      "year",
		},
	}
	if err := svc.SeedPlans(plans); err != nil {
		log.Printf("Failed to seed subscription plans: %v", err)
	}
}
