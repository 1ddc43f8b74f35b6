package main

import (
	"log"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/logger"

	"github.com/Erickxkunzx12/ARmind-CVs-sub001/internal/controller"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/internal/engine"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/internal/middleware"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/internal/model"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/internal/payment"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/pkg/config"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/pkg/cron"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/pkg/database"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/pkg/email"
	"github.com/Erickxkunzx12/ARmind-CVs-sub001/pkg/plan"
)

func setupRoutes(app *fiber.App, entitlements *engine.Entitlement) {
	api := app.Group("/api")

	// Auth Routes
	auth := api.Group("/auth")
	auth.Post("/register", controller.Register)
	auth.Post("/login", controller.Login)

	// Protected Routes
	protected := api.Group("/", middleware.AuthMiddleware())
	protected.Get("/me", controller.GetMe)
	protected.Get("/usage", controller.GetUsage)
	protected.Get("/entitlements/:action", controller.CheckEntitlement)

	// Gated business actions: entitlement fast-fails, the ledger decides.
	resumes := protected.Group("/resumes")
	resumes.Get("/", controller.ListMyResumes)
	resumes.Post("/analyze", middleware.RequireEntitlement(entitlements, "cv_analysis"), controller.AnalyzeResume)
	resumes.Delete("/:id", controller.DeleteMyResume)

	protected.Post("/cvs", middleware.RequireEntitlement(entitlements, "cv_creation"), controller.CreateCV)

	// Subscription routes
	subscriptions := api.Group("/subscriptions")
	subscriptions.Get("/plans", controller.ListPlans)

	subProtected := subscriptions.Group("/", middleware.AuthMiddleware())
	subProtected.Get("/my", controller.GetMySubscription)
	subProtected.Get("/history", controller.GetSubscriptionHistory)
	subProtected.Post("/purchase", controller.Purchase)
	subProtected.Post("/cancel", controller.CancelSubscription)

	// Gateway redirects are bare browser GETs without our auth context.
	subscriptions.Get("/payment-return", controller.HandlePaymentReturn)
	subscriptions.Get("/payment-cancelled", controller.HandlePaymentCancelled)
}

func buildGatewayRegistry(cfg *config.Config) *payment.Registry {
	var gateways []payment.Gateway

	if cfg.Payments.Stripe.Enabled() {
		gateways = append(gateways, payment.NewStripeGateway(cfg.Payments.Stripe.SecretKey))
		log.Println("Card gateway enabled")
	}
	if cfg.Payments.PayPal.Enabled() {
		gateways = append(gateways, payment.NewPayPalGateway(
			cfg.Payments.PayPal.ClientID,
			cfg.Payments.PayPal.Secret,
			cfg.Payments.PayPal.Environment,
			cfg.Payments.CLPUSDRate,
		))
		log.Println("Wallet gateway enabled")
	}
	if len(gateways) == 0 {
		log.Println("No payment gateway configured; only the free plan is available")
	}

	return payment.NewRegistry(gateways...)
}

func main() {
	cfg := config.Load()

	if cfg.Email.ResendAPIKey != "" {
		if err := email.InitEmailService(cfg.Email.ResendAPIKey); err != nil {
			log.Fatal("Could not initialize email service:", err)
		}
	}

	if cfg.Database.URL == "" {
		log.Fatal("DATABASE_URL is not set")
	}

	database.InitDB(cfg.Database.URL)
	err := database.MigrateDatabase(
		&model.User{},
		&model.Subscription{},
		&model.QuotaCounter{},
		&model.PaymentTransaction{},
		&model.PendingPayment{},
		&model.Resume{},
		&model.GeneratedCV{},
	)
	if err != nil {
		log.Printf("Migration warning: %v", err)
	}

	catalog := plan.Default()
	store := engine.NewSubscriptionStore(database.DB, catalog)
	ledger := engine.NewQuotaLedger(database.DB, catalog, store)
	entitlements := engine.NewEntitlement(database.DB, catalog, store, ledger)
	registry := buildGatewayRegistry(cfg)
	payments := payment.NewOrchestrator(database.DB, catalog, store, registry,
		cfg.Server.ReturnURL, cfg.Server.CancelURL)

	controller.InitEngine(catalog, store, ledger, entitlements, payments)

	cron.InitSubscriptionExpiryCron(store, catalog)
	cron.InitPaymentReconcileCron(payments)

	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error": err.Error(),
			})
		},
	})

	app.Use(logger.New())
	app.Use(cors.New())

	setupRoutes(app, entitlements)

	log.Printf("Server is running on port %s", cfg.Server.Port)
	log.Fatal(app.Listen(":" + cfg.Server.Port))
}
