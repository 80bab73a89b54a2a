package main

import (
	"log"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"github.com/influence-engine/funnel-go/api"
	"github.com/influence-engine/funnel-go/billing"
	"github.com/influence-engine/funnel-go/config"
	"github.com/influence-engine/funnel-go/email"
	"github.com/influence-engine/funnel-go/events"
	"github.com/influence-engine/funnel-go/stores"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found -- config defaults will be used")
	}

	db, err := stores.NewDB()
	if err != nil {
		log.Fatalf("Failed to open database: %v", err)
	}
	defer db.Close()

	purchases := stores.NewSQLPurchaseRepository(db)
	profiles := stores.NewSQLProfileRepository(db)
	audits := stores.NewSQLWebhookEventRepository(db)

	gateway, err := billing.NewStripeGateway(billing.StripeConfig{
		SecretKey:     config.StripeSecretKey(),
		WebhookSecret: config.StripeWebhookSecret(),
		SuccessURL:    config.CheckoutSuccessURL,
		CancelURL:     config.CheckoutCancelURL,
	})
	if err != nil {
		log.Fatalf("Failed to initialize payment gateway: %v", err)
	}

	var receipts events.ReceiptSender
	if config.SendReceiptEmails {
		client, err := email.NewClient()
		if err != nil {
			log.Printf("Receipt email disabled: %v", err)
		} else {
			receipts = client
		}
	}

	sink := events.LogSink{}
	reconciler := events.NewReconciler(gateway, purchases, profiles, audits, receipts, sink)
	handlers := api.NewHandlers(gateway, reconciler, purchases, profiles, sink)

	r := gin.Default()
	r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	r.Use(cors.New(cors.Config{
		AllowOrigins: []string{
			"http://localhost:3000",
			"http://localhost:4321",
			"http://127.0.0.1:3000",
			"http://127.0.0.1:4321",
		},
		AllowMethods: []string{
			"GET", "POST", "PUT", "DELETE", "OPTIONS",
		},
		AllowHeaders: []string{
			"Origin", "Content-Type", "Accept", "Authorization",
		},
		AllowCredentials: true,
	}))

	r.GET("/api/v1/health", api.HealthHandler(db))

	r.POST("/api/v1/funnel/advance", handlers.AdvanceFunnelHandler)
	r.POST("/api/v1/funnel/select", handlers.SelectProductHandler)
	r.POST("/api/v1/funnel/decline", handlers.DeclineProductHandler)

	r.POST("/api/v1/checkout/session", handlers.CreateCheckoutSessionHandler)
	r.GET("/api/v1/orders/:sessionId", handlers.GetOrderHandler)

	r.POST("/api/v1/stripe/webhook", handlers.StripeWebhookHandler)

	r.POST("/api/v1/auth/profile", handlers.ProfileHandler)
	r.GET("/api/v1/profile", handlers.GetProfileHandler)

	log.Printf("Starting funnel engine on port %s", config.Port)
	if err := r.Run(":" + config.Port); err != nil {
		log.Fatal("Failed to start server:", err)
	}
}
