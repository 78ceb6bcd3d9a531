package main

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/yourusername/vendora/config"
	"github.com/yourusername/vendora/handlers"
	"github.com/yourusername/vendora/logger"
	"github.com/yourusername/vendora/middleware"
	"github.com/yourusername/vendora/models"
)

func main() {
	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load config")
	}

	if err := logger.Setup(cfg.LogLevel, cfg.LogFormat); err != nil {
		log.Fatal().Err(err).Msg("Failed to set up logging")
	}

	// Initialize database
	db, err := config.InitDB(cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}

	// Setup router
	router := gin.Default()

	// CORS middleware
	router.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	})

	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"service": "vendora-api",
		})
	})

	// Stripe webhook (signature-verified, no JWT)
	webhookHandler := handlers.NewWebhookHandler(db, cfg)
	router.POST("/webhooks/stripe", webhookHandler.HandleStripeEvent)

	// API routes
	api := router.Group("/api/v1")
	{
		authHandler := handlers.NewAuthHandler(db, cfg)
		api.POST("/auth/refresh", authHandler.Refresh)

		authed := api.Group("")
		authed.Use(middleware.JwtAuthMiddleware(cfg))

		// Invoice endpoints
		invoiceHandler := handlers.NewInvoiceHandler(db, cfg)
		authed.POST("/invoices", invoiceHandler.CreateInvoice)
		authed.GET("/invoices", invoiceHandler.ListInvoices)
		authed.GET("/invoices/:id", invoiceHandler.GetInvoice)
		authed.POST("/invoices/:id/sign", invoiceHandler.SignInvoice)
		authed.POST("/invoices/:id/send", invoiceHandler.SendInvoice)
		authed.POST("/invoices/:id/pay", invoiceHandler.PayInvoice)

		// Vendor onboarding endpoints
		connectHandler := handlers.NewConnectHandler(db, cfg)
		vendor := authed.Group("/connect")
		vendor.Use(middleware.RequireRole(models.RoleVendor))
		vendor.POST("/account", connectHandler.CreateAccount)
		vendor.POST("/onboarding-link", connectHandler.CreateOnboardingLink)
		vendor.GET("/status", connectHandler.AccountStatus)
	}

	// Start server
	port := cfg.Port
	if port == "" {
		port = "8080"
	}

	log.Info().Str("port", port).Msg("Starting Vendora API server")
	if err := router.Run(":" + port); err != nil {
		log.Fatal().Err(err).Msg("Failed to start server")
	}
}
