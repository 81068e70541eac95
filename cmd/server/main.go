package main

import (
	"context" // context package is needed for Redis operations
	"log"     // log package is needed for logging

	"marketplace_system/internal/accounts"   // Account deletion orchestrator
	"marketplace_system/internal/api"        // Custom package for API handlers
	"marketplace_system/internal/cache"      // Redis cache wrapper
	"marketplace_system/internal/catalog"    // Cached catalog reads
	"marketplace_system/internal/checkout"   // Cart split + order creation
	"marketplace_system/internal/config"     // Custom package for configuration
	"marketplace_system/internal/middleware" // Custom package for middleware
	"marketplace_system/internal/notify"     // Notification dispatcher
	"marketplace_system/internal/orders"     // Order state machine

	"github.com/gin-gonic/gin"     // Gin web framework
	"github.com/redis/go-redis/v9" // Redis client
	"github.com/sirupsen/logrus"   // Logrus for structured logging
	"gorm.io/driver/mysql"         // MySQL driver for GORM
	"gorm.io/gorm"                 // GORM ORM library
)

// Main function to set up and run the server
func main() {
	cfg := config.LoadConfig() // Load configuration

	// Setup logger
	logrus.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	// Connect to the database
	db, err := gorm.Open(mysql.Open(cfg.DSN()), &gorm.Config{})
	if err != nil {
		logrus.Fatalf("failed to connect to DB: %v", err)
	}

	// Setup Redis client
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPass,
		DB:       cfg.RedisDB,
	})
	// The cache is optional: an unreachable Redis degrades to always-miss
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		logrus.Warnf("redis unavailable, running without cache: %v", err)
		redisClient = nil
	}
	readCache := cache.New(redisClient)

	// Wire the core services
	hub := notify.NewHub()
	dispatcher := notify.NewDispatcher(db, notify.LogEmailSender{}, notify.LogSMSSender{}, hub)
	events := notify.AsyncSink{Inner: dispatcher} // Off the request's critical path

	fees := checkout.TieredFeePolicy{Standard: cfg.StandardFee, Express: cfg.ExpressFee}
	checkoutSvc := checkout.NewService(db, fees, nil, events, readCache, cfg.StatementTimeout)
	orderSvc := orders.NewService(db, events, cfg.StatementTimeout)
	catalogSvc := catalog.NewService(db, readCache)
	deleter := accounts.NewOrchestrator(db, cfg.ProtectedUserID, cfg.StatementTimeout)

	// Set Mode to Release if in production
	if cfg.IsProd {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup Gin
	r := gin.Default()
	if err := r.SetTrustedProxies([]string{"127.0.0.1"}); err != nil {
		logrus.Fatalf("failed to set trusted proxies: %v", err)
	}
	r.Use(middleware.RequestTimeout(cfg.RequestTimeout))

	// Auth routes
	r.POST("/auth/register", api.RegisterHandler(db))
	r.POST("/auth/login", api.LoginHandler(db, cfg.JWTSecret))

	// Public catalog reads
	r.GET("/products/:productID", api.GetProductHandler(catalogSvc))
	r.GET("/vendors/:vendorID", api.GetVendorHandler(catalogSvc))
	r.GET("/categories/:categoryID/products", api.ListCategoryProductsHandler(catalogSvc))

	// Authenticated routes
	authed := r.Group("")
	authed.Use(middleware.JWTAuthMiddleware(cfg.JWTSecret))
	authed.GET("/notifications/ws", api.NotificationsWSHandler(hub))

	// Cart and checkout (customer)
	authed.GET("/cart", api.GetCartHandler(db, readCache))
	authed.POST("/cart", api.AddToCartHandler(db, readCache))
	authed.DELETE("/cart/:productID", api.RemoveFromCartHandler(db, readCache))
	authed.POST("/checkout", api.CheckoutHandler(checkoutSvc))

	// Orders
	authed.GET("/orders", api.ListMyOrdersHandler(db, orderSvc))
	authed.GET("/orders/:orderID", api.GetOrderHandler(db, orderSvc))
	authed.POST("/orders/:orderID/transition", api.TransitionOrderHandler(orderSvc))
	authed.POST("/orders/:orderID/payment", api.PaymentCallbackHandler(orderSvc))

	// Vendor product management
	vendorGroup := authed.Group("/vendor")
	vendorGroup.Use(middleware.RequireRole(db, "vendor"))
	vendorGroup.PUT("/products/:productID", api.UpdateProductHandler(db, catalogSvc))

	// Admin routes (protected, admin only)
	adminGroup := authed.Group("/admin")
	adminGroup.Use(middleware.AdminOnlyMiddleware(db))
	adminGroup.GET("/users", api.ListUsersHandler(db, readCache))
	adminGroup.DELETE("/users/:userID", api.DeleteUserHandler(deleter, readCache))
	adminGroup.GET("/users/:userID/references", api.ScanUserReferencesHandler(deleter))
	adminGroup.PUT("/vendors/:vendorID/status", api.ApproveVendorHandler(db, readCache))

	log.Println("Server running on " + cfg.AppPort)
	r.Run(":" + cfg.AppPort) // Start the server on port cfg.AppPort
}
