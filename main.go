// Package main provides the main entry point for the PayCore payment orchestration service
package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/AronSwan/onlinestore-sub023/app/handlers"
	"github.com/AronSwan/onlinestore-sub023/app/middleware"
	"github.com/AronSwan/onlinestore-sub023/app/router"
	"github.com/AronSwan/onlinestore-sub023/app/scheduler"
	"github.com/AronSwan/onlinestore-sub023/app/services"
	businessflow "github.com/AronSwan/onlinestore-sub023/business_flow"
	"github.com/AronSwan/onlinestore-sub023/config"
	_ "github.com/AronSwan/onlinestore-sub023/docs"
	"github.com/AronSwan/onlinestore-sub023/models"
	"github.com/AronSwan/onlinestore-sub023/repository"
	"github.com/gofiber/fiber/v3"
	"github.com/redis/go-redis/v9"
	"gopkg.in/natefinch/lumberjack.v2"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// Application represents the main application structure
type Application struct {
	router    *router.FiberRouter
	config    *config.ProductionConfig
	server    *fiber.App
	stopFuncs []func()
}

// @title PayCore API
// @version 1.0.0
// @description Payment orchestration and gateway reconciliation API
func main() {
	log.Println("Starting PayCore application...")

	// Load production configuration
	cfg, err := config.LoadProductionConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize application
	app, err := initializeApplication(cfg)
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}

	// Setup routes
	app.router.SetupRoutes()

	// Setup graceful shutdown
	_, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	// Start server in goroutine
	go func() {
		address := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		log.Printf("Server starting on %s", address)

		if err := app.server.Listen(address); err != nil {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Println("Shutting down gracefully...")

	// Stop background workers
	for _, fn := range app.stopFuncs {
		fn()
	}

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := app.server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Printf("Error during shutdown: %v", err)
	}

	log.Println("Server stopped")
}

// initializeLogger builds the application logger and routes the global log
// package through the same sink so handler-level log.Println calls end up
// in the rotated file as well.
func initializeLogger(cfg config.LoggingConfig) *log.Logger {
	var sink io.Writer = os.Stdout

	if cfg.FilePath != "" && (cfg.Output == "file" || cfg.Output == "both") {
		rotator := &lumberjack.Logger{
			Filename:   cfg.FilePath,
			MaxSize:    cfg.MaxSize,
			MaxBackups: cfg.MaxBackups,
			MaxAge:     cfg.MaxAge,
			Compress:   cfg.Compress,
		}
		if cfg.Output == "both" {
			sink = io.MultiWriter(os.Stdout, rotator)
		} else {
			sink = rotator
		}
	}

	logger := log.New(sink, "", log.LstdFlags|log.Lmicroseconds|log.LUTC)
	log.SetOutput(sink)
	return logger
}

// initializeDatabase initializes the database connection with connection pooling
func initializeDatabase(cfg config.DatabaseConfig) (*gorm.DB, error) {
	dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.Name, cfg.SSLMode)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	// Get underlying sql.DB for connection pooling configuration
	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	// Configure connection pooling
	sqlDB.SetMaxOpenConns(cfg.MaxOpenConns)
	sqlDB.SetMaxIdleConns(cfg.MaxIdleConns)
	sqlDB.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	sqlDB.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	// Test the connection
	if err := sqlDB.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	log.Printf("Database connection established with %d max open connections, %d max idle connections",
		cfg.MaxOpenConns, cfg.MaxIdleConns)

	return db, nil
}

// initializeCache initializes the Cache client and verifies connectivity
func initializeCache(cfg config.CacheConfig) (*redis.Client, error) {
	if !cfg.Enabled || cfg.Provider != "redis" {
		return nil, nil
	}

	opt, err := redis.ParseURL(cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("invalid redis url: %w", err)
	}
	// Override DB if provided in config
	opt.DB = cfg.RedisDB

	rc := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rc.Ping(ctx).Err(); err != nil {
		_ = rc.Close()
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	log.Printf("Redis connection established to %s (db=%d)", cfg.RedisURL, cfg.RedisDB)
	return rc, nil
}

// startCacheHealthMonitor starts a background goroutine that periodically pings Redis
// to detect connectivity issues. The returned cancel function stops the monitor.
func startCacheHealthMonitor(parent context.Context, client *redis.Client, interval time.Duration) func() {
	monitorCtx, cancel := context.WithCancel(parent)
	if interval <= 0 {
		interval = 30 * time.Second
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-monitorCtx.Done():
				return
			case <-ticker.C:
				ctx, c := context.WithTimeout(context.Background(), 3*time.Second)
				if err := client.Ping(ctx).Err(); err != nil {
					log.Printf("Redis healthcheck failed: %v", err)
				}
				c()
			}
		}
	}()
	return cancel
}

// initializeMerchantNotifier initializes the merchant notification service
func initializeMerchantNotifier(cfg *config.ProductionConfig, signer services.SignatureService, policy services.RetryPolicy, logger *log.Logger) services.MerchantNotifier {
	switch cfg.Notifier.Mode {
	case "log":
		return services.NewLogMerchantNotifier(logger)
	default:
		return services.NewHTTPMerchantNotifier(signer, cfg.Notifier.Timeout, policy, logger)
	}
}

// initializeApplication initializes the main application components
func initializeApplication(cfg *config.ProductionConfig) (*Application, error) {
	var stopFuncs []func()

	logger := initializeLogger(cfg.Logging)

	// Initialize database
	db, err := initializeDatabase(cfg.Database)
	if err != nil {
		return nil, err
	}

	rc, err := initializeCache(cfg.Cache)
	if err != nil {
		return nil, err
	}

	if rc != nil {
		cancel := startCacheHealthMonitor(context.Background(), rc, cfg.Cache.CleanupInterval)
		stopFuncs = append(stopFuncs, cancel)
	}

	// Initialize repositories
	orderRepo := repository.NewPaymentOrderRepository(db)
	refundRepo := repository.NewRefundRecordRepository(db)
	confirmationRepo := repository.NewConfirmationRecordRepository(db)
	eventRepo := repository.NewCallbackEventRepository(db)
	auditRepo := repository.NewAuditLogRepository(db)

	// Initialize signing services, one shared secret per counterparty
	alipaySigner := services.NewHMACSignatureService(cfg.Signature.AlipaySecret, cfg.Signature.ValidityWindow)
	bankSigner := services.NewHMACSignatureService(cfg.Signature.BankGateSecret, cfg.Signature.ValidityWindow)
	merchantSigner := services.NewHMACSignatureService(cfg.Signature.MerchantSecret, cfg.Signature.ValidityWindow)

	retryPolicy := services.DefaultRetryPolicy()
	if cfg.Retry.MaxAttempts > 0 {
		retryPolicy = services.RetryPolicy{
			MaxAttempts:    cfg.Retry.MaxAttempts,
			BaseDelay:      cfg.Retry.BaseDelay,
			MaxDelay:       cfg.Retry.MaxDelay,
			JitterFraction: cfg.Retry.JitterFraction,
		}
	}

	// Initialize gateway clients
	alipayClient := services.NewAlipayClient(cfg.Alipay.BaseURL, cfg.Alipay.MerchantID, alipaySigner, cfg.Alipay.Timeout)
	bankClient := services.NewBankGateClient(
		cfg.BankGate.BaseURL,
		cfg.BankGate.ClientID,
		cfg.BankGate.ClientSecret,
		cfg.BankGate.JWTAudience,
		bankSigner,
		cfg.BankGate.JWTTTL,
		cfg.BankGate.Timeout,
	)

	traditionalGateway := services.NewTraditionalGatewayAdapter(alipayClient, bankClient, retryPolicy, cfg.Payment.CallbackBaseURL)

	cryptoGateway, err := services.NewCryptoGatewayAdapter(cfg.Crypto.AddressPools())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize crypto gateway: %w", err)
	}

	gateways := map[models.PaymentMethod]services.GatewayAdapter{
		models.PaymentMethodAlipay:    traditionalGateway,
		models.PaymentMethodWechatPay: traditionalGateway,
		models.PaymentMethodBankDebit: traditionalGateway,
		models.PaymentMethodUSDTTron:  cryptoGateway,
		models.PaymentMethodUSDTEth:   cryptoGateway,
		models.PaymentMethodBTC:       cryptoGateway,
	}

	verifiers := map[string]services.SignatureService{
		businessflow.ProviderAlipay:   alipaySigner,
		businessflow.ProviderBankGate: bankSigner,
	}

	notifier := initializeMerchantNotifier(cfg, merchantSigner, retryPolicy, logger)

	// Initialize flows
	orderFlow := businessflow.NewPaymentOrderFlow(
		orderRepo,
		refundRepo,
		confirmationRepo,
		auditRepo,
		gateways,
		notifier,
		db,
		cfg.Payment,
	)

	callbackFlow := businessflow.NewCallbackFlow(
		eventRepo,
		orderRepo,
		auditRepo,
		orderFlow,
		verifiers,
	)

	refundFlow := businessflow.NewRefundFlow(
		orderRepo,
		refundRepo,
		auditRepo,
		gateways,
		db,
		rc,
		cfg.Cache,
	)

	confirmationFlow := businessflow.NewConfirmationFlow(
		confirmationRepo,
		orderRepo,
		auditRepo,
		orderFlow,
		cfg.Crypto,
	)

	reconciliationFlow := businessflow.NewReconciliationFlow(orderRepo, eventRepo, auditRepo, db)

	// Initialize handlers
	orderHandler := handlers.NewPaymentOrderHandler(orderFlow)
	callbackHandler := handlers.NewCallbackHandler(callbackFlow)
	refundHandler := handlers.NewRefundHandler(refundFlow)
	confirmationHandler := handlers.NewConfirmationHandler(confirmationFlow)
	reconciliationHandler := handlers.NewReconciliationHandler(reconciliationFlow, callbackFlow)

	// Initialize internal network guard
	internalOnly, err := middleware.NewInternalOnlyMiddleware(cfg.Security.IPWhitelist)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize internal network guard: %w", err)
	}

	// Initialize router
	appRouter := router.NewFiberRouter(
		cfg,
		orderHandler,
		callbackHandler,
		refundHandler,
		confirmationHandler,
		reconciliationHandler,
		internalOnly,
	)

	if cfg.Scheduler.Enabled {
		sweeper := scheduler.NewPaymentSweeper(orderFlow, callbackFlow, logger, cfg.Scheduler)
		stopSweeper := sweeper.Start(context.Background())
		stopFuncs = append(stopFuncs, stopSweeper)
	}

	// Create application struct from FiberRouter
	fiberRouter := appRouter.(*router.FiberRouter)
	application := &Application{
		router:    fiberRouter,
		config:    cfg,
		server:    fiberRouter.GetApp(),
		stopFuncs: stopFuncs,
	}

	return application, nil
}
