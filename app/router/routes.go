// Package router provides HTTP routing, middleware configuration, and server setup for the web application
package router

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"log"
	"os"
	"strings"
	"time"

	"github.com/AronSwan/onlinestore-sub023/app/dto"
	"github.com/AronSwan/onlinestore-sub023/app/handlers"
	"github.com/AronSwan/onlinestore-sub023/app/middleware"
	"github.com/AronSwan/onlinestore-sub023/config"
	"github.com/AronSwan/onlinestore-sub023/utils"
	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/adaptor"
	"github.com/gofiber/fiber/v3/middleware/cache"
	"github.com/gofiber/fiber/v3/middleware/compress"
	"github.com/gofiber/fiber/v3/middleware/cors"
	"github.com/gofiber/fiber/v3/middleware/helmet"
	"github.com/gofiber/fiber/v3/middleware/limiter"
	"github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/gofiber/fiber/v3/middleware/requestid"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router interface for HTTP routing
type Router interface {
	SetupRoutes()
	Start(address string) error
	GetApp() *fiber.App
}

// FiberRouter implements Router using Fiber v3
type FiberRouter struct {
	app                   *fiber.App
	cfg                   *config.ProductionConfig
	orderHandler          handlers.PaymentOrderHandlerInterface
	callbackHandler       handlers.CallbackHandlerInterface
	refundHandler         handlers.RefundHandlerInterface
	confirmationHandler   handlers.ConfirmationHandlerInterface
	reconciliationHandler handlers.ReconciliationHandlerInterface
	internalOnly          *middleware.InternalOnlyMiddleware
}

// NewFiberRouter creates a new Fiber router
func NewFiberRouter(
	cfg *config.ProductionConfig,
	orderHandler handlers.PaymentOrderHandlerInterface,
	callbackHandler handlers.CallbackHandlerInterface,
	refundHandler handlers.RefundHandlerInterface,
	confirmationHandler handlers.ConfirmationHandlerInterface,
	reconciliationHandler handlers.ReconciliationHandlerInterface,
	internalOnly *middleware.InternalOnlyMiddleware,
) Router {
	bodyLimit := cfg.Server.BodyLimit
	if bodyLimit <= 0 {
		bodyLimit = 4 * 1024 * 1024 // 4MB
	}

	// Configure Fiber app
	app := fiber.New(fiber.Config{
		AppName:      "PayCore API",
		ServerHeader: "PayCore",
		ErrorHandler: errorHandler,
		BodyLimit:    bodyLimit,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
		JSONEncoder:  json.Marshal,
		JSONDecoder:  json.Unmarshal,
	})

	return &FiberRouter{
		app:                   app,
		cfg:                   cfg,
		orderHandler:          orderHandler,
		callbackHandler:       callbackHandler,
		refundHandler:         refundHandler,
		confirmationHandler:   confirmationHandler,
		reconciliationHandler: reconciliationHandler,
		internalOnly:          internalOnly,
	}
}

// SetupRoutes configures all application routes
func (r *FiberRouter) SetupRoutes() {
	log.Println("Setting up routes...")

	// Global middleware
	r.setupMiddleware()

	// API routes
	api := r.app.Group("/api/v1")

	// Health check route (no rate limiting)
	api.Get("/health", r.healthCheck)

	// Prometheus scrape endpoint, reachable only from the internal network
	if r.cfg.Metrics.Enabled {
		api.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()), r.internalOnly.Restrict())
	}

	// API documentation route (development only)
	if os.Getenv("APP_ENV") == "development" || os.Getenv("APP_ENV") == "local" {
		api.Get("/docs", r.getAPIDocumentation)
		api.Get("/swagger.json", r.serveSwaggerJSON)
		// Serve Swagger UI
		r.app.Get("/swagger", r.serveSwaggerUI)
		log.Println("API documentation enabled for development")
	}

	// Apply general rate limiting to all API routes (aligned with nginx)
	api.Use(limiter.New(limiter.Config{
		Max:        r.cfg.Security.GlobalRateLimit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP() // Rate limit by IP
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
		Next: func(c fiber.Ctx) bool {
			// Skip rate limiting for health checks and metric scrapes
			return c.Path() == "/api/v1/health" || c.Path() == "/api/v1/metrics"
		},
	}))

	// Payment order endpoints
	api.Post("/payments", r.orderHandler.CreatePaymentOrder)
	api.Get("/payments/:orderNumber", r.orderHandler.GetPaymentOrder)
	api.Post("/payments/:orderNumber/cancel", r.orderHandler.CancelPaymentOrder)
	api.Post("/payments/:orderNumber/close", r.orderHandler.ClosePaymentOrder)

	// Refund endpoints
	api.Post("/payments/:orderNumber/refunds", r.refundHandler.CreateRefund)
	api.Get("/payments/:orderNumber/refunds", r.refundHandler.ListRefunds)
	api.Get("/refunds/:refundNumber", r.refundHandler.GetRefund)

	// Gateway callback endpoints with their own rate limit budget: a
	// provider's retry storm must not starve merchant traffic
	callbacks := api.Group("/callbacks")
	callbacks.Use(limiter.New(limiter.Config{
		Max:        r.cfg.Security.CallbackRateLimit,
		Expiration: r.cfg.Security.RateLimitWindow,
		KeyGenerator: func(c fiber.Ctx) string {
			return c.IP() // Rate limit by IP
		},
		LimitReached: func(c fiber.Ctx) error {
			return c.Status(fiber.StatusTooManyRequests).JSON(dto.APIResponse{
				Success: false,
				Message: "Too many requests. Please try again later.",
				Error: dto.ErrorDetail{
					Code: "RATE_LIMIT_EXCEEDED",
				},
			})
		},
	}))
	callbacks.Post("/:provider", r.callbackHandler.HandleProviderCallback)

	// Observation feed, reachable only from the internal network
	internal := api.Group("/internal", r.internalOnly.Restrict())
	internal.Post("/crypto/observations", r.confirmationHandler.ObserveConfirmation)

	// Admin endpoints, reachable only from the internal network
	admin := api.Group("/admin", r.internalOnly.Restrict())
	admin.Get("/payments", r.orderHandler.ListPaymentOrders)
	admin.Get("/payments/:orderNumber/confirmations", r.confirmationHandler.ListOrderConfirmations)
	admin.Get("/reconciliation/export", r.reconciliationHandler.ExportReconciliationReport)
	admin.Get("/reconciliation/review", r.reconciliationHandler.ListReviewOrders)
	admin.Post("/reconciliation/review/:orderNumber/resolve", r.reconciliationHandler.ResolveReview)
	admin.Get("/callbacks/flagged", r.reconciliationHandler.ListFlaggedCallbacks)

	// Not found handler
	r.app.Use(r.notFoundHandler)

	log.Println("Routes configured successfully")
}

// SetupMiddleware configures global middleware
func (r *FiberRouter) setupMiddleware() {
	// Request ID middleware - must be first
	r.app.Use(requestid.New(requestid.Config{
		Header: "X-Request-ID",
		Generator: func() string {
			return generateRequestID()
		},
	}))

	// Prometheus instrumentation
	if r.cfg.Metrics.Enabled {
		r.app.Use(middleware.Metrics())
	}

	// Security headers middleware
	r.app.Use(helmet.New(helmet.Config{
		XSSProtection:             r.cfg.Security.XSSProtection,
		ContentTypeNosniff:        r.cfg.Security.XContentTypeOptions,
		XFrameOptions:             r.cfg.Security.XFrameOptions,
		HSTSMaxAge:                r.cfg.Security.HSTSMaxAge,
		HSTSExcludeSubdomains:     !r.cfg.Security.HSTSIncludeSubDoms,
		ContentSecurityPolicy:     r.cfg.Security.CSPPolicy,
		ReferrerPolicy:            r.cfg.Security.ReferrerPolicy,
		CrossOriginEmbedderPolicy: "require-corp",
		CrossOriginOpenerPolicy:   "same-origin",
		CrossOriginResourcePolicy: "cross-origin",
		OriginAgentCluster:        "?1",
		XDNSPrefetchControl:       "off",
		XDownloadOptions:          "noopen",
		XPermittedCrossDomain:     "none",
	}))

	// CORS middleware with production settings
	corsMaxAge := r.cfg.Security.CORSMaxAge
	if corsMaxAge <= 0 {
		corsMaxAge = utils.CORSMaxAge
	}
	r.app.Use(cors.New(cors.Config{
		AllowOrigins: r.cfg.Security.AllowedOrigins,
		AllowMethods: r.cfg.Security.AllowedMethods,
		AllowHeaders: r.cfg.Security.AllowedHeaders,
		ExposeHeaders: []string{
			"X-Request-ID",
			"X-Response-Time",
		},
		AllowCredentials: r.cfg.Security.AllowCredentials,
		MaxAge:           corsMaxAge,
	}))

	// Compression middleware for performance
	r.app.Use(compress.New(compress.Config{
		Level: compress.LevelBestSpeed,
		Next: func(c fiber.Ctx) bool {
			// Skip compression for spreadsheet downloads and media
			contentType := c.Get("Content-Type")
			return contains(contentType, "image/") ||
				contains(contentType, "video/") ||
				contains(contentType, "audio/") ||
				contains(c.Path(), "/reconciliation/export")
		},
	}))

	// Cache middleware for static content
	r.app.Use(cache.New(cache.Config{
		Next: func(c fiber.Ctx) bool {
			// Only cache GET requests to specific endpoints
			return c.Method() != "GET" ||
				!contains(c.Path(), "/health") &&
					!contains(c.Path(), "/docs")
		},
		Expiration:          30 * time.Minute,
		DisableCacheControl: false,
	}))

	// Advanced logging middleware
	r.app.Use(logger.New(logger.Config{
		Format:     `{"time":"${time}","pid":"${pid}","request_id":"${locals:requestid}","level":"info","method":"${method}","path":"${path}","protocol":"${protocol}","ip":"${ip}","user_agent":"${ua}","status":${status},"latency":"${latency}","bytes_in":${bytesReceived},"bytes_out":${bytesSent},"referer":"${referer}"}` + "\n",
		TimeFormat: time.RFC3339,
		TimeZone:   "UTC",
		Next: func(c fiber.Ctx) bool {
			// Skip logging for health checks and metric scrapes in production
			return c.Path() == "/api/v1/health" || c.Path() == "/api/v1/metrics"
		},
	}))

	// Custom security middleware
	r.app.Use(r.securityMiddleware)

	// API key validation middleware (optional)
	r.app.Use(r.apiKeyMiddleware)

	// Recovery middleware with custom error handling
	r.app.Use(recover.New(recover.Config{
		EnableStackTrace: true,
		StackTraceHandler: func(c fiber.Ctx, e interface{}) {
			// Log panic with request context
			log.Printf(`{"time":"%s","level":"error","request_id":"%s","event":"panic","error":"%v","path":"%s","method":"%s","ip":"%s"}`,
				utils.UTCNow().Format(time.RFC3339),
				c.Locals("requestid"),
				e,
				c.Path(),
				c.Method(),
				c.IP(),
			)
		},
	}))
}

// Custom security middleware
func (r *FiberRouter) securityMiddleware(c fiber.Ctx) error {
	// Add security headers
	c.Set("X-Response-Time", utils.UTCNow().Format(time.RFC3339))
	c.Set("Server", "PayCore")

	// IP validation (if configured)
	clientIP := c.IP()

	for _, blockedIP := range r.cfg.Security.IPBlacklist {
		if clientIP == blockedIP {
			return c.Status(fiber.StatusForbidden).JSON(dto.APIResponse{
				Success: false,
				Message: "Access denied from this IP address",
				Error: dto.ErrorDetail{
					Code: "ACCESS_DENIED",
				},
			})
		}
	}

	// Continue to next middleware
	return c.Next()
}

// API key validation middleware
func (r *FiberRouter) apiKeyMiddleware(c fiber.Ctx) error {
	// Providers authenticate callbacks with payload signatures, not API
	// keys, and health probes carry no credentials
	if c.Path() == "/api/v1/health" ||
		c.Path() == "/api/v1/docs" ||
		c.Path() == "/api/v1/metrics" ||
		strings.HasPrefix(c.Path(), "/api/v1/callbacks/") {
		return c.Next()
	}

	if r.cfg.Security.RequireAPIKey {
		header := r.cfg.Security.APIKeyHeader
		if header == "" {
			header = "X-API-Key"
		}
		apiKey := c.Get(header)
		if apiKey == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "API key is required",
				Error: dto.ErrorDetail{
					Code: "MISSING_API_KEY",
				},
			})
		}

		isValid := false
		for _, validKey := range r.cfg.Security.AllowedAPIKeys {
			if apiKey == validKey {
				isValid = true
				break
			}
		}

		if !isValid {
			return c.Status(fiber.StatusUnauthorized).JSON(dto.APIResponse{
				Success: false,
				Message: "Invalid API key",
				Error: dto.ErrorDetail{
					Code: "INVALID_API_KEY",
				},
			})
		}
	}

	return c.Next()
}

// Start starts the HTTP server
func (r *FiberRouter) Start(address string) error {
	log.Printf("Starting server on %s", address)
	return r.app.Listen(address)
}

// GetApp returns the Fiber app instance
func (r *FiberRouter) GetApp() *fiber.App {
	return r.app
}

// Health check endpoint
func (r *FiberRouter) healthCheck(c fiber.Ctx) error {
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "Service is healthy",
		Data: fiber.Map{
			"status":    "ok",
			"timestamp": utils.UTCNow().Unix(),
			"version":   "1.0.0",
			"service":   "paycore-api",
		},
	})
}

// API documentation endpoint
func (r *FiberRouter) getAPIDocumentation(c fiber.Ctx) error {
	docs := GetRouteDocumentation()
	return c.JSON(dto.APIResponse{
		Success: true,
		Message: "API documentation retrieved successfully",
		Data: fiber.Map{
			"title":       "PayCore API Documentation",
			"version":     "1.0.0",
			"description": "Payment orchestration and gateway reconciliation API",
			"endpoints":   docs,
		},
	})
}

// Serve Swagger UI HTML page
func (r *FiberRouter) serveSwaggerUI(c fiber.Ctx) error {
	htmlContent := `<!DOCTYPE html>
<html lang="en">
<head>
    <meta charset="UTF-8">
    <meta name="viewport" content="width=device-width, initial-scale=1.0">
    <title>PayCore API - Swagger UI</title>
    <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui.css" />
    <style>
        html {
            box-sizing: border-box;
            overflow: -moz-scrollbars-vertical;
            overflow-y: scroll;
        }
        *, *:before, *:after {
            box-sizing: inherit;
        }
        body {
            margin:0;
            background: #fafafa;
        }
    </style>
</head>
<body>
    <div id="swagger-ui"></div>
    <script src="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui-bundle.js"></script>
    <script src="https://unpkg.com/swagger-ui-dist@5.9.0/swagger-ui-standalone-preset.js"></script>
    <script>
        window.onload = function() {
            const ui = SwaggerUIBundle({
                url: '/api/v1/swagger.json',
                dom_id: '#swagger-ui',
                deepLinking: true,
                presets: [
                    SwaggerUIBundle.presets.apis,
                    SwaggerUIStandalonePreset
                ],
                plugins: [
                    SwaggerUIBundle.plugins.DownloadUrl
                ],
                layout: "StandaloneLayout",
                validatorUrl: null,
                onComplete: function() {
                    console.log("Swagger UI loaded successfully");
                }
            });
        };
    </script>
</body>
</html>`

	c.Set("Content-Type", "text/html")
	return c.SendString(htmlContent)
}

// Serve Swagger JSON specification
func (r *FiberRouter) serveSwaggerJSON(c fiber.Ctx) error {
	// Read the generated swagger.json file
	swaggerData, err := os.ReadFile("docs/swagger.json")
	if err != nil {
		return c.Status(fiber.StatusInternalServerError).JSON(dto.APIResponse{
			Success: false,
			Message: "Failed to load Swagger documentation",
			Error: dto.ErrorDetail{
				Code: "SWAGGER_LOAD_ERROR",
			},
		})
	}

	c.Set("Content-Type", "application/json")
	return c.Send(swaggerData)
}

// Not found handler
func (r *FiberRouter) notFoundHandler(c fiber.Ctx) error {
	requestID := c.Locals("requestid")

	return c.Status(fiber.StatusNotFound).JSON(dto.APIResponse{
		Success: false,
		Message: "The requested resource was not found",
		Error: dto.ErrorDetail{
			Code: "NOT_FOUND",
			Details: fiber.Map{
				"path":       c.Path(),
				"method":     c.Method(),
				"request_id": requestID,
			},
		},
	})
}

// Global error handler
func errorHandler(c fiber.Ctx, err error) error {
	// Default error code
	code := fiber.StatusInternalServerError

	// Retrieve the custom status code if it's a fiber.*Error
	if e, ok := err.(*fiber.Error); ok {
		code = e.Code
	}

	// Log the error
	log.Printf("Error %d: %v", code, err)

	// Get RequestID for tracing
	requestID := c.Locals("requestid")

	// Return JSON error response
	return c.Status(code).JSON(dto.APIResponse{
		Success: false,
		Message: "An internal server error occurred",
		Error: dto.ErrorDetail{
			Code: "INTERNAL_ERROR",
			Details: fiber.Map{
				"timestamp":  utils.UTCNow().Unix(),
				"request_id": requestID,
			},
		},
	})
}

// Helper functions

// generateRequestID creates a unique request ID
func generateRequestID() string {
	bytes := make([]byte, 8)
	rand.Read(bytes)
	return hex.EncodeToString(bytes)
}

// contains checks if a string contains a substring
func contains(str, substr string) bool {
	return strings.Contains(str, substr)
}

// GetRouteDocumentation returns API documentation
func GetRouteDocumentation() []map[string]any {
	return []map[string]any{
		{
			"method":      "POST",
			"path":        "/api/v1/payments",
			"description": "Create a payment order against a settlement rail",
			"parameters": map[string]any{
				"merchant_order_id": "string (required) - Caller-side order id, unique per merchant",
				"amount":            "string (required) - Decimal amount, 0 < amount <= 999999.99",
				"currency":          "string (required) - Settlement currency, e.g. CNY",
				"payment_method":    "string (required) - ALIPAY|WECHAT_PAY|BANK_DEBIT|USDT_TRC20|USDT_ERC20|BTC",
				"subject":           "string (required) - Order subject shown to the payer",
				"description":       "string (optional) - Free-form order description",
				"expiry_minutes":    "number (optional) - Order lifetime, 1..1440 (default: 60)",
				"notify_url":        "string (optional) - Merchant endpoint for status notifications",
				"return_url":        "string (optional) - Browser redirect target after payment",
				"metadata":          "object (optional) - Opaque key/value pairs stored with the order",
			},
		},
		{
			"method":      "GET",
			"path":        "/api/v1/payments/:orderNumber",
			"description": "Retrieve a payment order with its refunds and observed blockchain transactions",
			"parameters": map[string]any{
				"orderNumber": "string (required) - Order number in URL path",
			},
		},
		{
			"method":      "POST",
			"path":        "/api/v1/payments/:orderNumber/cancel",
			"description": "Cancel an order that has not reached a terminal state",
			"parameters": map[string]any{
				"orderNumber": "string (required) - Order number in URL path",
				"reason":      "string (optional) - Cancellation reason for the audit trail",
			},
		},
		{
			"method":      "POST",
			"path":        "/api/v1/payments/:orderNumber/close",
			"description": "Close a succeeded order after settlement reconciliation",
			"parameters": map[string]any{
				"orderNumber": "string (required) - Order number in URL path",
			},
		},
		{
			"method":      "POST",
			"path":        "/api/v1/payments/:orderNumber/refunds",
			"description": "Refund part or all of a succeeded order",
			"parameters": map[string]any{
				"orderNumber": "string (required) - Order number in URL path",
				"amount":      "string (required) - Decimal refund amount",
				"reason":      "string (required) - Refund reason",
			},
		},
		{
			"method":      "POST",
			"path":        "/api/v1/callbacks/:provider",
			"description": "Receive one signed payment notification from a gateway",
			"parameters": map[string]any{
				"provider": "string (required) - alipay|bankgate in URL path",
			},
		},
		{
			"method":      "POST",
			"path":        "/api/v1/internal/crypto/observations",
			"description": "Record one on-chain transaction sighting from the chain watcher (internal network only)",
			"parameters": map[string]any{
				"tx_hash":       "string (required) - Transaction hash",
				"network":       "string (required) - TRC20|ERC20|BITCOIN",
				"to_address":    "string (required) - Receiving deposit address",
				"amount":        "string (required) - Observed decimal amount",
				"confirmations": "number (required) - Confirmation count at sighting time",
			},
		},
		{
			"method":      "GET",
			"path":        "/api/v1/admin/reconciliation/export",
			"description": "Download the xlsx reconciliation workbook for a date range (internal network only)",
			"parameters": map[string]any{
				"from": "string (optional) - Range start, RFC3339 or YYYY-MM-DD",
				"to":   "string (optional) - Range end, RFC3339 or YYYY-MM-DD",
			},
		},
		{
			"method":      "GET",
			"path":        "/api/v1/health",
			"description": "Health check endpoint",
			"parameters":  map[string]any{},
		},
	}
}
