// Package v1 provides HTTP API version 1.
package v1

import (
	"fmt"

	"github.com/gin-gonic/gin"

	"supplyhub/internal/infrastructure/http/v1/handlers"
	"supplyhub/internal/infrastructure/http/v1/middleware"
	"supplyhub/pkg/logger"
)

// RouterConfig holds router dependencies.
type RouterConfig struct {
	AppName string
	Version string
	// Development keeps gin in debug mode.
	Development bool

	Logger   *logger.Logger
	Database handlers.DatabaseChecker

	// JWTValidator for token validation
	JWTValidator middleware.JWTValidator

	Orders   handlers.OrderService
	Returns  handlers.ReturnService
	Payments handlers.PaymentService
	History  handlers.AuditHistory

	// Idempotency is applied to mutating routes when set.
	Idempotency middleware.IdempotencyStore

	// RateLimit is applied to mutating routes when set.
	RateLimit *middleware.RateLimitConfig
}

// NewRouter creates and configures the Gin router.
func NewRouter(cfg RouterConfig) (*gin.Engine, error) {
	if cfg.Development {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	router := gin.New()

	// Global middleware (order matters!)
	router.Use(middleware.Tracing(cfg.AppName))
	router.Use(middleware.Trace())
	router.Use(middleware.Logger(cfg.Logger))
	router.Use(middleware.ErrorHandler())
	router.Use(middleware.Recovery())

	healthHandler := handlers.NewHealthHandler(cfg.Database, cfg.AppName, cfg.Version)
	health := router.Group("/health")
	{
		health.GET("/live", healthHandler.Live)
		health.GET("/ready", healthHandler.Ready)
		health.GET("/info", healthHandler.Info)
	}

	mutate, err := mutatingMiddleware(cfg)
	if err != nil {
		return nil, err
	}

	v1 := router.Group("/api/v1")
	v1.Use(middleware.Auth(cfg.JWTValidator))

	base := handlers.NewBaseHandler()
	registerResources(v1, mutate, map[string]ResourceRoutes{
		"/supply-orders":   handlers.NewSupplyOrderHandler(base, cfg.Orders, cfg.History),
		"/supply-returns":  handlers.NewSupplyReturnHandler(base, cfg.Returns),
		"/supply-payments": handlers.NewSupplyPaymentHandler(base, cfg.Payments),
	})

	return router, nil
}

// mutatingMiddleware runs before every write: rate limit first so replays are throttled too.
func mutatingMiddleware(cfg RouterConfig) ([]gin.HandlerFunc, error) {
	var chain []gin.HandlerFunc
	if cfg.RateLimit != nil {
		limit, err := middleware.RateLimit(*cfg.RateLimit)
		if err != nil {
			return nil, fmt.Errorf("rate limit: %w", err)
		}
		chain = append(chain, limit)
	}
	if cfg.Idempotency != nil {
		chain = append(chain, middleware.Idempotency(cfg.Idempotency))
	}
	return chain, nil
}
