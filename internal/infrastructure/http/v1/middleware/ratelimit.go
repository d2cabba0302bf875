package middleware

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/ulule/limiter/v3"
	mgin "github.com/ulule/limiter/v3/drivers/middleware/gin"
	"github.com/ulule/limiter/v3/drivers/store/memory"
	sredis "github.com/ulule/limiter/v3/drivers/store/redis"

	"supplyhub/internal/core/apperror"
	appctx "supplyhub/internal/core/context"
)

const rateLimitPrefix = "supply:ratelimit"

// RateLimitConfig configures RateLimit.
type RateLimitConfig struct {
	// Rate in limiter format, e.g. "120-M".
	Rate string
	// Redis shares counters between replicas. Nil keeps them in memory.
	Redis *redis.Client
}

// RateLimit throttles requests per authenticated user, falling back to client IP.
func RateLimit(cfg RateLimitConfig) (gin.HandlerFunc, error) {
	rate, err := limiter.NewRateFromFormatted(cfg.Rate)
	if err != nil {
		return nil, fmt.Errorf("parse rate %q: %w", cfg.Rate, err)
	}

	var store limiter.Store
	if cfg.Redis != nil {
		store, err = sredis.NewStoreWithOptions(cfg.Redis, limiter.StoreOptions{
			Prefix:   rateLimitPrefix,
			MaxRetry: 3,
		})
		if err != nil {
			return nil, fmt.Errorf("rate limit store: %w", err)
		}
	} else {
		store = memory.NewStoreWithOptions(limiter.StoreOptions{
			Prefix:          rateLimitPrefix,
			CleanUpInterval: limiter.DefaultCleanUpInterval,
		})
	}

	instance := limiter.New(store, rate)

	return mgin.NewMiddleware(instance,
		mgin.WithKeyGetter(rateLimitKey),
		mgin.WithLimitReachedHandler(func(c *gin.Context) {
			_ = c.Error(apperror.NewRateLimited(rate.Limit))
		}),
		mgin.WithErrorHandler(func(c *gin.Context, err error) {
			_ = c.Error(apperror.NewInternal(err).WithDetail("component", "rate_limit"))
		}),
	), nil
}

func rateLimitKey(c *gin.Context) string {
	if userID := appctx.GetUserID(c.Request.Context()); userID != "" {
		return "user:" + userID
	}
	return "ip:" + c.ClientIP()
}
