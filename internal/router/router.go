package router

import (
	"fmt"
	"strings"

	"github.com/pinmart/pinmart/internal/config"
	publichandlers "github.com/pinmart/pinmart/internal/http/handlers/public"
	"github.com/pinmart/pinmart/internal/logger"
	"github.com/pinmart/pinmart/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter builds the gin engine and wires the buyer-facing routes.
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = "pm"
	}
	checkoutRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:checkout", redisPrefix),
		WindowSeconds: cfg.Security.CheckoutRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.CheckoutRateLimit.MaxAttempts,
		BlockSeconds:  cfg.Security.CheckoutRateLimit.BlockSeconds,
		Message:       "too many checkout attempts",
	}

	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	apiV1 := r.Group("/api/v1")
	{
		public := apiV1.Group("/public")
		{
			public.GET("/cards/types", publicHandler.GetCardTypes)
			public.POST("/orders", RateLimitMiddleware(c.Redis, checkoutRule, KeyByIP), publicHandler.CreateOrder)
			public.GET("/orders/:reference", publicHandler.GetOrderByReference)
		}

		payments := apiV1.Group("/payments")
		{
			payments.GET("/callback", publicHandler.PaymentCallbackRedirect)
			payments.POST("/callback", publicHandler.PaymentWebhook)
		}
	}

	return r
}
