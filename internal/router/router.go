package router

import (
	"time"

	"github.com/storefront-next/internal/config"
	publichandlers "github.com/storefront-next/internal/http/handlers/public"
	"github.com/storefront-next/internal/logger"
	"github.com/storefront-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	publicHandler := publichandlers.New(c)
	signInRule := RateLimitRule{
		Prefix:        "rate:sign_in",
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		MessageKey:    "error.rate_limited",
	}
	signUpRule := RateLimitRule{
		Prefix:        "rate:sign_up",
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		MessageKey:    "error.rate_limited",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	r.GET("/healthz", func(ctx *gin.Context) {
		ctx.JSON(200, gin.H{"status": "ok"})
	})

	// API 路由组
	apiV1 := r.Group("/api/v1")
	apiV1.Use(DeviceMiddleware(DeviceOptions{
		CookieMaxAge: time.Duration(cfg.Session.CookieMaxAgeDays) * 24 * time.Hour,
		Secure:       cfg.Server.Mode == "release",
	}))
	{
		auth := apiV1.Group("/auth")
		{
			auth.POST("/sign-in", RateLimitMiddleware(signInRule, KeyByIPAndJSONField("email")), publicHandler.SignIn)
			auth.POST("/sign-up", RateLimitMiddleware(signUpRule, KeyByIP), publicHandler.SignUp)
			auth.POST("/sign-out", publicHandler.SignOut)
		}

		me := apiV1.Group("/me")
		{
			me.GET("", publicHandler.GetMe)
			me.PUT("/display-name", publicHandler.UpdateDisplayName)
			me.GET("/auth-events", publicHandler.ListAuthEvents)
		}

		cartGroup := apiV1.Group("/cart")
		{
			cartGroup.GET("", publicHandler.GetCart)
			cartGroup.DELETE("", publicHandler.ClearCart)
			cartGroup.GET("/events", publicHandler.CartEvents)
			cartGroup.POST("/items", publicHandler.AddCartItem)
			cartGroup.PUT("/items/:id", publicHandler.UpdateCartItem)
			cartGroup.DELETE("/items/:id", publicHandler.DeleteCartItem)
		}

		catalogGroup := apiV1.Group("/catalog")
		{
			catalogGroup.GET("/items", publicHandler.ListCatalogItems)
			catalogGroup.GET("/items/:id", publicHandler.GetCatalogItem)
		}
	}

	return r
}
