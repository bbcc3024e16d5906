package router

import (
	"fmt"
	"strings"

	"github.com/giftcard-next/internal/cache"
	"github.com/giftcard-next/internal/config"
	"github.com/giftcard-next/internal/constants"
	adminhandlers "github.com/giftcard-next/internal/http/handlers/admin"
	publichandlers "github.com/giftcard-next/internal/http/handlers/public"
	"github.com/giftcard-next/internal/logger"
	"github.com/giftcard-next/internal/provider"

	"github.com/gin-gonic/gin"
)

// SetupRouter 初始化路由
func SetupRouter(cfg *config.Config, c *provider.Container) *gin.Engine {
	log := logger.L
	if log == nil {
		log = logger.Init(cfg.Server.Mode, cfg.Log.ToLoggerOptions())
	}
	r := gin.New()

	// 初始化 Handler（按前台/后台分组）
	publicHandler := publichandlers.New(c)
	adminHandler := adminhandlers.New(c)
	redisPrefix := strings.TrimSpace(cfg.Redis.Prefix)
	if redisPrefix == "" {
		redisPrefix = constants.RedisPrefixDefault
	}
	redisClient := cache.Client()
	adminLoginRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:admin_login", redisPrefix),
		WindowSeconds: cfg.Security.LoginRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.LoginRateLimit.MaxAttempts,
		Message:       "too many login attempts",
	}
	balanceRule := RateLimitRule{
		Prefix:        fmt.Sprintf("%s:rate:balance", redisPrefix),
		WindowSeconds: cfg.Security.BalanceRateLimit.WindowSeconds,
		MaxRequests:   cfg.Security.BalanceRateLimit.MaxAttempts,
		Message:       "too many balance lookups",
	}

	// 中间件
	r.Use(gin.Recovery())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware(log))
	r.Use(CORSMiddleware(cfg.CORS))

	// API 路由组
	apiV1 := r.Group("/api/v1")
	{
		// 公开接口
		public := apiV1.Group("/public")
		{
			public.POST("/gift-cards/balance",
				RateLimitMiddleware(redisClient, balanceRule, KeyByIPAndJSONField("code")),
				publicHandler.CheckGiftCardBalance)
		}

		// 管理员接口
		admin := apiV1.Group("/admin")
		{
			// 登录接口（无需鉴权）
			admin.POST("/login", RateLimitMiddleware(redisClient, adminLoginRule, KeyByIP), adminHandler.AdminLogin)

			// 需要鉴权的接口
			authorized := admin.Use(JWTAuthMiddleware(cfg.JWT.SecretKey, c.AdminRepo))
			{
				authorized.POST("/logout", adminHandler.AdminLogout)
				authorized.PUT("/password", adminHandler.UpdateAdminPassword)

				// 礼品卡管理
				authorized.POST("/gift-cards", adminHandler.IssueGiftCards)
				authorized.GET("/gift-cards", adminHandler.GetGiftCards)
				authorized.GET("/gift-cards/export", adminHandler.ExportGiftCards)
				authorized.GET("/gift-cards/portfolio", adminHandler.GetCardPortfolio)
				authorized.GET("/gift-cards/:id", adminHandler.GetGiftCard)
				authorized.PUT("/gift-cards/:id", adminHandler.UpdateGiftCard)
				authorized.POST("/gift-cards/:id/cancel", adminHandler.CancelGiftCard)
				authorized.DELETE("/gift-cards/:id", adminHandler.DeleteGiftCard)

				// 用量流水
				authorized.POST("/gift-cards/:id/usages", adminHandler.ApplyGiftCardUsage)
				authorized.GET("/gift-cards/:id/usages", adminHandler.GetGiftCardUsages)
				authorized.GET("/gift-cards/:id/statistics", adminHandler.GetGiftCardStatistics)

				// 报表
				authorized.GET("/reports/usages/overall", adminHandler.GetUsageOverallStatistics)
				authorized.GET("/reports/usages/daily", adminHandler.GetUsageDailySummary)
				authorized.GET("/reports/usages/monthly", adminHandler.GetUsageMonthlySummary)
				authorized.GET("/reports/orders/:order_id/usages", adminHandler.GetOrderUsages)

				// 客户管理
				authorized.GET("/customers", adminHandler.GetCustomers)
				authorized.POST("/customers", adminHandler.CreateCustomer)
				authorized.GET("/customers/:id", adminHandler.GetCustomer)
			}
		}
	}

	// 健康检查
	r.GET("/health", publicHandler.Health)

	return r
}
