package router

import (
	"time"

	"fintrack/api"
	"fintrack/config"
	_ "fintrack/docs"
	"fintrack/middleware"
	"fintrack/service"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// SetupRouter 设置路由
func SetupRouter(cfg *config.Config) *gin.Engine {
	// 设置运行模式
	gin.SetMode(cfg.Server.Mode)

	r := gin.Default()

	// CORS 中间件
	r.Use(CORSMiddleware())

	// Swagger 文档
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 服务组装：类别表全局只建一份
	table := service.NewCategoryTable()
	classifier := service.NewClassifierService(table, cfg.Engine.FuzzyThreshold)
	budgetService := service.NewBudgetService()
	goalService := service.NewGoalService()
	recurringService := service.NewRecurringService(cfg.Engine.LookbackMonths)
	healthService := service.NewHealthService(budgetService)
	trendsService := service.NewTrendsService()
	emailService := service.NewEmailService(&cfg.Email)

	authHandler := api.NewAuthHandler(cfg)
	txHandler := api.NewTransactionHandler(table, classifier, budgetService, goalService, emailService)
	budgetHandler := api.NewBudgetHandler(table, budgetService)
	goalHandler := api.NewGoalHandler(goalService)
	subHandler := api.NewSubscriptionHandler(table, recurringService)
	analyticsHandler := api.NewAnalyticsHandler(healthService, trendsService)
	exportHandler := api.NewExportHandler()

	// API v1 路由组
	v1 := r.Group("/api/v1")
	{
		// 认证相关路由（无需登录），登录注册加限流
		auth := v1.Group("/auth")
		{
			auth.POST("/register", middleware.LoginRateLimit(10, time.Minute), authHandler.Register)
			auth.POST("/login", middleware.LoginRateLimit(10, time.Minute), authHandler.Login)
		}

		// 类别表（无需登录）
		v1.GET("/categories", txHandler.GetCategories)

		// 需要 JWT 认证的路由
		authorized := v1.Group("")
		authorized.Use(middleware.JWTAuth())
		{
			// 用户相关
			authorized.GET("/auth/profile", authHandler.GetProfile)
			authorized.PUT("/auth/password", authHandler.ChangePassword)

			// 交易相关
			transactions := authorized.Group("/transactions")
			{
				transactions.POST("", txHandler.Create)
				transactions.GET("", txHandler.List)
				transactions.GET("/summary", txHandler.CategorySummary)
				transactions.GET("/suggest-categories", txHandler.SuggestCategories)
				transactions.GET("/:id", txHandler.Get)
				transactions.PUT("/:id", txHandler.Update)
				transactions.DELETE("/:id", txHandler.Delete)
			}

			// 预算相关
			budgets := authorized.Group("/budgets")
			{
				budgets.POST("", budgetHandler.Upsert)
				budgets.GET("", budgetHandler.List)
				budgets.GET("/alerts", budgetHandler.Alerts)
				budgets.PUT("/alerts/:id/read", budgetHandler.MarkAlertRead)
				budgets.DELETE("/:id", budgetHandler.Delete)
			}

			// 储蓄目标相关
			goals := authorized.Group("/goals")
			{
				goals.POST("", goalHandler.Create)
				goals.GET("", goalHandler.List)
				goals.GET("/summary", goalHandler.Summary)
				goals.GET("/:id", goalHandler.Get)
				goals.PUT("/:id", goalHandler.Update)
				goals.DELETE("/:id", goalHandler.Delete)
				goals.POST("/:id/contribute", goalHandler.Contribute)
				goals.GET("/:id/contributions", goalHandler.Contributions)
				goals.GET("/:id/reconcile", goalHandler.Reconcile)
			}

			// 订阅相关
			subscriptions := authorized.Group("/subscriptions")
			{
				subscriptions.POST("", subHandler.Create)
				subscriptions.GET("", subHandler.List)
				subscriptions.POST("/detect", subHandler.Detect)
				subscriptions.GET("/summary", subHandler.Summary)
				subscriptions.GET("/reminders", subHandler.Reminders)
				subscriptions.GET("/recommendations", subHandler.Recommendations)
				subscriptions.PUT("/:id", subHandler.Update)
				subscriptions.DELETE("/:id", subHandler.Delete)
			}

			// 分析统计
			analytics := authorized.Group("/analytics")
			{
				analytics.GET("/health-score", analyticsHandler.HealthScore)
				analytics.GET("/trends", analyticsHandler.Trends)
				analytics.GET("/history", analyticsHandler.History)
			}

			// 导出相关
			export := authorized.Group("/export")
			{
				export.GET("/csv", exportHandler.ExportCSV)
				export.GET("/json", exportHandler.ExportJSON)
				export.GET("/excel", exportHandler.ExportExcel)
			}
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status": "ok",
		})
	})

	return r
}

// CORSMiddleware CORS 跨域中间件
func CORSMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	}
}
