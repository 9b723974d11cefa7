package server

import (
	"transfers-client/internal/handler"
	"transfers-client/pkg/monitor"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// NewHTTPRouter 初始化并返回一个 Gin Engine.
// metrics 需要事先通过 monitor.Init 注册到 gatherer 对应的 registry,
// swagger 文档由 main 引入 docs/swagger 注册.
func NewHTTPRouter(wallet *handler.WalletHandler, gatherer prometheus.Gatherer) *gin.Engine {
	// 1. 创建 Engine (使用默认中间件: Logger, Recovery)
	r := gin.Default()

	// 2. 注册通用中间件
	r.Use(monitor.PrometheusMiddleware())

	// 3. 注册基础路由
	r.GET("/health", handler.HealthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})))
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	// 4. 注册 API 路由组
	api := r.Group("/api/v1")
	{
		api.POST("/session", wallet.Connect)
		api.DELETE("/session", wallet.Disconnect)
		api.POST("/mnemonic", wallet.ImportMnemonic)
		api.GET("/pubkey", wallet.PublicKey)

		bal := api.Group("/balance")
		bal.GET("", wallet.GetBalance)
		bal.POST("/request", wallet.RequestBalance)
		bal.POST("/refresh", wallet.RefreshBalance)
		bal.GET("/stream", wallet.StreamBalance)

		api.POST("/deposit", wallet.Deposit)
		api.POST("/transfer", wallet.Transfer)
		api.POST("/withdraw", wallet.Withdraw)
	}

	return r
}
