package handler

import (
	"assetledger/internal/catalog"
	"assetledger/internal/config"
	"assetledger/internal/metrics"
	"assetledger/internal/service"

	"github.com/gin-gonic/gin"
)

// SetupRouter 配置路由
func SetupRouter(ledger *service.LedgerService, cat *catalog.Catalog, collector *metrics.Collector, cfg *config.Config) *gin.Engine {
	if cfg.Server.Mode != "" {
		gin.SetMode(cfg.Server.Mode)
	}
	RegisterValidators()

	r := gin.New()

	// 注册中间件
	r.Use(RecoveryMiddleware())
	r.Use(RequestIDMiddleware())
	r.Use(LoggerMiddleware())
	r.Use(CORSMiddleware())

	h := NewHandler(ledger, cat)

	api := r.Group("/api/v1")
	{
		api.GET("/assets", h.ListAssetTypes)
		api.GET("/actions", h.ListActionTypes)

		accounts := api.Group("/accounts")
		{
			accounts.POST("/new", h.CreateAccount)
			accounts.POST("/info", h.AccountInfo)
			accounts.POST("/infos", h.AccountInfos)
			accounts.POST("/actions", h.ApplyActions)
		}
	}

	// 健康检查
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if collector != nil {
		r.GET("/metrics", gin.WrapH(collector.Handler()))
	}

	return r
}
