package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"assetledger/internal/catalog"
	"assetledger/internal/config"
	"assetledger/internal/handler"
	"assetledger/internal/infrastructure/cache"
	"assetledger/internal/infrastructure/database"
	"assetledger/internal/infrastructure/lock"
	"assetledger/internal/infrastructure/mq"
	"assetledger/internal/job"
	"assetledger/internal/metrics"
	"assetledger/internal/service"
	"assetledger/pkg/idgen"

	"github.com/google/uuid"
)

func main() {
	defaultPath := os.Getenv("LEDGER_CONFIG")
	if defaultPath == "" {
		defaultPath = "config/config.yaml"
	}
	configPath := flag.String("config", defaultPath, "配置文件路径")
	workerID := flag.Int64("worker-id", 1, "雪花算法机器 ID")
	flag.Parse()

	// 加载配置
	cfg := config.LoadConfig(*configPath)

	// 初始化 ID 生成器
	if err := idgen.Init(*workerID); err != nil {
		log.Fatalf("初始化 ID 生成器失败: %v", err)
	}

	// 初始化数据库
	db := database.InitDatabase(&cfg.Database)

	// 创建上下文（用于优雅关闭）
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.Catalog.Seed {
		if err := database.Seed(ctx, db, &cfg.Catalog); err != nil {
			log.Fatalf("写入初始化数据失败: %v", err)
		}
	}

	// 加载资产类型与操作类型，运行期间只读
	cat, err := catalog.Load(ctx, db)
	if err != nil {
		log.Fatalf("%v", err)
	}
	log.Printf("目录加载完成: assetTypes=%d, actionTypes=%d", len(cat.AssetTypes()), len(cat.ActionTypes()))

	// 初始化 Redis
	redisClient := cache.InitRedis(&cfg.Redis)
	if redisClient != nil {
		defer redisClient.Close()
	}

	collector := metrics.NewCollector()

	// 初始化 Kafka，启动消息发送任务
	if cfg.Kafka.Enabled {
		publisher := mq.InitKafka(&cfg.Kafka)
		defer publisher.Close()

		outboxSender := job.NewOutboxSender(db, publisher, cfg, collector)
		if redisClient != nil {
			outboxSender.SetLocker(lock.NewOutboxLock(redisClient, uuid.NewString(), cfg.Business.OutboxLockTTL))
		}
		go outboxSender.Start(ctx)
	}

	ledger := service.NewLedgerService(db, redisClient, cat, cfg, collector)

	// 设置路由
	router := handler.SetupRouter(ledger, cat, collector, cfg)

	// 启动 HTTP 服务
	server := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}

	// 在 goroutine 中启动服务器
	go func() {
		log.Printf("服务启动，监听端口: %d", cfg.Server.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("服务启动失败: %v", err)
		}
	}()

	// 等待中断信号
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("正在关闭服务...")

	// 取消上下文，停止后台任务
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("服务关闭异常: %v", err)
	}

	if sqlDB, err := db.DB(); err == nil {
		_ = sqlDB.Close()
	}

	log.Println("服务已关闭")
}
