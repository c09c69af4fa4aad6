package cache

import (
	"context"
	"fmt"
	"log"
	"time"

	"assetledger/internal/config"

	"github.com/go-redis/redis/v8"
)

// InitRedis 初始化 Redis 连接
// Redis 只用于加速幂等检查，未启用或连接失败时返回 nil，服务继续运行
func InitRedis(cfg *config.RedisConfig) *redis.Client {
	if !cfg.Enabled {
		log.Println("Redis 未启用")
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		log.Printf("连接 Redis 失败，不使用 Redis 继续运行: %v", err)
		_ = client.Close()
		return nil
	}

	log.Println("Redis 连接成功")
	return client
}
