package initial

import (
	"context"
	"fmt"
	"time"

	"RagLink/internal/config"
	"RagLink/pkg/redis"
	"RagLink/pkg/zlog"

	goredis "github.com/redis/go-redis/v9"
)

// InitRedis 连接 Redis 并注册到 pkg/redis。
// Redis 只承载回答缓存，未配置或连接失败不阻塞启动。
func InitRedis(conf *config.Config) {
	host := conf.RedisConfig.Host
	port := conf.RedisConfig.Port

	if host == "" {
		zlog.Info("Redis 未配置，跳过初始化")
		return
	}
	if port == 0 {
		port = 6379
	}

	addr := fmt.Sprintf("%s:%d", host, port)
	zlog.Info(fmt.Sprintf("Redis connecting: %s", addr))

	client := goredis.NewClient(&goredis.Options{
		Addr:         addr,
		Password:     conf.RedisConfig.Password,
		DB:           conf.RedisConfig.DB,
		PoolSize:     conf.RedisConfig.PoolSize,
		MinIdleConns: conf.RedisConfig.MinIdleConns,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		zlog.Error(fmt.Sprintf("Redis 连接失败: %v", err))
		_ = client.Close()
		return
	}

	redis.SetClient(client)
	zlog.Info("Redis 连接成功")
}
