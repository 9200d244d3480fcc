package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	httpServer "RagLink/api/http"
	"RagLink/internal/config"
	"RagLink/pkg/redis"
	"RagLink/pkg/zlog"
)

func main() {
	// 1. 加载配置与日志
	conf := config.GetConfig()
	zlog.Init(conf.LogConfig.LogPath)
	defer zlog.Sync()

	// 2. 装配依赖
	srv, err := httpServer.NewServer(context.Background(), conf)
	if err != nil {
		zlog.Fatal("服务装配失败: " + err.Error())
		return
	}

	// 3. 启动 HTTP 服务
	go func() {
		if err := srv.Run(); err != nil {
			zlog.Fatal("服务器启动失败: " + err.Error())
		}
	}()

	// 4. 优雅关闭
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zlog.Info("正在关闭服务器...")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	srv.Shutdown(ctx)
	_ = redis.Close()
	zlog.Info("服务器已关闭")
}
