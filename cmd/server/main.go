package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/fishinglog/internal/app"
	"github.com/fishinglog/internal/config"
	"github.com/fishinglog/internal/logger"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load(os.Getenv("ENV_FILE"))
	if err != nil {
		panic(err)
	}

	baseLogger := logger.Must(logger.New(cfg.LogLevel, cfg.GinMode == "debug"))
	defer func() { _ = baseLogger.Sync() }()
	zap.ReplaceGlobals(baseLogger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// 初始化数据库、照片存储与外部服务
	instance, err := app.New(ctx, cfg, baseLogger)
	if err != nil {
		baseLogger.Fatal("failed to initialize application", zap.Error(err))
	}
	defer func() {
		if err := instance.Close(); err != nil {
			baseLogger.Error("failed to close application", zap.Error(err))
		}
	}()

	if err := instance.Run(ctx); err != nil {
		baseLogger.Error("server stopped with error", zap.Error(err))
	}
}
