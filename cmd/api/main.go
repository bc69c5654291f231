package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"grocery-tracker/internal/api"
	"grocery-tracker/internal/core/ai/cache"
	"grocery-tracker/internal/core/ai/service"
	"grocery-tracker/internal/infrastructure/config"
	"grocery-tracker/internal/infrastructure/store"
	"grocery-tracker/internal/infrastructure/store/memory"
	"grocery-tracker/internal/infrastructure/store/postgres"
	"grocery-tracker/internal/pkg/common"
)

// openStore 有 DSN 時使用 PostgreSQL，否則使用記憶體儲存
func openStore(ctx context.Context, cfg config.DatabaseConfig) (store.Store, string, error) {
	if cfg.DSN == "" {
		common.LogWarn("未設定 DATABASE_URL，使用記憶體儲存，重啟後資料會消失")
		return memory.New(), "memory", nil
	}
	st, err := postgres.New(ctx, cfg)
	if err != nil {
		return nil, "", err
	}
	return st, "postgres", nil
}

func main() {
	// 載入設定（含 .env）
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 初始化 logger（需在載入 config 後）
	if err := common.InitLogger(cfg.LogLevel); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer common.Sync()

	startCtx, cancelStart := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancelStart()

	st, storageName, err := openStore(startCtx, cfg.Database)
	if err != nil {
		common.LogFatal("Failed to open store", zap.Error(err))
	}
	defer st.Close()

	// 快取停用時為 nil
	llmCache, err := cache.New(cfg.Cache)
	if err != nil {
		common.LogFatal("Failed to initialize cache", zap.Error(err))
	}

	aiService, err := service.NewService(startCtx, cfg.AI, llmCache)
	if err != nil {
		common.LogFatal("Failed to initialize AI service", zap.Error(err))
	}
	defer aiService.Close()

	router := api.SetupRouter(cfg, api.Dependencies{
		Store:       st,
		StorageName: storageName,
		AI:          aiService,
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		common.LogInfo("啟動應用",
			zap.String("version", cfg.App.Version),
			zap.String("env", cfg.App.Env),
			zap.Bool("debug", cfg.App.Debug),
			zap.Int("port", cfg.Server.Port),
			zap.String("storage", storageName),
		)

		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			common.LogFatal("Failed to start server", zap.Error(err))
		}
	}()

	// 等待中斷信號
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	common.LogInfo("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		common.LogError("Server forced to shutdown", zap.Error(err))
	}

	common.LogInfo("Server exited")
}
