package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/edunet/internal/config"
	"github.com/edunet/internal/db"
	"github.com/edunet/internal/handler"
	"github.com/edunet/internal/logger"
	"github.com/edunet/internal/router"
	"github.com/edunet/internal/sitecontent"
	"github.com/gin-gonic/gin"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.LogLevel)
	gin.SetMode(cfg.GinMode)

	// 初始化草稿数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		logger.Fatal().Err(err).Str("path", cfg.DatabasePath).Msg("failed to initialize database")
	}
	defer db.Close()

	client := sitecontent.NewClient(cfg.APIBaseURL, cfg.APITimeout)
	api := handler.NewAPI(db.DB, client, cfg)
	defer api.Close()

	if purged, err := api.Editor().PurgeStaleDrafts(); err != nil {
		logger.Warn().Err(err).Msg("failed to purge stale drafts")
	} else if purged > 0 {
		logger.Info().Int64("count", purged).Msg("purged stale drafts")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// 请求上下文继承 ctx，退出时预览 SSE 长连接随之结束
	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           router.SetupRouter(ctx, api, cfg),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	go func() {
		logger.Info().Str("addr", cfg.ListenAddr).Str("api", cfg.APIBaseURL).Msg("server started")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Fatal().Err(err).Msg("failed to run server")
		}
	}()

	<-ctx.Done()
	logger.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("forced shutdown")
	}
}
