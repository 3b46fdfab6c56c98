package main

import (
	"context"
	"flag"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/edunet/internal/config"
	"github.com/edunet/internal/db"
	"github.com/edunet/internal/handler"
	"github.com/edunet/internal/logger"
	"github.com/edunet/internal/prerender"
	"github.com/edunet/internal/router"
	"github.com/edunet/internal/sitecontent"
	"github.com/gin-gonic/gin"
)

func main() {
	outDir := flag.String("out", "dist", "output directory for rendered pages")
	bucket := flag.String("bucket", "", "S3 bucket to upload the rendered site to")
	prefix := flag.String("prefix", "", "key prefix inside the bucket")
	region := flag.String("region", "", "AWS region, defaults to the SDK credential chain")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	logger.Init(cfg.LogLevel)
	gin.SetMode(gin.ReleaseMode)

	// 站点设置保存在草稿库中
	if err := db.Init(cfg.DatabasePath); err != nil {
		logger.Fatal().Err(err).Msg("failed to initialize database")
	}
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	api := handler.NewAPI(db.DB, sitecontent.NewClient(cfg.APIBaseURL, cfg.APITimeout), cfg)
	defer api.Close()
	engine := router.SetupRouter(ctx, api, cfg)

	pages, err := prerender.Render(ctx, engine, *outDir, prerender.DefaultRoutes)
	if err != nil {
		logger.Fatal().Err(err).Msg("prerender failed")
	}
	if err := prerender.CopyStatic(cfg.StaticDir, filepath.Join(*outDir, "static")); err != nil {
		logger.Fatal().Err(err).Msg("failed to copy static assets")
	}
	logger.Info().Int("pages", len(pages)).Str("out", *outDir).Msg("static site generated")

	if *bucket == "" {
		return
	}
	uploader, err := prerender.NewS3Uploader(ctx, *region)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create uploader")
	}
	if _, err := prerender.Deploy(ctx, uploader, *bucket, *prefix, *outDir); err != nil {
		logger.Fatal().Err(err).Str("bucket", *bucket).Msg("deployment failed")
	}
}
