// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/unclebandit/emailace-backend/internal/app"
	"github.com/unclebandit/emailace-backend/internal/config"
	"github.com/unclebandit/emailace-backend/internal/controller"
	"github.com/unclebandit/emailace-backend/internal/handler"
	"github.com/unclebandit/emailace-backend/internal/logger"
	"github.com/unclebandit/emailace-backend/internal/middleware"
	"github.com/unclebandit/emailace-backend/internal/queue"
	"github.com/unclebandit/emailace-backend/internal/router"
	"github.com/unclebandit/emailace-backend/internal/service"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise application")
	}

	// without a broker the send worker runs in this process
	if _, inProcess := a.Queue.(*queue.InMemoryQueue); inProcess {
		if err := service.NewWorker(a.Campaigns, log).Start(a.Queue); err != nil {
			log.Fatal().Err(err).Msg("failed to start in-process worker")
		}
		log.Info().Msg("in-process send worker started")
	}

	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := rdb.Ping(ctx).Err(); err != nil {
			log.Warn().Err(err).Str("addr", cfg.Redis.Addr).Msg("redis unreachable, rate limiting will fail open")
		}
		defer rdb.Close()
	}

	r := router.New(router.Deps{
		Middleware:     middleware.New(log, rdb),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		RateLimit:      cfg.Redis.RateLimitPerMinute,
		Health:         &handler.HealthHandler{DB: a.DB, Redis: rdb, Store: cfg.Store},
		Catalog:        handler.NewCatalogHandler(a.Catalog),
		Campaigns:      handler.NewCampaignHandler(a.Campaigns),
		CampaignController: &controller.CampaignController{
			CampaignService: a.Campaigns,
		},
		AIController: &controller.AIController{
			Drafts:  a.Drafts,
			Replies: a.Replies,
		},
	})

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: r,
	}

	go func() {
		log.Info().Int("port", cfg.Server.Port).Str("env", cfg.Server.Env).Msg("server running")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	<-ctx.Done()
	log.Info().Msg("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
	if err := a.Close(); err != nil {
		log.Error().Err(err).Msg("failed to release resources")
	}
	log.Info().Msg("server stopped")
}
