package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/unclebandit/emailace-backend/internal/app"
	"github.com/unclebandit/emailace-backend/internal/config"
	"github.com/unclebandit/emailace-backend/internal/logger"
	"github.com/unclebandit/emailace-backend/internal/service"
)

// The worker consumes queued campaign sends from RabbitMQ. With no AMQP_URL
// the server runs the same worker in-process and this command is not needed.
func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	if cfg.AMQP.URL == "" {
		log.Fatal().Msg("AMQP_URL is required for the standalone worker")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.Build(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialise worker")
	}

	if err := service.NewWorker(a.Campaigns, log).Start(a.Queue); err != nil {
		log.Fatal().Err(err).Msg("failed to subscribe")
	}
	log.Info().Msg("worker running, waiting for messages...")

	<-ctx.Done()
	log.Info().Msg("worker shutting down")
	if err := a.Close(); err != nil {
		log.Error().Err(err).Msg("failed to release resources")
	}
}
