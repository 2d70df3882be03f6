//cmd/seeder/main.go
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/unclebandit/emailace-backend/internal/config"
	"github.com/unclebandit/emailace-backend/internal/db"
	"github.com/unclebandit/emailace-backend/internal/logger"
)

// seed files run in order
var seedFiles = []string{
	"seed/candidates.sql",
	"seed/email_lists.sql",
	"seed/templates.sql",
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	log := logger.New(cfg.Log.Level, cfg.Log.Format)

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	conn, err := db.Open(ctx, cfg.Database)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer conn.Close()

	for _, file := range seedFiles {
		content, err := os.ReadFile(file)
		if err != nil {
			log.Fatal().Err(err).Str("file", file).Msg("failed to read seed file")
		}

		if _, err := conn.ExecContext(ctx, string(content)); err != nil {
			log.Fatal().Err(err).Str("file", file).Msg("failed to execute seed file")
		}
		log.Info().Str("file", file).Msg("seeded")
	}

	log.Info().Msg("database seeding completed successfully")
}
