// Package app assembles the repositories, collaborators and services that the
// server and worker commands share.
package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/unclebandit/emailace-backend/internal/ai"
	"github.com/unclebandit/emailace-backend/internal/config"
	"github.com/unclebandit/emailace-backend/internal/db"
	"github.com/unclebandit/emailace-backend/internal/email"
	"github.com/unclebandit/emailace-backend/internal/logger"
	"github.com/unclebandit/emailace-backend/internal/queue"
	"github.com/unclebandit/emailace-backend/internal/repository"
	"github.com/unclebandit/emailace-backend/internal/repository/memstore"
	"github.com/unclebandit/emailace-backend/internal/service"
)

type App struct {
	DB    *sql.DB // nil with STORE=memory
	Queue queue.Queue

	Catalog   *service.CatalogService
	Campaigns *service.CampaignService
	Drafts    service.DraftGenerator
	Replies   service.ReplyClassifier
}

type repos struct {
	candidates repository.CandidateRepositoryInterface
	lists      repository.EmailListRepositoryInterface
	templates  repository.TemplateRepositoryInterface
	campaigns  repository.CampaignRepositoryInterface
}

// Build opens the store and queue and wires the services. A missing mail
// sender or generative model is logged and left nil; the operations that need
// them report a configuration error.
func Build(ctx context.Context, cfg *config.Config, log *logger.Logger) (*App, error) {
	a := &App{}

	var r repos
	switch cfg.Store {
	case "memory":
		s := memstore.New()
		r = repos{s.Candidates, s.EmailLists, s.Templates, s.Campaigns}
		log.Warn().Msg("using in-memory store, data is lost on restart")
	default:
		conn, err := db.Open(ctx, cfg.Database)
		if err != nil {
			return nil, err
		}
		a.DB = conn
		r = repos{
			&repository.CandidateRepository{DB: conn},
			&repository.EmailListRepository{DB: conn},
			&repository.TemplateRepository{DB: conn},
			&repository.CampaignRepository{DB: conn},
		}
		log.Info().Str("host", cfg.Database.Host).Msg("connected to database")
	}

	if cfg.AMQP.URL != "" {
		q, err := queue.NewAMQPQueue(cfg.AMQP.URL, cfg.AMQP.MaxRetries, log)
		if err != nil {
			a.Close()
			return nil, err
		}
		a.Queue = q
	} else {
		a.Queue = queue.NewInMemoryQueue(log)
	}

	mailer, err := email.NewSender(ctx, cfg.Mail)
	if err != nil {
		log.Warn().Err(err).Msg("mail sender unavailable, sends will be rejected")
	}

	if cfg.Gemini.APIKey != "" {
		model, err := ai.NewGeminiClient(ctx, cfg.Gemini.APIKey, cfg.Gemini.Model, cfg.Gemini.MaxRetries, log)
		if err != nil {
			log.Warn().Err(err).Msg("generative model unavailable")
		} else {
			prompts := ai.NewPromptBuilder()
			a.Drafts = &service.DraftService{Model: model, Prompts: prompts, Timeout: cfg.Gemini.Timeout, Temperature: cfg.Gemini.Temperature}
			a.Replies = &service.ReplyService{Model: model, Prompts: prompts, Timeout: cfg.Gemini.Timeout}
		}
	} else {
		log.Warn().Msg("GEMINI_API_KEY not set, AI drafting and reply classification disabled")
	}

	a.Catalog = &service.CatalogService{
		CandidateRepo: r.candidates,
		ListRepo:      r.lists,
		TemplateRepo:  r.templates,
		CampaignRepo:  r.campaigns,
	}
	a.Campaigns = &service.CampaignService{
		CampaignRepo:  r.campaigns,
		CandidateRepo: r.candidates,
		ListRepo:      r.lists,
		TemplateRepo:  r.templates,
		Mailer:        mailer,
		Queue:         a.Queue,
		Log:           log.WithComponent("campaigns"),
		MailTimeout:   cfg.Mail.Timeout,
		Concurrency:   cfg.Dispatch.Concurrency,
	}
	// keep the interfaces nil rather than holding a typed nil
	if a.Drafts != nil {
		a.Campaigns.Drafts = a.Drafts
	}
	if a.Replies != nil {
		a.Campaigns.Replies = a.Replies
	}
	return a, nil
}

// Close drains the queue and releases the database pool.
func (a *App) Close() error {
	var errs []error
	if a.Queue != nil {
		if err := a.Queue.Close(); err != nil {
			errs = append(errs, fmt.Errorf("queue: %w", err))
		}
	}
	if a.DB != nil {
		if err := a.DB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("database: %w", err))
		}
	}
	return errors.Join(errs...)
}
