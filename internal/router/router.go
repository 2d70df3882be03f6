package router

import (
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/unclebandit/emailace-backend/internal/controller"
	"github.com/unclebandit/emailace-backend/internal/handler"
	"github.com/unclebandit/emailace-backend/internal/middleware"
)

// Deps groups everything the routes are served by.
type Deps struct {
	Middleware     *middleware.Middleware
	AllowedOrigins []string
	RateLimit      int

	Health    *handler.HealthHandler
	Catalog   *handler.CatalogHandler
	Campaigns *handler.CampaignHandler

	CampaignController *controller.CampaignController
	AIController       *controller.AIController
}

func New(d Deps) *chi.Mux {
	r := chi.NewRouter()

	r.Use(chimw.RealIP)
	r.Use(d.Middleware.RequestID)
	r.Use(d.Middleware.Recover)
	r.Use(d.Middleware.Logger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   d.AllowedOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID", "X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Get("/health", d.Health.Health)
	r.Get("/dashboard", d.Campaigns.DashboardHandler)

	// Candidate routes
	r.Route("/candidates", func(r chi.Router) {
		r.Get("/", d.Catalog.ListCandidatesHandler)
		r.Post("/", d.Catalog.CreateCandidateHandler)
		r.Get("/{id}", d.Catalog.GetCandidateHandler)
		r.Put("/{id}", d.Catalog.UpdateCandidateHandler)
		r.Delete("/{id}", d.Catalog.DeleteCandidateHandler)
	})

	// Email list routes
	r.Route("/email-lists", func(r chi.Router) {
		r.Get("/", d.Catalog.ListEmailListsHandler)
		r.Post("/", d.Catalog.CreateEmailListHandler)
		r.Get("/{id}", d.Catalog.GetEmailListHandler)
		r.Put("/{id}", d.Catalog.UpdateEmailListHandler)
		r.Delete("/{id}", d.Catalog.DeleteEmailListHandler)
	})

	// Template routes
	r.Route("/templates", func(r chi.Router) {
		r.Get("/", d.Catalog.ListTemplatesHandler)
		r.Post("/", d.Catalog.CreateTemplateHandler)
		r.Get("/{id}", d.Catalog.GetTemplateHandler)
		r.Put("/{id}", d.Catalog.UpdateTemplateHandler)
		r.Delete("/{id}", d.Catalog.DeleteTemplateHandler)
	})

	// Campaign routes
	r.Route("/campaigns", func(r chi.Router) {
		r.Get("/", d.Campaigns.ListCampaignsHandler)
		r.Post("/", d.CampaignController.CreateCampaign)
		r.Get("/{id}", d.Campaigns.GetCampaignHandlerWithStats)
		r.Put("/{id}", d.CampaignController.UpdateCampaign)
		r.Delete("/{id}", d.CampaignController.DeleteCampaign)
		r.With(d.Middleware.RateLimit("send", d.RateLimit, time.Minute)).
			Post("/{id}/send", d.CampaignController.SendCampaign)
		r.Post("/{id}/personalized-preview", d.CampaignController.PersonalizedPreview)
		r.Post("/{id}/replies", d.CampaignController.RecordReply)
	})

	r.Route("/api", func(r chi.Router) {
		r.Use(d.Middleware.RateLimit("api", d.RateLimit, time.Minute))
		r.Post("/campaigns/send", d.CampaignController.DispatchEmail)
		r.Post("/ai/generate-email", d.AIController.GenerateEmail)
		r.Post("/ai/summarize-reply", d.AIController.SummarizeReply)
	})

	return r
}
