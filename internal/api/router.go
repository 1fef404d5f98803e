package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"

	"github.com/caption-stream/backend/internal/api/handlers"
	"github.com/caption-stream/backend/internal/api/middleware"
	"github.com/caption-stream/backend/internal/auth"
	"github.com/caption-stream/backend/internal/caption"
	"github.com/caption-stream/backend/internal/config"
	"github.com/caption-stream/backend/internal/db"
	"github.com/caption-stream/backend/internal/job"
)

// Deps carries the wired components the router exposes over HTTP.
type Deps struct {
	Database   *db.Database
	JWT        *auth.JWTService
	Config     *config.Config
	Engine     *caption.Engine
	Queue      *job.JobQueue
	Events     *handlers.EventHub
	TargetLang func() string
}

func NewRouter(deps Deps) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(middleware.Logger)
	r.Use(cors.Handler(middleware.CORSHandler(deps.Config.CORSOrigins)))

	// Handlers
	authHandler := handlers.NewAuthHandler(deps.Database, deps.JWT)
	captionHandler := handlers.NewCaptionHandler(deps.Engine, deps.Database, deps.Queue, deps.TargetLang)
	jobHandler := handlers.NewJobHandler(deps.Queue)
	settingsHandler := handlers.NewSettingsHandler(deps.Database, deps.Engine)
	cacheHandler := handlers.NewCacheHandler(deps.Database, deps.Engine)

	loginLimiter := middleware.NewRateLimiter(10, time.Minute)

	r.Route("/api", func(r chi.Router) {
		r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"status":"ok"}`))
		})

		// Auth (public, rate limited)
		r.With(loginLimiter.Handler).Post("/auth/login", authHandler.Login)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.AuthMiddleware(deps.JWT))

			// Auth
			r.Get("/auth/me", authHandler.Me)

			// Captions
			r.Group(func(r chi.Router) {
				r.Use(middleware.MaxBodySize(1 << 20)) // JSON fragment payloads
				r.Post("/captions/enqueue", captionHandler.Enqueue)
				r.Post("/captions/state", captionHandler.States)
				r.Post("/captions/context", captionHandler.SetContext)
			})
			r.Get("/captions/state", captionHandler.Summary)
			r.Get("/captions/fragments", captionHandler.Fragments)
			r.Post("/captions/reset", captionHandler.Reset)
			r.Get("/captions/events", deps.Events.Events)

			// Whole-file translation can carry a full VTT document
			r.With(middleware.MaxBodySize(16 << 20)).
				Post("/captions/translate-all", captionHandler.TranslateAll)

			// Jobs
			r.Get("/jobs", jobHandler.ListJobs)
			r.Get("/jobs/{id}", jobHandler.GetJob)
			r.Post("/jobs/{id}/retry", jobHandler.RetryJob)
			r.Delete("/jobs/{id}", jobHandler.CancelJob)

			// Translation cache
			r.Get("/cache/count", cacheHandler.Count)
			r.With(middleware.RequireRole("admin")).Delete("/cache", cacheHandler.Clear)

			// Settings (admin only)
			r.Group(func(r chi.Router) {
				r.Use(middleware.RequireRole("admin"))
				r.Get("/settings", settingsHandler.GetSettings)
				r.Put("/settings", settingsHandler.UpdateSettings)
			})
		})
	})

	return r
}
