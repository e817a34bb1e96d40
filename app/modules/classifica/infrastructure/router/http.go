package classificarouter

import (
	classificahandlers "github.com/Black-And-White-Club/pinfall-import/app/modules/classifica/infrastructure/handlers"
	"github.com/Black-And-White-Club/pinfall-import/config"
	"github.com/go-chi/chi/v5"
	"golang.org/x/time/rate"
)

// RegisterHTTPRoutes mounts the classifica API under /api/classifica.
// Operations that parse or fetch a source are rate limited per IP.
func RegisterHTTPRoutes(httpRouter chi.Router, handlers classificahandlers.Handlers, cfg config.HTTPConfig) {
	limiter := classificahandlers.NewIPRateLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst)

	httpRouter.Get("/healthz", handlers.HandleHealth)

	httpRouter.Route("/api/classifica", func(r chi.Router) {
		r.Use(classificahandlers.CORSMiddleware(cfg.AllowedOrigins))
		r.Use(classificahandlers.CorrelationMiddleware)

		r.Post("/tournaments", handlers.HandleCreateTournament)
		r.Get("/tournaments/{tournamentID}/results", handlers.HandleGetResults)
		r.Get("/jobs/{jobID}", handlers.HandleGetJob)

		r.Group(func(r chi.Router) {
			r.Use(classificahandlers.RateLimitMiddleware(limiter))
			r.Post("/preview", handlers.HandlePreview)
			r.Post("/commit", handlers.HandleCommit)
			r.Post("/jobs", handlers.HandleEnqueueCommit)
		})
	})
}
