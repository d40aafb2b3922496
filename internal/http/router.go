package http

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"carevault/internal/handlers"
)

// Deps holds dependencies for the HTTP router.
type Deps struct {
	Query     *handlers.QueryHandler
	Documents *handlers.DocumentsHandler
	Stats     *handlers.StatsHandler
	Rebuild   *handlers.RebuildHandler
	Health    *handlers.HealthHandler
	Logger    *slog.Logger
}

// NewRouter creates the HTTP router with the provided dependencies.
func NewRouter(deps *Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(LoggerMiddleware(deps.Logger))
	r.Use(CORS)

	r.Route("/api", func(r chi.Router) {
		r.Method(http.MethodPost, "/query", deps.Query)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", deps.Documents.Create)
			r.Get("/", deps.Documents.List)
			r.Get("/{documentID}", deps.Documents.Get)
			r.Delete("/{documentID}", deps.Documents.Delete)
			r.Post("/{documentID}/reingest", deps.Documents.Reingest)
		})

		if deps.Stats != nil {
			r.Method(http.MethodGet, "/stats", deps.Stats)
		}
		if deps.Rebuild != nil {
			r.Method(http.MethodPost, "/index/rebuild", deps.Rebuild)
		}
	})

	r.Method(http.MethodGet, "/healthz", deps.Health)

	return r
}
