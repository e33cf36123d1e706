package server

import (
	"net/http"

	"github.com/docsage/docsage/internal/api"
	"github.com/docsage/docsage/internal/api/handlers"
	"github.com/docsage/docsage/internal/api/middleware"
	"github.com/go-chi/chi/v5"
)

type RouterConfig struct {
	AskHandler      *handlers.AskHandler
	DocumentHandler *handlers.DocumentHandler
	MetricsHandler  *handlers.MetricsHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 10 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Post("/ask", cfg.AskHandler.Ask)
	r.Delete("/history/{userID}", cfg.AskHandler.ClearHistory)

	r.Route("/documents", func(r chi.Router) {
		r.Get("/", cfg.DocumentHandler.List)
		r.Post("/{name}/ingest", cfg.DocumentHandler.Ingest)
		r.Get("/{name}/preview", cfg.DocumentHandler.Preview)
		r.Get("/{name}/download", cfg.DocumentHandler.Download)
		r.Delete("/{name}", cfg.DocumentHandler.Delete)
	})

	r.Get("/metrics", cfg.MetricsHandler.Metrics)
	r.Get("/events", cfg.MetricsHandler.Events)
	r.Get("/stats", cfg.MetricsHandler.Stats)

	return r
}
