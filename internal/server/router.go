// Package server wires the HTTP routes and middleware chain.
package server

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/studykit/engine/internal/api"
	"github.com/studykit/engine/internal/api/handlers"
	"github.com/studykit/engine/internal/api/middleware"
)

type RouterConfig struct {
	ServiceAPIKey   string
	QueryHandler    *handlers.QueryHandler
	DocumentHandler *handlers.DocumentHandler
}

func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	const maxBodyBytes int64 = 5 * 1024 * 1024

	r.Use(middleware.RequestID)
	r.Use(middleware.SentryMiddleware)
	r.Use(middleware.AccessLog)
	r.Use(middleware.MaxBodyBytes(maxBodyBytes))

	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Group(func(r chi.Router) {
		r.Use(middleware.ServiceKeyAuth(cfg.ServiceAPIKey))

		r.Post("/query", cfg.QueryHandler.Process)

		r.Route("/documents", func(r chi.Router) {
			r.Post("/", cfg.DocumentHandler.Upload)
			r.Get("/", cfg.DocumentHandler.List)
			r.Get("/{id}", cfg.DocumentHandler.Get)
			r.Delete("/{id}", cfg.DocumentHandler.Delete)
		})
	})

	return r
}
