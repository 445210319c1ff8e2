/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     request logging
  2. Recoverer:  panic recovery (500 instead of crash)
  3. RequestID:  unique ID per request for tracing
  4. CORS:       cross-origin requests for the frontend

SEE ALSO:
  - handlers.go: handler implementations
  - cmd/server/main.go: server startup
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Accept", "Content-Type"},
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/days", func(r chi.Router) {
			r.Get("/", h.ListDays)
			r.Post("/{date}", h.EnsureDay)
			r.Get("/{date}/sales", h.ListSales)
			r.Post("/{date}/sales", h.AddSale)
		})

		r.Route("/sales", func(r chi.Router) {
			r.Put("/{id}", h.UpdateSale)
			r.Delete("/{id}", h.DeleteSale)
		})

		r.Route("/company", func(r chi.Router) {
			r.Get("/", h.GetCompany)
			r.Put("/", h.UpdateCompany)
		})

		r.Post("/import", h.RunImport)
		r.Get("/backup", h.DownloadBackup)
		r.Post("/restore", h.RestoreBackup)
	})

	return r
}
