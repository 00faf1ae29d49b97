package dashboard

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campprojects/dashboard/internal/middleware"
)

func (h *Handler) SetupRoutes(sessionFetcher middleware.SessionFetcher) http.Handler {
	r := chi.NewRouter()

	// Public routes - read-only access to the table
	r.Get("/", h.ListProjects)
	r.Post("/query", h.QueryProjects)
	r.Get("/kpis", h.GetKPIs)
	r.Get("/options", h.GetOptions)
	r.Get("/charts", h.GetCharts)
	r.Get("/export", h.ExportProjects)

	// Admin routes - require a live admin session
	r.Group(func(r chi.Router) {
		r.Use(middleware.SessionMiddleware(sessionFetcher))
		r.Use(middleware.AdminMiddleware)

		r.Post("/batch", h.BatchUpdate)
		r.Post("/ingest", h.Reingest)
		// Procurement numbers may contain slashes, so the id is the whole rest
		// of the path.
		r.Put("/*", h.UpdateProject)
	})

	return r
}
