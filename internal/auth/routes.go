package auth

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/campprojects/dashboard/internal/middleware"
)

func (h *Handler) SetupRoutes() http.Handler {
	r := chi.NewRouter()
	sessionFetcher := SessionInfo{DB: h.db}

	r.Post("/login", h.Login)
	r.With(middleware.SessionMiddleware(sessionFetcher)).Post("/logout", h.Logout)
	r.With(middleware.OptionalSession(sessionFetcher)).Get("/me", h.Me)

	return r
}
