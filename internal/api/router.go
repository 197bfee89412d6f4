package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

// Router builds the HTTP routes around a Handler
type Router struct {
	handler *Handler
}

// NewRouter creates a router for handler
func NewRouter(handler *Handler) *Router {
	return &Router{handler: handler}
}

// Routes returns the HTTP handler for every endpoint
func (rt *Router) Routes() http.Handler {
	h := rt.handler
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Route("/api/v1", func(r chi.Router) {
		// Websocket upgrades must not sit behind a timeout
		r.Group(func(r chi.Router) {
			r.Use(middleware.Timeout(30 * time.Second))

			r.Get("/health", h.GetHealth)
			r.Get("/config", h.GetConfig)
			r.Post("/config/prompt/reload", h.ReloadPrompt)
			r.Get("/languages", h.GetLanguages)

			r.Route("/session", func(r chi.Router) {
				r.Get("/", h.GetSession)
				r.Post("/start", h.StartSession)
				r.Post("/stop", h.StopSession)
				r.Post("/reprocess", h.ReprocessLast)
				r.Put("/target", h.SetTarget)
			})

			r.Route("/history", func(r chi.Router) {
				r.Get("/", h.GetHistory)
				r.Delete("/", h.ClearHistory)
			})
		})
	})

	r.Get("/ws", h.HandleWebSocket)

	if dir := h.config.Server.StaticFilesDir; dir != "" {
		r.Handle("/*", NewStaticFileHandler(dir, h.logger))
	}

	return r
}
