package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) SetupRoutes() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.With(middleware.Timeout(HealthRequestTimeout)).Get("/healthz", h.Healthz)
	r.With(middleware.Timeout(HealthRequestTimeout)).Get("/readyz", h.Readyz)

	r.Route("/api/reset", func(r chi.Router) {
		r.With(middleware.Timeout(DefaultRequestTimeout)).Get("/", h.ResetStatus)
		r.With(middleware.Timeout(ResetRequestTimeout)).Post("/", h.Reset)
	})
	r.With(middleware.Timeout(ResetRequestTimeout)).Post("/api/scenarios/{phase}", h.Scenario)
	r.With(middleware.Timeout(ResetRequestTimeout)).Post("/api/repository/reload", h.Reload)

	r.Route("/api/cartridges", func(r chi.Router) {
		r.Use(middleware.Timeout(DefaultRequestTimeout))
		r.Get("/", h.ListCartridges)
		r.Route("/{name}/{version}/{release}", func(r chi.Router) {
			r.Get("/", h.GetCartridge)
			r.Get("/events", h.GetCartridgeEvents)
		})
	})

	r.Route("/api/events", func(r chi.Router) {
		r.Use(middleware.Timeout(EventsRequestTimeout))
		r.Get("/", h.ListEvents)
		r.Get("/errors", h.GetRecentErrors)
		r.Delete("/", h.CleanupEvents)
		r.Get("/*", h.GetEventsByResource)
		r.Delete("/*", h.DeleteEvent)
	})

	return r
}
