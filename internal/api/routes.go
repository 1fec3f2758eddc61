package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// RouterConfig carries the access settings of the router.
type RouterConfig struct {
	// Tokens maps bearer token to actor id.
	Tokens  map[string]string
	DevMode bool
	Limiter *RateLimiter
}

// NewRouter creates a new router with all routes configured
func NewRouter(h *Handler, cfg RouterConfig) *chi.Mux {
	r := chi.NewRouter()

	// Global middleware (all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(LoggingMiddleware)
	r.Use(RecoveryMiddleware)

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", h.Health)

		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(cfg.Tokens, cfg.DevMode))

			r.Get("/goals", h.ListGoals)
			r.Post("/goals", h.CreateGoal)
			r.Get("/tasks", h.ListTasks)
			r.Post("/tasks", h.CreateTask)
			r.Patch("/tasks/{id}/complete", h.ToggleTask)
			r.Get("/expenses", h.ListExpenses)
			r.Post("/expenses", h.CreateExpense)
			r.Get("/dashboard", h.Dashboard)

			// Classification and conversation turns are rate limited per actor
			r.Group(func(r chi.Router) {
				if cfg.Limiter != nil {
					r.Use(cfg.Limiter.Middleware)
				}
				r.Post("/ai/parse", h.Parse)
				r.Post("/ai/execute", h.Execute)

				r.Post("/assistant/sessions", h.CreateSession)
				r.Get("/assistant/sessions/{id}", h.GetSession)
				r.Post("/assistant/sessions/{id}/messages", h.SendMessage)
				r.Post("/assistant/sessions/{id}/confirm", h.ConfirmSession)
				r.Post("/assistant/sessions/{id}/cancel", h.CancelSession)
				r.Get("/assistant/ws", h.AssistantSocket)
			})
		})
	})

	return r
}
