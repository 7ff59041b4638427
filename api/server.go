/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the chi router, middleware stack, and route definitions.
  This is the application boundary: the surrounding HR system calls
  these endpoints; the engine itself stays a library.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the admin frontend

ROUTE GROUPS:
  /api/employees/*  Balance initialization, recalculation, inspection
  /api/admin/*      Batch passes and rule administration
  /api/runs         Cycle run history
  /metrics          Prometheus collectors
*/
package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// NewRouter creates a router with all routes configured.
func NewRouter(h *Handler) *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		r.Route("/employees/{id}", func(r chi.Router) {
			r.Get("/balances", h.GetBalances)
			r.Post("/balances/initialize", h.InitializeBalances)
			r.Post("/recalculate", h.RecalculateAnnualEntitlement)
		})

		r.Route("/admin", func(r chi.Router) {
			r.Post("/annual-reset", h.TriggerAnnualReset)
			r.Post("/carryover-notices", h.TriggerCarryoverNotices)
			r.Put("/rules/{id}/allocation", h.UpdateRuleAllocation)
		})

		r.Get("/runs", h.ListCycleRuns)
	})

	r.Handle("/metrics", promhttp.Handler())

	return r
}
