/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route
  definitions. This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. Logger:     Request logging
  2. Recoverer:  Panic recovery (500 instead of crash)
  3. RequestID:  Unique ID per request for tracing
  4. CORS:       Cross-origin requests for the cashier frontend

ROUTE GROUPS:
  /api/groups/*      Client group ledger, records, payments, quotes
  /api/rules/*       Pricing rules versions
  /api/commission/*  Commission estimates

SECURITY NOTE:
  No authentication middleware; the engine sits behind the host system's
  gateway, which owns sessions and authorization.

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
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

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	r.Route("/api", func(r chi.Router) {
		// Client group routes
		r.Route("/groups/{id}", func(r chi.Router) {
			r.Get("/ledger", h.GetLedger)
			r.Post("/records", h.IngestRecords)
			r.Post("/payments", h.SubmitPayment)
			r.Get("/payments", h.ListPayments)
			r.Get("/quote", h.GetQuote)
		})

		// Pricing rules routes
		r.Route("/rules", func(r chi.Router) {
			r.Get("/", h.GetRules)
			r.Post("/", h.CreateRules)
			r.Get("/{version}", h.GetRulesVersion)
		})

		// Commission routes
		r.Route("/commission", func(r chi.Router) {
			r.Post("/estimate", h.EstimateCommission)
		})
	})

	return r
}
