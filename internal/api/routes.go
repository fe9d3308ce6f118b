package api

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
)

// SetupRoutes configures all API routes.
func SetupRoutes(h *Handlers) *chi.Mux {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestID)

	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"https://app.paidsearchnav.com", "http://localhost:5173", "http://localhost:8080"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders:   []string{"Link"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	// Health check
	r.Get("/health", h.HealthCheck)

	r.Route("/api/attribution", func(r chi.Router) {
		// On-demand calculation
		r.Post("/calculate", h.HandleCalculate)
		r.Post("/compare", h.HandleCompare)
		r.Post("/incremental", h.HandleIncremental)

		// Stored results and reporting
		r.Get("/results/{journeyID}", h.HandleGetResult)
		r.Get("/summary", h.HandleSummary)
		r.Get("/sequences", h.HandleSequences)
		r.Get("/insights", h.HandleInsights)
		r.Get("/channels", h.HandleChannelMetrics)
		r.Get("/customers/{customerID}/gclid-mappings", h.HandleGCLIDMappings)
	})

	return r
}
