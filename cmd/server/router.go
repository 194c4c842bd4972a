package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/lindenlearn/mastery-api/internal/api"
	apiMiddleware "github.com/lindenlearn/mastery-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	// Standard middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)

	identity := apiMiddleware.NewIdentityMiddleware(app.config.Auth.JWTSecret)

	diagnosticHandler := api.NewDiagnosticHandler(app.diagnosticService, app.logger)
	reviewHandler := api.NewReviewHandler(app.reviewService, app.logger)
	graphHandler := api.NewGraphHandler(app.graph, app.logger)
	masteryHandler := api.NewMasteryHandler(app.mastery, app.frontierCalc, app.logger)

	r.Route("/api", func(r chi.Router) {
		r.Use(identity.Resolve)

		// Diagnostic placement
		r.Post("/diagnostic/start", diagnosticHandler.Start)
		r.Post("/diagnostic/answer", diagnosticHandler.Answer)
		r.Post("/diagnostic/complete", diagnosticHandler.Complete)

		// Curriculum graph (reads)
		r.Get("/graph/topics", graphHandler.ListTopics)
		r.Get("/graph/topics/{id}/prerequisites", graphHandler.Prerequisites)
		r.Get("/graph/topics/{id}/encompassings", graphHandler.Encompassings)

		// Mastery and frontier
		r.Get("/frontier", masteryHandler.Frontier)
		r.Post("/mastery", masteryHandler.Upsert)
		r.Get("/mastery/domain/{domain}", masteryHandler.DomainProgress)
		r.Get("/mastery/can-advance/{topicID}", masteryHandler.CanAdvance)
		r.Get("/mastery/{topicID}", masteryHandler.Get)

		// Spaced repetition
		r.Post("/reviews/schedule", reviewHandler.Schedule)
		r.Get("/reviews/due", reviewHandler.Due)
		r.Get("/reviews/optimal", reviewHandler.Optimal)
	})

	// Health check endpoint
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("Failed to write health check response", "error", err)
		}
	})

	return r
}
