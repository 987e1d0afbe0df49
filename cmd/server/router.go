package main

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/phrazzld/tome-api/internal/api"
	apiMiddleware "github.com/phrazzld/tome-api/internal/api/middleware"
)

// setupRouter creates and configures the application router with all routes
// and middleware.
func (app *application) setupRouter() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(apiMiddleware.TraceMiddleware)
	r.Use(app.metrics.httpMiddleware)

	authHandler := api.NewAuthHandler(
		app.userStore,
		app.jwtService,
		app.passwordVerifier,
		&app.config.Auth,
	)
	documentHandler := api.NewDocumentHandler(app.documentService, app.deleteService, app.logger)
	taskHandler := api.NewTaskHandler(app.scheduler, app.resultCache, app.deleteService, app.logger)
	userHandler := api.NewUserHandler(app.userService, app.logger)

	authMiddleware := apiMiddleware.NewAuthMiddleware(app.jwtService)
	submitLimiter := apiMiddleware.NewSubmitRateLimiter(
		app.config.Server.SubmitRatePerSecond,
		app.config.Server.SubmitBurst,
	)

	r.Route("/api", func(r chi.Router) {
		// Authentication endpoints (public)
		r.Post("/auth/register", authHandler.Register)
		r.Post("/auth/login", authHandler.Login)
		r.Post("/auth/refresh", authHandler.RefreshToken)

		// Protected routes
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)

			// Document reads
			r.Get("/documents", documentHandler.ListDocuments)
			r.Get("/documents/{id}", documentHandler.GetDocument)

			// Mutating document endpoints feed the task queue, so they
			// carry the per-client rate limit.
			r.Group(func(r chi.Router) {
				r.Use(submitLimiter.Middleware)
				r.Post("/documents", documentHandler.CreateDocument)
				r.Delete("/documents/{id}", documentHandler.DeleteDocument)
				r.Post("/documents/batch-delete", documentHandler.BatchDelete)
			})

			// Task registry endpoints
			r.Get("/tasks/stats", taskHandler.GetStats)
			r.Get("/tasks/{id}", taskHandler.GetTask)
			r.Post("/tasks/{id}/cancel", taskHandler.CancelTask)
			r.Get("/tasks/{id}/wait", taskHandler.WaitTask)

			// Delete operation audit records
			r.Get("/operations/{id}", documentHandler.GetOperation)

			// Account management
			r.Get("/users/me", userHandler.GetMe)
			r.Put("/users/me", userHandler.UpdateMe)
			r.Delete("/users/me", userHandler.DeleteMe)
		})
	})

	// Health check endpoint
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("OK")); err != nil {
			app.logger.Error("failed to write health check response", "error", err)
		}
	})

	// Prometheus scrape endpoint
	r.Handle("/metrics", promhttp.Handler())

	return r
}
