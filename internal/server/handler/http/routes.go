package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atinyakov/accessgate/internal/middleware"
)

// NewRouter constructs the AccessGate API handler.
//
// Routes:
//
//	GET    /api/methods                    → entryHandler.ListMethods
//	GET    /api/entries                    → entryHandler.List
//	GET    /api/entries/{id}               → entryHandler.Get
//	DELETE /api/entries/{id}               → entryHandler.Delete
//	GET    /api/entries/{id}/events        → entryHandler.Events
//	POST   /api/entries/{id}/authenticate  → authHandler.Authenticate
//	POST   /api/enrollments                → enrollmentHandler.Start
//	GET    /api/enrollments/{id}           → enrollmentHandler.Get
//	DELETE /api/enrollments/{id}           → enrollmentHandler.Cancel
//	POST   /api/enrollments/{id}/{step}    → method, first, repeat, name, hint, back, save
//
// Middleware chain (applied in order):
//  1. RequestID
//  2. AllowContentType("application/json") for requests with a body
//  3. WithRequestLogging(logger)
//  4. Recoverer
func NewRouter(
	entryHandler *EntryHandler,
	authHandler *AuthHandler,
	enrollmentHandler *EnrollmentHandler,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.AllowContentType("application/json"))
	r.Use(middleware.WithRequestLogging(logger))
	r.Use(chiMiddleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/methods", entryHandler.ListMethods)

		r.Route("/entries", func(r chi.Router) {
			r.Get("/", entryHandler.List)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", entryHandler.Get)
				r.Delete("/", entryHandler.Delete)
				r.Get("/events", entryHandler.Events)
				r.Post("/authenticate", authHandler.Authenticate)
			})
		})

		r.Route("/enrollments", func(r chi.Router) {
			r.Post("/", enrollmentHandler.Start)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", enrollmentHandler.Get)
				r.Delete("/", enrollmentHandler.Cancel)
				r.Post("/method", enrollmentHandler.SelectMethod)
				r.Post("/first", enrollmentHandler.SubmitFirst)
				r.Post("/repeat", enrollmentHandler.SubmitRepeat)
				r.Post("/name", enrollmentHandler.SetName)
				r.Post("/hint", enrollmentHandler.SetHint)
				r.Post("/back", enrollmentHandler.Back)
				r.Post("/save", enrollmentHandler.Save)
			})
		})
	})

	return r
}
