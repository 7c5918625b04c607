package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atinyakov/kidcoin/internal/middleware"
)

// NewRouter constructs the HTTP handler that serves the relay API.
//
// Routes:
//
//	GET /api/token    → tokenHandler.Issue
//	GET /api/ws       → wsHandler (websocket upgrade)
//	GET /api/activity → activityHandler.Recent (only when retention is on)
//
// activityHandler may be nil when no database is configured; the route
// is simply not mounted then.
func NewRouter(
	tokenHandler *TokenHandler,
	activityHandler *ActivityHandler,
	wsHandler http.HandlerFunc,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// Log each request and its metadata
	r.Use(middleware.WithRequestLogging(logger))

	r.Route("/api", func(r chi.Router) {
		r.Get("/token", tokenHandler.Issue)
		r.Get("/ws", wsHandler)
		if activityHandler != nil {
			r.Get("/activity", activityHandler.Recent)
		}
	})

	return r
}
