package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/quaylabs/syncgate/internal/auth"
	"github.com/quaylabs/syncgate/internal/registry"
)

// buildHandler assembles the middleware chain and router.
//
// The WebSocket admission gate sits between the credential middleware and
// the router so that upgrade requests to broadcast group paths never reach
// route matching.
func (s *Server) buildHandler() http.Handler {
	router := s.buildRouter()

	var h http.Handler = s.socketGate(router)
	h = s.credentialMiddleware(h)
	h = s.bodySizeLimitMiddleware(h)
	h = s.corsMiddleware(h)
	h = s.recoveryMiddleware(h)
	h = s.loggingMiddleware(h)
	h = s.requestIDMiddleware(h)
	return h
}

// buildRouter mounts the built-in routes and every registered endpoint.
func (s *Server) buildRouter() http.Handler {
	r := chi.NewRouter()

	r.Get("/health", s.handleHealth)

	r.Route("/sync", func(r chi.Router) {
		r.Get("/script", s.handleScript)
		r.Get("/get", s.handleGet)
		r.Get("/config", s.handleConfig)
	})

	r.Route("/authentication", func(r chi.Router) {
		r.Post("/loginsession", s.handleLoginSession)
		r.Post("/login", s.handleLogin)
		r.Get("/logout", s.handleLogout)
	})

	for _, rt := range s.routes {
		r.MethodFunc(rt.endpoint.Method, rt.endpoint.Path, s.authorize(rt.endpoint, rt.handler))
	}

	return r
}

// authorize wraps an endpoint handler with its access check. Callers that
// fail the check get the same 401 whether they are anonymous or merely
// missing a role.
func (s *Server) authorize(e registry.Endpoint, next http.HandlerFunc) http.HandlerFunc {
	if !e.RequiresAuth && len(e.RequiredRoles) == 0 {
		return next
	}
	return func(w http.ResponseWriter, r *http.Request) {
		id := auth.IdentityFrom(r.Context())
		if !auth.CanUseIdentity(e.RequiresAuth, e.RequiredRoles, id) {
			writeUnauthorized(w, "authentication required")
			return
		}
		next(w, r)
	}
}

// handleHealth returns the server health status.
func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"version": s.version,
	})
}
