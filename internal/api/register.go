package api

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/quaylabs/syncgate/internal/registry"
)

// Options controls visibility and access for a registered endpoint.
type Options struct {
	// RequiresAuth hides the endpoint from anonymous callers and rejects
	// unauthenticated requests.
	RequiresAuth bool
	// RequiredRoles lists roles the caller must all hold. A non-empty list
	// implies RequiresAuth.
	RequiredRoles []string
	// Params describes the endpoint's arguments for the projection and the
	// generated client stubs.
	Params []registry.Param
}

// Handle registers an endpoint under a named group. The group and action
// names identify the endpoint in the projection; path is the route pattern
// the handler is mounted at.
//
// Registration must happen before Start. Endpoints with an empty group name
// are routed but never projected.
func (s *Server) Handle(method, group, action, path string, handler http.HandlerFunc, opts Options) error {
	if handler == nil {
		return fmt.Errorf("handler is required for %s %s.%s", method, group, action)
	}
	if !strings.HasPrefix(path, "/") {
		return fmt.Errorf("path must start with /: %q", path)
	}

	e := registry.Endpoint{
		Group:         group,
		Action:        action,
		Method:        strings.ToUpper(method),
		Path:          path,
		Params:        opts.Params,
		RequiredRoles: opts.RequiredRoles,
		RequiresAuth:  opts.RequiresAuth || len(opts.RequiredRoles) > 0,
	}
	if err := s.endpoints.Add(e); err != nil {
		return err
	}

	s.routes = append(s.routes, route{endpoint: e, handler: handler})
	return nil
}

// Get registers a GET endpoint.
func (s *Server) Get(group, action, path string, handler http.HandlerFunc, opts Options) error {
	return s.Handle(http.MethodGet, group, action, path, handler, opts)
}

// Post registers a POST endpoint.
func (s *Server) Post(group, action, path string, handler http.HandlerFunc, opts Options) error {
	return s.Handle(http.MethodPost, group, action, path, handler, opts)
}
