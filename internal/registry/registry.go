// Package registry enumerates the server's callable operations. The
// endpoint table is populated by explicit registration at startup and
// frozen before serving; the capability projector reads it for the rest of
// the process lifetime.
package registry

import (
	"fmt"
	"sync"
)

// Param describes one declared endpoint argument.
type Param struct {
	Name string
	Type string
}

// Endpoint describes one server-exposed operation.
//
// Endpoints are immutable once the registry is frozen. An endpoint with an
// empty Group is tolerated but excluded from the public surface.
type Endpoint struct {
	Group         string
	Action        string
	Method        string
	Path          string
	Params        []Param
	RequiredRoles []string
	RequiresAuth  bool
}

// FullName returns the fully-qualified action name used for documentation
// index lookups, e.g. "Public.Time".
func (e Endpoint) FullName() string {
	return e.Group + "." + e.Action
}

// ParamNames returns the declared argument names in order.
func (e Endpoint) ParamNames() []string {
	names := make([]string, len(e.Params))
	for i, p := range e.Params {
		names[i] = p.Name
	}
	return names
}

// ParamTypes returns the declared argument type names in order.
func (e Endpoint) ParamTypes() []string {
	types := make([]string, len(e.Params))
	for i, p := range e.Params {
		types[i] = p.Type
	}
	return types
}

// Registry is the process-wide endpoint table. It is mutable during startup
// registration, then frozen and read-only for the process lifetime.
type Registry struct {
	mu        sync.Mutex
	frozen    bool
	endpoints []Endpoint
	seen      map[string]struct{}
}

// New creates an empty endpoint registry.
func New() *Registry {
	return &Registry{seen: make(map[string]struct{})}
}

// Add registers an endpoint. Double registration of the same method, group
// and action is a configuration error, as is registration after Freeze;
// both surface at startup rather than at request time.
func (r *Registry) Add(e Endpoint) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.frozen {
		return fmt.Errorf("endpoint registry is frozen: cannot add %s %s", e.Method, e.FullName())
	}

	key := e.Method + " " + e.FullName()
	if e.Group != "" {
		if _, dup := r.seen[key]; dup {
			return fmt.Errorf("endpoint %s registered twice", key)
		}
		r.seen[key] = struct{}{}
	}

	r.endpoints = append(r.endpoints, e)
	return nil
}

// Freeze marks the registry read-only. Further Add calls fail.
func (r *Registry) Freeze() {
	r.mu.Lock()
	r.frozen = true
	r.mu.Unlock()
}

// Endpoints returns the public endpoint surface: a copy of all registered
// endpoints that have a resolvable group. Group-less entries are excluded
// rather than failing enumeration.
func (r *Registry) Endpoints() []Endpoint {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]Endpoint, 0, len(r.endpoints))
	for _, e := range r.endpoints {
		if e.Group == "" {
			continue
		}
		out = append(out, e)
	}
	return out
}
