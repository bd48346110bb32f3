package ws

import (
	"fmt"
	"strings"
	"sync"

	"github.com/quaylabs/syncgate/internal/auth"
)

// Handler receives session lifecycle and message events. A new Handler is
// created per accepted session via the factory passed at registration.
//
// OnText and OnBinary are dispatched in their own goroutines so a slow
// handler cannot stall the session's receive loop; handlers needing
// in-order processing must serialise themselves.
type Handler interface {
	OnConnected(s *Session)
	OnDisconnected(s *Session)
	OnText(s *Session, msg string)
	OnBinary(s *Session, data []byte)
	OnError(s *Session, err error)
}

// NopHandler is an embeddable Handler with no-op methods, so concrete
// handlers only implement the events they care about.
type NopHandler struct{}

func (NopHandler) OnConnected(*Session)       {}
func (NopHandler) OnDisconnected(*Session)    {}
func (NopHandler) OnText(*Session, string)    {}
func (NopHandler) OnBinary(*Session, []byte)  {}
func (NopHandler) OnError(*Session, error)    {}

// Group is a named broadcast group: a path prefix, an authorisation rule,
// a handler binding, and the set of live member sessions.
type Group struct {
	name          string
	pathPrefix    string
	requiredRoles []string
	requiresAuth  bool
	newHandler    func() Handler

	mu      sync.Mutex
	members map[*Session]struct{}
}

// Name returns the group's unique name.
func (g *Group) Name() string { return g.name }

// PathPrefix returns the upgrade path prefix the group is mounted on.
func (g *Group) PathPrefix() string { return g.pathPrefix }

// RequiresAuth reports whether admission requires an authenticated caller.
func (g *Group) RequiresAuth() bool { return g.requiresAuth }

// RequiredRoles returns the roles a caller must hold for admission.
func (g *Group) RequiredRoles() []string { return g.requiredRoles }

// CanUse reports whether the given caller identity may join the group.
// The decision is the shared authorisation predicate; HTTP gating and
// capability projection use the same semantics.
func (g *Group) CanUse(id *auth.Identity) bool {
	return auth.CanUseIdentity(g.requiresAuth, g.requiredRoles, id)
}

// Sessions returns a snapshot of the group's live members.
func (g *Group) Sessions() []*Session {
	g.mu.Lock()
	defer g.mu.Unlock()
	out := make([]*Session, 0, len(g.members))
	for s := range g.members {
		out = append(out, s)
	}
	return out
}

// Count returns the number of live member sessions.
func (g *Group) Count() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.members)
}

// BroadcastText sends a text payload to every live member. Delivery is
// best-effort: a failed send closes that member's session and the
// broadcast continues.
func (g *Group) BroadcastText(msg string) {
	for _, s := range g.Sessions() {
		if err := s.SendText(msg); err != nil {
			s.Close()
		}
	}
}

// BroadcastBinary sends a binary payload to every live member with the
// same best-effort semantics as BroadcastText.
func (g *Group) BroadcastBinary(data []byte) {
	for _, s := range g.Sessions() {
		if err := s.SendBinary(data); err != nil {
			s.Close()
		}
	}
}

func (g *Group) add(s *Session) {
	g.mu.Lock()
	g.members[s] = struct{}{}
	g.mu.Unlock()
}

func (g *Group) remove(s *Session) {
	g.mu.Lock()
	delete(g.members, s)
	g.mu.Unlock()
}

// Registry holds the named broadcast groups. Groups are registered during
// startup; lookups and path matching are read-only afterwards.
type Registry struct {
	mu     sync.Mutex
	groups map[string]*Group
	order  []*Group
}

// NewRegistry creates an empty group registry.
func NewRegistry() *Registry {
	return &Registry{groups: make(map[string]*Group)}
}

// Add registers an open broadcast group: no authentication or roles are
// required for admission. Duplicate names are configuration errors.
func (r *Registry) Add(name, pathPrefix string, factory func() Handler) error {
	return r.register(&Group{
		name:       name,
		pathPrefix: pathPrefix,
		newHandler: factory,
		members:    make(map[*Session]struct{}),
	})
}

// AddAuthenticated registers a broadcast group requiring an authenticated
// caller holding every one of the given roles.
func (r *Registry) AddAuthenticated(name, pathPrefix string, factory func() Handler, roles ...string) error {
	return r.register(&Group{
		name:          name,
		pathPrefix:    pathPrefix,
		requiresAuth:  true,
		requiredRoles: roles,
		newHandler:    factory,
		members:       make(map[*Session]struct{}),
	})
}

func (r *Registry) register(g *Group) error {
	if g.name == "" {
		return fmt.Errorf("websocket group name is required")
	}
	if g.pathPrefix == "" || !strings.HasPrefix(g.pathPrefix, "/") {
		return fmt.Errorf("websocket group %q: path prefix must start with /", g.name)
	}
	if g.newHandler == nil {
		return fmt.Errorf("websocket group %q: handler factory is required", g.name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, dup := r.groups[g.name]; dup {
		return fmt.Errorf("websocket group %q registered twice", g.name)
	}
	r.groups[g.name] = g
	r.order = append(r.order, g)
	return nil
}

// Group returns the named group. An unknown name is a programmer error
// surfaced to the caller.
func (r *Registry) Group(name string) (*Group, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.groups[name]
	if !ok {
		return nil, fmt.Errorf("websocket group %q does not exist", name)
	}
	return g, nil
}

// Groups returns all registered groups in registration order.
func (r *Registry) Groups() []*Group {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]*Group, len(r.order))
	copy(out, r.order)
	return out
}

// Match returns the first registered group whose path prefix matches the
// request path on segment boundaries, or nil when none matches.
func (r *Registry) Match(path string) *Group {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, g := range r.order {
		if path == g.pathPrefix || strings.HasPrefix(path, g.pathPrefix+"/") {
			return g
		}
	}
	return nil
}

// Sessions returns a snapshot of the named group's live members.
func (r *Registry) Sessions(name string) ([]*Session, error) {
	g, err := r.Group(name)
	if err != nil {
		return nil, err
	}
	return g.Sessions(), nil
}
