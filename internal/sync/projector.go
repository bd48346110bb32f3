package sync

import (
	"sort"
	gosync "sync"

	"github.com/quaylabs/syncgate/internal/auth"
	"github.com/quaylabs/syncgate/internal/registry"
	"github.com/quaylabs/syncgate/internal/ws"
)

// Projector builds capability descriptors from the endpoint and WebSocket
// registries.
//
// The two anonymous projections (with and without documentation) depend
// only on the frozen registries, so they are computed once and cached for
// the process lifetime. Authenticated projections vary with the caller's
// role set and are recomputed per call; caching them would need a
// role-set keyed cache for little gain.
type Projector struct {
	registry *registry.Registry
	sockets  *ws.Registry
	docs     *registry.DocIndex

	plainOnce  gosync.Once
	plain      *Descriptor
	docOnce    gosync.Once
	documented *Descriptor
}

// NewProjector creates a projector over the given registries.
func NewProjector(reg *registry.Registry, sockets *ws.Registry, docs *registry.DocIndex) *Projector {
	return &Projector{registry: reg, sockets: sockets, docs: docs}
}

// Project returns the capability descriptor visible to a caller with the
// given authentication state and roles. The invariant: an action or
// WebSocket group appears in the result exactly when the shared
// authorisation predicate admits the caller.
func (p *Projector) Project(authenticated bool, roles []string, includeDocs bool) *Descriptor {
	if !authenticated {
		if includeDocs {
			p.docOnce.Do(func() { p.documented = p.build(false, nil, true) })
			return p.documented
		}
		p.plainOnce.Do(func() { p.plain = p.build(false, nil, false) })
		return p.plain
	}
	return p.build(true, roles, includeDocs)
}

// ProjectIdentity is Project applied to a request identity, which may be
// nil for anonymous callers.
func (p *Projector) ProjectIdentity(id *auth.Identity, includeDocs bool) *Descriptor {
	if id == nil {
		return p.Project(false, nil, includeDocs)
	}
	return p.Project(true, id.Roles(), includeDocs)
}

func (p *Projector) build(authenticated bool, roles []string, includeDocs bool) *Descriptor {
	endpoints := p.registry.Endpoints()

	// Group endpoints by group name. Groups left with zero callable
	// actions are kept with an empty list: the group exists, nothing in
	// it is callable by this caller.
	byGroup := make(map[string][]ActionDescriptor)
	var groupNames []string
	for _, e := range endpoints {
		if _, seen := byGroup[e.Group]; !seen {
			groupNames = append(groupNames, e.Group)
			byGroup[e.Group] = []ActionDescriptor{}
		}
		if !auth.CanUse(e.RequiresAuth, e.RequiredRoles, authenticated, roles) {
			continue
		}
		action := ActionDescriptor{
			Method:        e.Method,
			Name:          e.Action,
			URL:           e.Path,
			Arguments:     e.ParamNames(),
			ArgumentTypes: e.ParamTypes(),
		}
		if includeDocs && p.docs != nil {
			if member, ok := p.docs.Lookup(e.FullName()); ok {
				action.Documentation = &member
			}
		}
		byGroup[e.Group] = append(byGroup[e.Group], action)
	}

	// Deterministic output for identical input: sort groups and actions.
	sort.Strings(groupNames)
	groups := make([]GroupDescriptor, 0, len(groupNames))
	for _, name := range groupNames {
		actions := byGroup[name]
		sort.Slice(actions, func(i, j int) bool {
			if actions[i].Name != actions[j].Name {
				return actions[i].Name < actions[j].Name
			}
			return actions[i].Method < actions[j].Method
		})
		groups = append(groups, GroupDescriptor{Name: name, Actions: actions})
	}

	var websockets []WebSocketDescriptor
	for _, g := range p.sockets.Groups() {
		if !auth.CanUse(g.RequiresAuth(), g.RequiredRoles(), authenticated, roles) {
			continue
		}
		websockets = append(websockets, WebSocketDescriptor{Name: g.Name(), URL: g.PathPrefix()})
	}
	sort.Slice(websockets, func(i, j int) bool { return websockets[i].Name < websockets[j].Name })

	return &Descriptor{
		Authenticated: authenticated,
		Groups:        groups,
		WebSockets:    websockets,
	}
}
