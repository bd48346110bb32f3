package sync

import "github.com/quaylabs/syncgate/internal/registry"

// Descriptor is the caller-specific view of the callable server surface.
// Field names are part of the wire contract with the generated JavaScript
// runtime; changing them requires regenerating the client script.
type Descriptor struct {
	Authenticated bool                  `json:"Authenticated"`
	Groups        []GroupDescriptor     `json:"Groups"`
	WebSockets    []WebSocketDescriptor `json:"WebSockets"`
}

// GroupDescriptor is one logical endpoint group. A group whose actions are
// all filtered out is still present with an empty action list.
type GroupDescriptor struct {
	Name    string             `json:"Name"`
	Actions []ActionDescriptor `json:"Actions"`
}

// ActionDescriptor is one callable endpoint within a group.
type ActionDescriptor struct {
	Method        string              `json:"Method"`
	Name          string              `json:"Name"`
	URL           string              `json:"Url"`
	Arguments     []string            `json:"Arguments"`
	ArgumentTypes []string            `json:"ArgumentTypes"`
	Documentation *registry.DocMember `json:"Documentation,omitempty"`
}

// WebSocketDescriptor is one reachable broadcast group.
type WebSocketDescriptor struct {
	Name string `json:"Name"`
	URL  string `json:"Url"`
}
