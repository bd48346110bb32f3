// Package sync derives per-caller views of the server's callable surface
// and turns them into browser-consumable bindings.
//
// The projector filters the endpoint registry and the WebSocket group
// registry through the shared authorisation predicate: an action appears
// in a projection exactly when the caller could invoke it. The resulting
// descriptor is served as JSON, as a SYNC_CONFIG script, or consumed by
// the embedded JavaScript runtime which materialises one callable stub per
// reachable endpoint and a factory per reachable WebSocket group.
package sync
