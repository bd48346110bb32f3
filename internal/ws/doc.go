// Package ws implements named broadcast groups of live WebSocket sessions.
//
// Groups are registered at startup with a path prefix and an authorisation
// requirement. Upgrade admission is decided by the same predicate that
// gates HTTP endpoints; an accepted connection becomes a Session whose
// receive loop runs in its own goroutine until the peer closes, a read
// fails, or Close is called. Membership shrinks only when a session's
// receive loop exits.
package ws
