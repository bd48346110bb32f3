// Package auth implements the authentication and authorisation core of
// syncgate: stateless bearer tokens, protocol-aware credential extraction,
// request identities, and the single authorisation predicate shared by HTTP
// endpoint gating, capability projection, and WebSocket admission.
//
// Tokens are signed with a secret generated once at process start and held
// only in memory. Restarting the process therefore revokes every
// outstanding token.
package auth
