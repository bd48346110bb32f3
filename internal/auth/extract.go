package auth

import (
	"net/http"
	"strings"
)

// Credential transport locations, in extraction precedence order.
const (
	// HeaderName is the custom header carrying a raw token.
	HeaderName = "auth"

	// CookieName is the cookie carrying a raw token.
	CookieName = "auth"

	// ProtocolPrefix marks a WebSocket sub-protocol value that smuggles a
	// token during the upgrade handshake.
	ProtocolPrefix = "auth_"
)

// Credential is a bearer token located in an inbound request.
type Credential struct {
	// Token is the raw token string.
	Token string

	// Subprotocol is the full Sec-WebSocket-Protocol value the token was
	// negotiated through, e.g. "auth_<token>". It is empty unless the
	// credential came from sub-protocol negotiation; when set, the same
	// value must be echoed in the upgrade response's accepted sub-protocol
	// list so the transport handshake completes.
	Subprotocol string
}

// ExtractCredential locates a bearer credential in the request, trying each
// transport in a fixed precedence order and stopping at the first match:
//
//  1. the "auth" header
//  2. the "auth" cookie
//  3. the standard Authorization header (optional "Bearer " prefix)
//  4. a Sec-WebSocket-Protocol value prefixed "auth_"
//
// Absence of any credential is not an error; the second return is false.
func ExtractCredential(r *http.Request) (Credential, bool) {
	if v := r.Header.Get(HeaderName); v != "" {
		return Credential{Token: v}, true
	}

	if c, err := r.Cookie(CookieName); err == nil && c.Value != "" {
		return Credential{Token: c.Value}, true
	}

	if v := r.Header.Get("Authorization"); v != "" {
		return Credential{Token: stripBearer(v)}, true
	}

	if v := r.Header.Get("Sec-WebSocket-Protocol"); v != "" {
		for _, proto := range strings.Split(v, ",") {
			proto = strings.TrimSpace(proto)
			if token, ok := strings.CutPrefix(proto, ProtocolPrefix); ok && token != "" {
				return Credential{Token: token, Subprotocol: proto}, true
			}
		}
	}

	return Credential{}, false
}

// stripBearer removes an optional "Bearer " scheme prefix.
func stripBearer(v string) string {
	const scheme = "bearer "
	if len(v) > len(scheme) && strings.EqualFold(v[:len(scheme)], scheme) {
		return strings.TrimSpace(v[len(scheme):])
	}
	return v
}
