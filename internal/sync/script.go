package sync

import _ "embed"

// ScriptContentType is the content type for generated client code.
const ScriptContentType = "application/javascript"

// runtimeScript is the client runtime. When executed in a browser it
// materialises one callable stub per reachable endpoint and a WebSocket
// factory per reachable group from a capability descriptor.
//
//go:embed sync.js
var runtimeScript []byte

// RuntimeScript returns the embedded client runtime.
func RuntimeScript() []byte {
	return runtimeScript
}
