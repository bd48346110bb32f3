package api

import (
	"encoding/json"
	"net/http"

	"github.com/quaylabs/syncgate/internal/auth"
	"github.com/quaylabs/syncgate/internal/sync"
)

// handleScript serves the embedded JavaScript runtime.
func (s *Server) handleScript(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", sync.ScriptContentType)
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response
	w.Write(sync.RuntimeScript())
}

// handleGet returns the caller's capability projection as JSON.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.project(r))
}

// handleConfig returns the projection wrapped as a script that assigns it
// to a global, so a plain script tag can bootstrap the client.
func (s *Server) handleConfig(w http.ResponseWriter, r *http.Request) {
	data, err := json.Marshal(s.project(r))
	if err != nil {
		writeInternalError(w, "internal server error")
		return
	}

	w.Header().Set("Content-Type", sync.ScriptContentType)
	w.WriteHeader(http.StatusOK)
	//nolint:errcheck // Best-effort write to response
	w.Write([]byte("var SYNC_CONFIG = "))
	//nolint:errcheck
	w.Write(data)
	//nolint:errcheck
	w.Write([]byte(";"))
}

func (s *Server) project(r *http.Request) *sync.Descriptor {
	includeDocs := r.URL.Query().Get("documentation") == "true"
	return s.projector.ProjectIdentity(auth.IdentityFrom(r.Context()), includeDocs)
}
