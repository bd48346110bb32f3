package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/quaylabs/syncgate/internal/auth"
)

// loginRequest is the credential payload for both login routes.
type loginRequest struct {
	User     string `json:"user"`
	Password string `json:"password"`
}

// handleLoginSession authenticates the caller and sets the session cookie.
// The cookie carries the signed token and expires with it.
func (s *Server) handleLoginSession(w http.ResponseWriter, r *http.Request) {
	token, ok := s.authenticate(w, r)
	if !ok {
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.cfg.TokenTTL()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	w.WriteHeader(http.StatusOK)
}

// handleLogin authenticates the caller and returns the signed token in the
// response body, for clients that manage the credential themselves.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	token, ok := s.authenticate(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"token": token})
}

// handleLogout clears the session cookie. The token itself stays valid
// until it expires; only the browser's copy is discarded.
func (s *Server) handleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     auth.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Unix(0, 0),
		MaxAge:   -1,
		HttpOnly: true,
	})
	w.WriteHeader(http.StatusOK)
}

// authenticate reads the credential payload, verifies it against the user
// directory, and signs a token. It writes the error response itself and
// reports success through the second return value.
func (s *Server) authenticate(w http.ResponseWriter, r *http.Request) (string, bool) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid request body")
		return "", false
	}
	if req.User == "" || req.Password == "" {
		writeBadRequest(w, "user and password are required")
		return "", false
	}

	user, err := s.directory.Authenticate(r.Context(), req.User, req.Password)
	if err != nil {
		writeUnauthorized(w, "invalid credentials")
		return "", false
	}

	token, err := s.tokens.Sign(user.ID(), s.cfg.TokenTTL())
	if err != nil {
		s.logger.Error("signing token failed", "error", err)
		writeInternalError(w, "internal server error")
		return "", false
	}
	return token, true
}
