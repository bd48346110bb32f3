// Package api provides the HTTP and WebSocket server for syncgate.
//
// Host applications register endpoint groups and broadcast groups on the
// server, then call Start. The server exposes the registered surface to
// browser clients through the capability projection routes and the
// generated JavaScript runtime, and admits WebSocket sessions into
// broadcast groups.
//
// The server follows the same lifecycle pattern as the other components:
//
//	server, err := api.New(deps)
//	server.Start(ctx)
//	defer server.Close()
package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/quaylabs/syncgate/internal/auth"
	"github.com/quaylabs/syncgate/internal/infrastructure/config"
	"github.com/quaylabs/syncgate/internal/infrastructure/logging"
	"github.com/quaylabs/syncgate/internal/registry"
	"github.com/quaylabs/syncgate/internal/sync"
	"github.com/quaylabs/syncgate/internal/ws"
)

// gracefulShutdownTimeout is the maximum time to wait for in-flight requests
// to complete during shutdown.
const gracefulShutdownTimeout = 10 * time.Second

// Deps holds the dependencies required by the API server.
type Deps struct {
	Config    *config.Config
	Logger    *logging.Logger
	Directory auth.Directory
	Version   string
}

// route pairs a registered endpoint with its handler until Start builds
// the router.
type route struct {
	endpoint registry.Endpoint
	handler  http.HandlerFunc
}

// Server is the syncgate HTTP server.
//
// Endpoints and broadcast groups must be registered before Start; the
// projection is frozen when the server starts listening.
type Server struct {
	cfg       *config.Config
	logger    *logging.Logger
	directory auth.Directory
	version   string

	tokens    *auth.TokenService
	endpoints *registry.Registry
	sockets   *ws.Registry
	docs      *registry.DocIndex
	projector *sync.Projector

	routes []route

	server *http.Server
}

// New creates a new server with the given dependencies.
//
// The server is not started until Start() is called. The token signing
// secret is generated here, so tokens do not survive a process restart.
func New(deps Deps) (*Server, error) {
	if deps.Config == nil {
		return nil, fmt.Errorf("config is required")
	}
	if deps.Logger == nil {
		return nil, fmt.Errorf("logger is required")
	}
	if deps.Directory == nil {
		return nil, fmt.Errorf("user directory is required")
	}

	tokens, err := auth.NewTokenService()
	if err != nil {
		return nil, fmt.Errorf("creating token service: %w", err)
	}

	s := &Server{
		cfg:       deps.Config,
		logger:    deps.Logger,
		directory: deps.Directory,
		version:   deps.Version,
		tokens:    tokens,
		endpoints: registry.New(),
		sockets:   ws.NewRegistry(),
	}

	if deps.Config.Docs.Path != "" {
		s.docs = registry.NewDocIndex(deps.Config.Docs.Path, deps.Logger)
	}

	return s, nil
}

// Sockets returns the broadcast group registry for registering groups and
// pushing messages to connected sessions.
func (s *Server) Sockets() *ws.Registry {
	return s.sockets
}

// Tokens returns the token service, for hosts that mint tokens out of band.
func (s *Server) Tokens() *auth.TokenService {
	return s.tokens
}

// Start begins listening for HTTP connections.
//
// It freezes the endpoint registry, builds the capability projector and
// router, and launches the listener in a background goroutine.
func (s *Server) Start(_ context.Context) error {
	s.endpoints.Freeze()
	s.projector = sync.NewProjector(s.endpoints, s.sockets, s.docs)

	s.server = &http.Server{
		Addr:              fmt.Sprintf("%s:%d", s.cfg.Server.Host, s.cfg.Server.Port),
		Handler:           s.buildHandler(),
		ReadTimeout:       s.cfg.ReadTimeout(),
		ReadHeaderTimeout: s.cfg.ReadTimeout(),
		WriteTimeout:      s.cfg.WriteTimeout(),
		IdleTimeout:       s.cfg.IdleTimeout(),
	}

	go func() {
		err := s.server.ListenAndServe()
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("server error", "error", err)
		}
	}()

	s.logger.Info("server started",
		"address", s.server.Addr,
		"endpoints", len(s.endpoints.Endpoints()),
		"groups", len(s.sockets.Groups()),
	)
	return nil
}

// Close gracefully shuts down the server.
//
// It waits up to 10 seconds for in-flight requests to complete, then
// forcefully closes remaining connections. Open WebSocket sessions are
// closed before the listener shuts down.
func (s *Server) Close() error {
	if s.server == nil {
		return nil
	}

	for _, g := range s.sockets.Groups() {
		for _, sess := range g.Sessions() {
			sess.Close()
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), gracefulShutdownTimeout)
	defer cancel()

	s.logger.Info("server shutting down")
	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("shutting down server: %w", err)
	}
	return nil
}
