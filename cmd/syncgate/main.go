// syncgate is a self-describing HTTP and WebSocket gateway.
//
// Host applications register endpoint groups and broadcast groups; syncgate
// exposes them to browsers through a capability projection, a generated
// JavaScript client, and token-based authentication. This binary wires a
// small demonstration surface around the library packages.
package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/quaylabs/syncgate/internal/api"
	"github.com/quaylabs/syncgate/internal/bridge"
	"github.com/quaylabs/syncgate/internal/infrastructure/config"
	"github.com/quaylabs/syncgate/internal/infrastructure/logging"
	"github.com/quaylabs/syncgate/internal/userstore"
	"github.com/quaylabs/syncgate/internal/ws"
)

// Version information - set at build time via ldflags
// Example: go build -ldflags "-X main.version=1.0.0"
var (
	version = "dev"
	commit  = "unknown"
)

const defaultConfigPath = "configs/config.yaml"

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	if err := run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// run is the actual application logic, separated from main for testability.
func run(ctx context.Context) error {
	log := logging.Default()
	log.Info("starting syncgate",
		"version", version,
		"commit", commit,
	)

	configPath := getConfigPath()
	cfg, err := config.Load(configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	log.Info("configuration loaded", "path", configPath)

	log = logging.New(cfg.Logging, version)

	// Open the user directory and seed a default admin on first run.
	store, err := userstore.Open(cfg.Users.Path)
	if err != nil {
		return fmt.Errorf("opening user store: %w", err)
	}
	defer func() {
		if closeErr := store.Close(); closeErr != nil {
			log.Error("error closing user store", "error", closeErr)
		}
	}()
	if err := seedAdmin(ctx, store, log); err != nil {
		return fmt.Errorf("seeding admin account: %w", err)
	}

	server, err := api.New(api.Deps{
		Config:    cfg,
		Logger:    log,
		Directory: store,
		Version:   version,
	})
	if err != nil {
		return fmt.Errorf("creating server: %w", err)
	}

	if err := registerDemoSurface(server); err != nil {
		return fmt.Errorf("registering endpoints: %w", err)
	}

	if err := server.Start(ctx); err != nil {
		return fmt.Errorf("starting server: %w", err)
	}
	defer func() {
		if closeErr := server.Close(); closeErr != nil {
			log.Error("error closing server", "error", closeErr)
		}
	}()

	// Optional MQTT relay into a broadcast group.
	if cfg.Bridge.Enabled {
		relay, relayErr := bridge.New(cfg.Bridge, server.Sockets(), log)
		if relayErr != nil {
			return fmt.Errorf("creating bridge: %w", relayErr)
		}
		if relayErr = relay.Start(); relayErr != nil {
			return fmt.Errorf("starting bridge: %w", relayErr)
		}
		defer func() {
			if closeErr := relay.Close(); closeErr != nil {
				log.Error("error closing bridge", "error", closeErr)
			}
		}()
		log.Info("bridge started",
			"broker", cfg.Bridge.Broker,
			"topic", cfg.Bridge.Topic,
			"group", cfg.Bridge.Group,
		)
	}

	log.Info("initialisation complete, waiting for shutdown signal")
	<-ctx.Done()

	log.Info("shutdown signal received, cleaning up")
	return nil
}

// seedAdmin creates an initial admin account when the store is empty. The
// generated password is logged once so the operator can log in and change it.
func seedAdmin(ctx context.Context, store *userstore.Store, log *logging.Logger) error {
	n, err := store.Count(ctx)
	if err != nil {
		return err
	}
	if n > 0 {
		return nil
	}

	password := os.Getenv("SYNCGATE_ADMIN_PASSWORD")
	if password == "" {
		password = "admin"
		log.Warn("seeding default admin with default password, change it or set SYNCGATE_ADMIN_PASSWORD")
	}
	if _, err := store.Create(ctx, "usr-admin", "admin", password, []string{"admin"}); err != nil {
		return err
	}
	log.Info("seeded admin account", "username", "admin")
	return nil
}

// registerDemoSurface wires a small endpoint and broadcast surface so the
// binary is usable out of the box.
func registerDemoSurface(server *api.Server) error {
	if err := server.Get("System", "Time", "/system/time", func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprintf(w, `{"time":%q}`, time.Now().UTC().Format(time.RFC3339))
	}, api.Options{}); err != nil {
		return err
	}

	if err := server.Get("System", "Whoami", "/system/whoami", func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprintf(w, `{"authenticated":true}`)
	}, api.Options{RequiresAuth: true}); err != nil {
		return err
	}

	sockets := server.Sockets()

	// Echo group: anyone may connect, messages bounce straight back.
	if err := sockets.Add("echo", "/ws/echo", func() ws.Handler { return echoHandler{} }); err != nil {
		return err
	}

	// Events group: open fan-out target, also usable by the MQTT relay.
	if err := sockets.Add("events", "/ws/events", func() ws.Handler { return ws.NopHandler{} }); err != nil {
		return err
	}

	// Control group: admin only.
	if err := sockets.AddAuthenticated("control", "/ws/control", func() ws.Handler { return ws.NopHandler{} }, "admin"); err != nil {
		return err
	}

	return nil
}

// echoHandler sends every received message back to its sender.
type echoHandler struct {
	ws.NopHandler
}

func (echoHandler) OnText(s *ws.Session, msg string) {
	//nolint:errcheck // Send failure closes the session anyway
	s.SendText(msg)
}

func (echoHandler) OnBinary(s *ws.Session, data []byte) {
	//nolint:errcheck
	s.SendBinary(data)
}

// getConfigPath returns the configuration file path.
// Uses SYNCGATE_CONFIG environment variable if set, otherwise default.
func getConfigPath() string {
	if path := os.Getenv("SYNCGATE_CONFIG"); path != "" {
		return path
	}
	return defaultConfigPath
}
