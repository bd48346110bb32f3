// Package bridge relays MQTT messages into a broadcast group. It lets
// backend services push fan-out traffic to connected clients without
// speaking the socket protocol themselves.
package bridge

import (
	"errors"
	"fmt"
	"sync"
	"time"
	"unicode/utf8"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/quaylabs/syncgate/internal/infrastructure/config"
	"github.com/quaylabs/syncgate/internal/infrastructure/logging"
	"github.com/quaylabs/syncgate/internal/ws"
)

const (
	connectTimeout    = 10 * time.Second
	disconnectQuiesce = 250 // milliseconds, paho API takes uint
)

var ErrConnectionFailed = errors.New("mqtt connection failed")

// Relay subscribes to a broker topic and forwards each message to a
// broadcast group. Text payloads go out as text frames, anything that is
// not valid UTF-8 as binary.
type Relay struct {
	cfg    config.BridgeConfig
	group  *ws.Group
	logger *logging.Logger

	client pahomqtt.Client

	connected bool
	connMu    sync.RWMutex
}

// New builds a relay targeting the named broadcast group. The group must
// already be registered.
func New(cfg config.BridgeConfig, sockets *ws.Registry, logger *logging.Logger) (*Relay, error) {
	group, err := sockets.Group(cfg.Group)
	if err != nil {
		return nil, fmt.Errorf("resolving bridge group: %w", err)
	}
	return &Relay{
		cfg:    cfg,
		group:  group,
		logger: logger,
	}, nil
}

// Start connects to the broker and subscribes to the configured topic.
// Subscriptions are restored automatically on reconnect by the OnConnect
// handler.
func (r *Relay) Start() error {
	opts := pahomqtt.NewClientOptions().
		AddBroker(r.cfg.Broker).
		SetClientID(r.cfg.ClientID).
		SetAutoReconnect(true).
		SetConnectRetry(true)

	if r.cfg.Username != "" {
		opts.SetUsername(r.cfg.Username)
		opts.SetPassword(r.cfg.Password)
	}

	opts.SetOnConnectHandler(func(c pahomqtt.Client) {
		r.setConnected(true)
		token := c.Subscribe(r.cfg.Topic, byte(r.cfg.QoS), r.handleMessage)
		if token.Wait() && token.Error() != nil {
			r.logger.Error("bridge subscribe failed",
				"topic", r.cfg.Topic,
				"error", token.Error(),
			)
			return
		}
		r.logger.Info("bridge subscribed",
			"topic", r.cfg.Topic,
			"group", r.group.Name(),
		)
	})

	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		r.setConnected(false)
		r.logger.Warn("bridge connection lost", "error", err)
	})

	r.client = pahomqtt.NewClient(opts)
	token := r.client.Connect()
	if !token.WaitTimeout(connectTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrConnectionFailed, connectTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}
	return nil
}

// handleMessage forwards one broker message to the broadcast group.
func (r *Relay) handleMessage(_ pahomqtt.Client, msg pahomqtt.Message) {
	defer func() {
		if rec := recover(); rec != nil {
			r.logger.Error("bridge handler panic recovered",
				"topic", msg.Topic(),
				"panic", rec,
			)
		}
	}()
	r.forward(msg.Payload())
}

func (r *Relay) forward(payload []byte) {
	if utf8.Valid(payload) {
		r.group.BroadcastText(string(payload))
		return
	}
	r.group.BroadcastBinary(payload)
}

// IsConnected reports the last known connection state.
func (r *Relay) IsConnected() bool {
	r.connMu.RLock()
	defer r.connMu.RUnlock()
	return r.connected && r.client != nil && r.client.IsConnected()
}

func (r *Relay) setConnected(v bool) {
	r.connMu.Lock()
	r.connected = v
	r.connMu.Unlock()
}

// Close disconnects from the broker, allowing a short quiesce period for
// in-flight operations.
func (r *Relay) Close() error {
	if r.client == nil {
		return nil
	}
	r.client.Disconnect(disconnectQuiesce)
	r.setConnected(false)
	return nil
}
