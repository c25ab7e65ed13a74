package mqtt

import (
	"context"
	"fmt"
	"sync"
	"time"

	pahomqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/openbreeze/breezer-core/internal/infrastructure/config"
)

// Client wraps paho.mqtt.golang with Breezer Core-specific functionality.
//
// It provides connection management, message publishing, a subscription
// registry that survives reconnects, and the inbound message relay that
// moves broker callbacks off the network thread.
//
// Inbound flow: the paho network goroutine decodes each message into an
// Event and pushes it onto the Relay without blocking. The relay's single
// consumer loop resolves the event against every registered pattern via
// TopicMatches and invokes matching handlers in registration order. All
// handler code therefore runs on one application goroutine.
//
// Thread Safety:
//   - All exported methods are safe for concurrent use.
//   - Handlers are only ever invoked from the relay consumer goroutine.
type Client struct {
	client  pahomqtt.Client
	options *pahomqtt.ClientOptions
	cfg     config.MQTTConfig

	// namespace is the topic namespace used for the bridge status topic.
	namespace string

	// subs is the ordered subscription registry, replayed against the
	// broker on every successful (re)connect. Re-registering a pattern
	// replaces its handler in place, keeping its registration position.
	subs  []subscription
	subMu sync.RWMutex

	// relay bridges the paho network callback and the consumer loop.
	relay       *Relay
	relayCancel context.CancelFunc

	// connected tracks current connection state.
	connected bool
	connMu    sync.RWMutex

	// Callbacks for connection events (optional, set via SetOnConnect/SetOnDisconnect).
	onConnect    func()
	onDisconnect func(err error)
	callbackMu   sync.RWMutex

	// logger for error/warning logging (optional, set via SetLogger).
	logger   Logger
	loggerMu sync.RWMutex
}

// Logger interface for optional logging support.
// Compatible with logging.Logger and slog.Logger.
type Logger interface {
	Error(msg string, args ...any)
	Warn(msg string, args ...any)
}

// subscription holds one registry entry.
type subscription struct {
	pattern string
	qos     byte
	handler MessageHandler
}

// MessageHandler is the callback signature for received messages.
//
// Handlers are invoked sequentially from the relay consumer goroutine, in
// registration order for each event. They should not block for extended
// periods as this delays every later event.
//
// Parameters:
//   - topic: The concrete topic the message was received on
//   - payload: The raw payload string
//
// Returns:
//   - error: Logged as a warning; does not affect message acknowledgment
type MessageHandler func(topic string, payload string) error

// Connect establishes a connection to the MQTT broker.
//
// It performs the following setup:
//  1. Builds connection options from config (broker URL, auth, TLS)
//  2. Configures Last Will and Testament on the bridge status topic
//  3. Sets up auto-reconnect with exponential backoff
//  4. Attempts the connection, polling in 0.5s increments up to 5s
//  5. Starts the relay consumer loop
//  6. Publishes online status (retained) on the bridge status topic
//
// Parameters:
//   - cfg: MQTT configuration from config.yaml
//   - namespace: Topic namespace for the bridge status topic
//
// Returns:
//   - *Client: Connected client ready for use
//   - error: If the handshake does not complete within the bounded wait
func Connect(cfg config.MQTTConfig, namespace string) (*Client, error) {
	opts := buildClientOptions(cfg)
	configureLWT(opts, namespace, cfg.Broker.ClientID)

	c := &Client{
		cfg:       cfg,
		options:   opts,
		namespace: namespace,
		relay:     NewRelay(cfg.Relay.Buffer),
	}

	// Set up connection callbacks
	opts.SetOnConnectHandler(func(_ pahomqtt.Client) {
		c.handleConnect()
	})

	opts.SetConnectionLostHandler(func(_ pahomqtt.Client, err error) {
		c.handleDisconnect(err)
	})

	// Create and connect
	c.client = pahomqtt.NewClient(opts)
	token := c.client.Connect()

	// Bounded wait for the handshake: poll in 0.5s steps so the caller is
	// released promptly once the connection is up.
	completed := false
	for i := 0; i < connectPollAttempts; i++ {
		if token.WaitTimeout(connectPollInterval) {
			completed = true
			break
		}
	}
	if !completed {
		return nil, fmt.Errorf("%w: timeout after %v", ErrConnectionFailed,
			connectPollInterval*connectPollAttempts)
	}
	if err := token.Error(); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrConnectionFailed, err)
	}

	// Set connected state immediately after successful connection.
	// The OnConnectHandler callback runs asynchronously and may not have
	// executed yet, so we set it here to ensure IsConnected() returns true.
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	c.startRelay()

	return c, nil
}

// startRelay launches the relay consumer loop.
func (c *Client) startRelay() {
	ctx, cancel := context.WithCancel(context.Background())
	c.relayCancel = cancel
	go c.relay.Run(ctx, c.dispatch)
}

// enqueue is the shared paho callback for every broker subscription.
//
// It runs on the paho network goroutine and must never block: when the
// relay is saturated the event is dropped and a warning is raised.
func (c *Client) enqueue(_ pahomqtt.Client, msg pahomqtt.Message) {
	ev := Event{Topic: msg.Topic(), Payload: string(msg.Payload())}
	if !c.relay.Push(ev) {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("relay saturated, inbound message dropped",
				"topic", ev.Topic,
				"dropped_total", c.relay.Dropped(),
			)
		}
	}
}

// dispatch resolves one event against the registry and invokes every
// matching handler, in registration order. Runs on the relay consumer
// goroutine only.
func (c *Client) dispatch(ev Event) {
	c.subMu.RLock()
	subs := make([]subscription, len(c.subs))
	copy(subs, c.subs)
	c.subMu.RUnlock()

	for _, sub := range subs {
		if !TopicMatches(sub.pattern, ev.Topic) {
			continue
		}
		c.invoke(sub, ev)
	}
}

// invoke calls a single handler with panic recovery and error logging.
func (c *Client) invoke(sub subscription, ev Event) {
	defer func() {
		if r := recover(); r != nil {
			if logger := c.getLogger(); logger != nil {
				logger.Error("MQTT handler panic recovered",
					"pattern", sub.pattern,
					"topic", ev.Topic,
					"panic", r,
				)
			}
		}
	}()

	if err := sub.handler(ev.Topic, ev.Payload); err != nil {
		if logger := c.getLogger(); logger != nil {
			logger.Warn("MQTT handler returned error",
				"pattern", sub.pattern,
				"topic", ev.Topic,
				"error", err,
			)
		}
	}
}

// handleConnect is called when the connection is established.
func (c *Client) handleConnect() {
	c.connMu.Lock()
	c.connected = true
	c.connMu.Unlock()

	// Replay every registry entry against the broker
	c.restoreSubscriptions()

	// Publish online status
	c.publishOnlineStatus()

	// Notify callback if set
	c.callbackMu.RLock()
	callback := c.onConnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback()
	}
}

// handleDisconnect is called when the connection is lost.
// The registry is left intact so it can be replayed on reconnect.
func (c *Client) handleDisconnect(err error) {
	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	// Notify callback if set
	c.callbackMu.RLock()
	callback := c.onDisconnect
	c.callbackMu.RUnlock()
	if callback != nil {
		callback(err)
	}
}

// restoreSubscriptions re-issues every registered pattern after (re)connect.
func (c *Client) restoreSubscriptions() {
	c.subMu.RLock()
	defer c.subMu.RUnlock()

	for _, sub := range c.subs {
		// Re-subscribe (ignore errors during reconnection)
		c.client.Subscribe(sub.pattern, sub.qos, c.enqueue)
	}
}

// publishOnlineStatus publishes the bridge's online status (retained).
func (c *Client) publishOnlineStatus() {
	topic := StatusTopic(c.namespace, c.cfg.Broker.ClientID)
	payload := buildOnlinePayload(c.cfg.Broker.ClientID)
	c.client.Publish(topic, byte(c.cfg.QoS), true, payload)
}

// Close gracefully disconnects from the MQTT broker. It is idempotent.
//
// It performs:
//  1. Cancels the relay consumer loop and waits (bounded) for its exit,
//     so no handler runs against a torn-down transport
//  2. Publishes graceful offline status (different from the LWT payload)
//  3. Disconnects from the broker
//
// Returns:
//   - error: If disconnect fails (already-closed is not an error)
func (c *Client) Close() error {
	// Stop the consumer first: after Close returns, no handler may run.
	if c.relayCancel != nil {
		c.relayCancel()
		select {
		case <-c.relay.Done():
		case <-time.After(relayStopGrace):
			if logger := c.getLogger(); logger != nil {
				logger.Warn("relay consumer did not exit within grace period")
			}
		}
	}

	if c.client == nil {
		return nil
	}

	// Check if connected before trying to publish
	if c.IsConnected() {
		// Publish graceful shutdown status
		topic := StatusTopic(c.namespace, c.cfg.Broker.ClientID)
		payload := buildOfflinePayload(c.cfg.Broker.ClientID)
		token := c.client.Publish(topic, byte(c.cfg.QoS), true, payload)
		token.WaitTimeout(defaultPublishTimeout)
	}

	// Disconnect with quiesce period for pending operations
	c.client.Disconnect(defaultDisconnectQuiesce)

	c.connMu.Lock()
	c.connected = false
	c.connMu.Unlock()

	return nil
}

// HealthCheck verifies the MQTT connection is alive.
//
// Parameters:
//   - ctx: Context for timeout/cancellation
//
// Returns:
//   - error: nil if healthy, error describing the issue otherwise
func (c *Client) HealthCheck(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return fmt.Errorf("mqtt health check: %w", ctx.Err())
	default:
	}

	if !c.IsConnected() {
		return ErrNotConnected
	}

	return nil
}

// IsConnected returns the current connection state.
func (c *Client) IsConnected() bool {
	c.connMu.RLock()
	defer c.connMu.RUnlock()
	return c.connected && c.client.IsConnected()
}

// DroppedEvents returns the number of inbound events dropped under relay
// saturation. Diagnostic only; there is no redelivery.
func (c *Client) DroppedEvents() uint64 {
	return c.relay.Dropped()
}

// SetOnConnect sets a callback to be invoked when connection is established.
// This is called on initial connect and on every reconnect.
func (c *Client) SetOnConnect(callback func()) {
	c.callbackMu.Lock()
	c.onConnect = callback
	c.callbackMu.Unlock()
}

// SetOnDisconnect sets a callback to be invoked when connection is lost.
// The error parameter describes why the connection was lost.
func (c *Client) SetOnDisconnect(callback func(err error)) {
	c.callbackMu.Lock()
	c.onDisconnect = callback
	c.callbackMu.Unlock()
}

// SetLogger sets a logger for error and warning logging.
// If not set, handler errors and relay drops are silently ignored.
func (c *Client) SetLogger(logger Logger) {
	c.loggerMu.Lock()
	c.logger = logger
	c.loggerMu.Unlock()
}

// getLogger returns the current logger (may be nil).
func (c *Client) getLogger() Logger {
	c.loggerMu.RLock()
	defer c.loggerMu.RUnlock()
	return c.logger
}
