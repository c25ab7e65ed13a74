package mqtt

import (
	"fmt"
)

// Subscribe registers a handler for messages matching a topic pattern.
//
// Patterns can include MQTT wildcards:
//   - + (single-level): "rusclimate/69/+/state/mode"
//   - # (multi-level, final segment only): "rusclimate/#"
//
// The registration is recorded first and survives reconnects: every entry
// is replayed against the broker on each successful (re)connect. If the
// client is currently connected the broker subscribe call is issued
// immediately; otherwise it is deferred until the next connect. Registering
// the same pattern again replaces the handler in place rather than
// duplicating the registration, so a message is delivered at most once
// per pattern.
//
// Handlers are invoked from the relay consumer goroutine, in registration
// order for each matching event.
//
// Parameters:
//   - pattern: The topic pattern to subscribe to
//   - qos: Maximum QoS level for received messages (0, 1, or 2)
//   - handler: Callback function invoked for each matching message
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
func (c *Client) Subscribe(pattern string, qos byte, handler MessageHandler) error {
	// Validate inputs
	if pattern == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if handler == nil {
		return fmt.Errorf("%w: handler cannot be nil", ErrSubscribeFailed)
	}

	// Record (or replace) the registry entry
	c.subMu.Lock()
	replaced := false
	for i := range c.subs {
		if c.subs[i].pattern == pattern {
			c.subs[i].qos = qos
			c.subs[i].handler = handler
			replaced = true
			break
		}
	}
	if !replaced {
		c.subs = append(c.subs, subscription{pattern: pattern, qos: qos, handler: handler})
	}
	c.subMu.Unlock()

	// Deferred: the entry is replayed on the next successful connect.
	if !c.IsConnected() {
		return nil
	}

	token := c.client.Subscribe(pattern, qos, c.enqueue)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrSubscribeFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrSubscribeFailed, err)
	}

	return nil
}

// Unsubscribe removes a registration and stops receiving messages for a pattern.
//
// After unsubscribing, the handler will no longer be called for new
// messages on this pattern. Events already queued in the relay at the
// moment of the call are still dispatched against the updated registry,
// so a just-removed handler is not invoked.
//
// Parameters:
//   - pattern: The exact pattern that was subscribed to
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
func (c *Client) Unsubscribe(pattern string) error {
	// Validate inputs
	if pattern == "" {
		return ErrInvalidTopic
	}

	// Remove from the registry
	c.subMu.Lock()
	for i := range c.subs {
		if c.subs[i].pattern == pattern {
			c.subs = append(c.subs[:i], c.subs[i+1:]...)
			break
		}
	}
	c.subMu.Unlock()

	if !c.IsConnected() {
		return nil
	}

	// Unsubscribe from broker
	token := c.client.Unsubscribe(pattern)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrUnsubscribeFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrUnsubscribeFailed, err)
	}

	return nil
}

// SubscriptionCount returns the number of registered patterns.
//
// This can be useful for monitoring and debugging.
func (c *Client) SubscriptionCount() int {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	return len(c.subs)
}

// HasSubscription checks if a registration exists for the given pattern.
//
// Note: This checks only the exact pattern string, not pattern matching.
func (c *Client) HasSubscription(pattern string) bool {
	c.subMu.RLock()
	defer c.subMu.RUnlock()
	for _, sub := range c.subs {
		if sub.pattern == pattern {
			return true
		}
	}
	return false
}
