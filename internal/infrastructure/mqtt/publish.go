package mqtt

import (
	"fmt"
)

// Maximum payload size for MQTT messages.
// Breezer payloads are short ASCII decimals; anything near this limit
// indicates a bug upstream rather than a legitimate message.
const maxPayloadSize = 1 << 16 // 64KB

// Publish sends a message to the specified MQTT topic.
//
// Publish fails immediately with ErrNotConnected when the client is not
// connected; it never queues messages for later delivery. An empty payload
// is valid and is used as the state-request probe on the control topics.
//
// Parameters:
//   - topic: The topic to publish to (e.g., "rusclimate/69/<clientID>/control/mode")
//   - payload: The message payload (ASCII decimal for breezer topics)
//   - qos: Quality of Service level (0, 1, or 2)
//   - retained: Whether the broker should retain the message for new subscribers
//
// Returns:
//   - error: nil on success, or wrapped error describing the failure
func (c *Client) Publish(topic string, payload []byte, qos byte, retained bool) error {
	// Validate inputs
	if topic == "" {
		return ErrInvalidTopic
	}
	if qos > maxQoS {
		return ErrInvalidQoS
	}
	if len(payload) > maxPayloadSize {
		return fmt.Errorf("%w: payload size %d exceeds maximum %d bytes", ErrPublishFailed, len(payload), maxPayloadSize)
	}

	// Check connection state
	if !c.IsConnected() {
		return ErrNotConnected
	}

	// Publish with timeout
	token := c.client.Publish(topic, qos, retained, payload)
	if !token.WaitTimeout(defaultPublishTimeout) {
		return fmt.Errorf("%w: timeout after %v", ErrPublishFailed, defaultPublishTimeout)
	}
	if err := token.Error(); err != nil {
		return fmt.Errorf("%w: %w", ErrPublishFailed, err)
	}

	return nil
}

// PublishString is a convenience method that publishes a string payload.
//
// This is equivalent to calling Publish with []byte(payload).
func (c *Client) PublishString(topic string, payload string, qos byte, retained bool) error {
	return c.Publish(topic, []byte(payload), qos, retained)
}
