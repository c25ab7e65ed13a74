package breezer

import "errors"

// Domain-specific errors for breezer state handling.
// Use errors.Is() to check for these errors in calling code.
var (
	// ErrInvalidPayload is returned by the Ingest* operations when a wire
	// payload cannot be decoded. The previous state is always retained;
	// the error exists for observability, not control flow.
	ErrInvalidPayload = errors.New("breezer: invalid payload")

	// ErrUnknownTopic is returned when an inbound event arrives on a topic
	// outside the device's state topic set.
	ErrUnknownTopic = errors.New("breezer: unknown topic")
)
