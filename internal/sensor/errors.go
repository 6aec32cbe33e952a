package sensor

import "errors"

// Sensor feed errors.
var (
	// ErrInvalidPayload indicates a message that is not a complete state
	// snapshot.
	ErrInvalidPayload = errors.New("sensor: invalid state payload")

	// ErrUnexpectedTopic indicates a message on a topic that is not a
	// device state topic.
	ErrUnexpectedTopic = errors.New("sensor: unexpected topic")
)
