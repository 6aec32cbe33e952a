package fulfillment

import "errors"

// Fulfillment errors. These surface malformed requests to the HTTP layer;
// per-device failures are reported inside the response payload instead.
var (
	// ErrNoInputs indicates a request with an empty inputs list.
	ErrNoInputs = errors.New("fulfillment: request has no inputs")

	// ErrUnknownIntent indicates an intent this service does not handle.
	ErrUnknownIntent = errors.New("fulfillment: unknown intent")

	// ErrInvalidPayload indicates a payload that could not be decoded for
	// its intent.
	ErrInvalidPayload = errors.New("fulfillment: invalid payload")
)
