// Package fulfillment implements the smart home intent handlers.
//
// The platform delivers intents as JSON envelopes with a requestId and a
// single input. Four intents are supported:
//
//   - SYNC: enumerate the device catalog for account linking
//   - QUERY: report current state for a set of devices
//   - EXECUTE: apply lock/unlock commands and report per-device outcomes
//   - DISCONNECT: acknowledge account unlink
//
// State reads and writes go through the device store; vendor-side actuation
// is dispatched asynchronously and never blocks a response. Per-device
// failures (unknown device, unsupported command, storage errors) are
// reported inline in the response payload, not as HTTP errors.
package fulfillment
