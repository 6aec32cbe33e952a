// Package sensor ingests physical lock state from MQTT.
//
// Door sensors publish complete state snapshots on per-device topics. Each
// snapshot replaces the device's stored state, so an out-of-band change
// (manual thumb turn, key, jam) reaches the platform through the same
// report path as a voice command. The feed is optional; without a broker
// the bridge still serves fulfillment from its own state.
package sensor
