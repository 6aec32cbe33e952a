// Package mqtt provides the broker connection for the sensor feed.
//
// It wraps paho.mqtt.golang with connection management, subscription
// tracking and automatic reconnection. The topic namespace is small:
// sensors publish per-device state on lockbridge/state/{device-id}, and
// the bridge publishes its own liveness (with a Last Will for crash
// detection) on lockbridge/system/status.
package mqtt
