package mqtt

import "fmt"

// TopicPrefix is the base for all Lock Bridge topics.
const TopicPrefix = "lockbridge"

// Topics provides builders for Lock Bridge MQTT topics.
//
// The namespace is deliberately small: sensors publish physical lock state
// per device, and the bridge publishes its own liveness.
//
//	lockbridge/state/{device-id}   sensor state reports (JSON)
//	lockbridge/system/status       bridge online/offline (retained)
type Topics struct{}

// DeviceState returns the state topic for one device.
func (Topics) DeviceState(deviceID string) string {
	return fmt.Sprintf("%s/state/%s", TopicPrefix, deviceID)
}

// AllDeviceStates returns the wildcard pattern matching every device's
// state topic.
func (Topics) AllDeviceStates() string {
	return fmt.Sprintf("%s/state/+", TopicPrefix)
}

// SystemStatus returns the bridge liveness topic.
func (Topics) SystemStatus() string {
	return fmt.Sprintf("%s/system/status", TopicPrefix)
}

// DeviceIDFromStateTopic extracts the device ID from a state topic.
// Returns "" when the topic is not a device state topic.
func DeviceIDFromStateTopic(topic string) string {
	prefix := TopicPrefix + "/state/"
	if len(topic) <= len(prefix) || topic[:len(prefix)] != prefix {
		return ""
	}
	id := topic[len(prefix):]
	// A nested topic (extra slash) is not a device state topic.
	for i := 0; i < len(id); i++ {
		if id[i] == '/' {
			return ""
		}
	}
	return id
}
