package mqtt

import "testing"

func TestTopics(t *testing.T) {
	topics := Topics{}

	if got := topics.DeviceState("lock"); got != "lockbridge/state/lock" {
		t.Errorf("DeviceState() = %q", got)
	}
	if got := topics.AllDeviceStates(); got != "lockbridge/state/+" {
		t.Errorf("AllDeviceStates() = %q", got)
	}
	if got := topics.SystemStatus(); got != "lockbridge/system/status" {
		t.Errorf("SystemStatus() = %q", got)
	}
}

func TestDeviceIDFromStateTopic(t *testing.T) {
	tests := []struct {
		name  string
		topic string
		want  string
	}{
		{name: "device topic", topic: "lockbridge/state/lock", want: "lock"},
		{name: "hyphenated id", topic: "lockbridge/state/front-door", want: "front-door"},
		{name: "nested topic", topic: "lockbridge/state/lock/extra", want: ""},
		{name: "system topic", topic: "lockbridge/system/status", want: ""},
		{name: "empty id", topic: "lockbridge/state/", want: ""},
		{name: "unrelated", topic: "other/state/lock", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DeviceIDFromStateTopic(tt.topic); got != tt.want {
				t.Errorf("DeviceIDFromStateTopic(%q) = %q, want %q", tt.topic, got, tt.want)
			}
		})
	}
}
