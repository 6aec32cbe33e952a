package sensor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nerrad567/lockbridge/internal/device"
	"github.com/nerrad567/lockbridge/internal/infrastructure/config"
	"github.com/nerrad567/lockbridge/internal/infrastructure/mqtt"
)

// Logger is the logging interface used by the sensor feed.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// stateMessage is the JSON payload sensors publish on the per-device
// state topic. All fields are required; a partial message is rejected
// rather than guessed at.
type stateMessage struct {
	IsLocked *bool   `json:"isLocked"`
	IsJammed *bool   `json:"isJammed"`
	Online   *bool   `json:"online"`
	Status   *string `json:"status"`
}

// Feed consumes physical lock state from the MQTT broker and writes it
// into the device store, where it flows out through the normal report
// path like any other mutation.
type Feed struct {
	cfg    config.SensorConfig
	store  *device.Store
	client *mqtt.Client
	logger Logger
}

// New creates a sensor feed. Connect and subscribe happen in Start.
func New(cfg config.SensorConfig, store *device.Store, logger Logger) *Feed {
	if logger == nil {
		logger = noopLogger{}
	}
	return &Feed{
		cfg:    cfg,
		store:  store,
		logger: logger,
	}
}

// Start connects to the broker and subscribes to all device state topics.
func (f *Feed) Start(ctx context.Context) error {
	client, err := mqtt.Connect(f.cfg)
	if err != nil {
		return fmt.Errorf("sensor feed: %w", err)
	}
	f.client = client

	if l, ok := f.logger.(mqtt.Logger); ok {
		client.SetLogger(l)
	}

	topic := mqtt.Topics{}.AllDeviceStates()
	// #nosec G115 -- QoS validated by config to be 0..2
	if err := client.Subscribe(topic, byte(f.cfg.QoS), func(topic string, payload []byte) error {
		return f.handleMessage(ctx, topic, payload)
	}); err != nil {
		client.Close()
		return fmt.Errorf("sensor feed: %w", err)
	}

	f.logger.Info("sensor feed started", "topic", topic, "broker", f.cfg.Broker.Host)
	return nil
}

// Close unsubscribes from the state topics and disconnects from the broker.
func (f *Feed) Close() error {
	if f.client == nil {
		return nil
	}

	topic := mqtt.Topics{}.AllDeviceStates()
	if err := f.client.Unsubscribe(topic); err != nil && !errors.Is(err, mqtt.ErrNotConnected) {
		f.logger.Warn("sensor feed unsubscribe failed", "topic", topic, "error", err)
	}

	return f.client.Close()
}

// handleMessage applies one sensor state report to the store.
//
// The full snapshot replaces the device's LockUnlock state: sensors are
// the physical source of truth, so there is nothing to merge.
func (f *Feed) handleMessage(ctx context.Context, topic string, payload []byte) error {
	deviceID := mqtt.DeviceIDFromStateTopic(topic)
	if deviceID == "" {
		return fmt.Errorf("%w: %s", ErrUnexpectedTopic, topic)
	}

	var msg stateMessage
	if err := json.Unmarshal(payload, &msg); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if msg.IsLocked == nil || msg.IsJammed == nil || msg.Online == nil || msg.Status == nil {
		return fmt.Errorf("%w: missing fields", ErrInvalidPayload)
	}

	state := device.LockUnlockState{
		IsLocked: *msg.IsLocked,
		IsJammed: *msg.IsJammed,
		Online:   *msg.Online,
		Status:   *msg.Status,
	}

	if _, err := f.store.ReplaceLockUnlock(ctx, deviceID, state, device.SourceSensor); err != nil {
		return fmt.Errorf("sensor feed: store write: %w", err)
	}

	f.logger.Debug("sensor state applied", "device_id", deviceID, "is_locked", state.IsLocked)
	return nil
}
