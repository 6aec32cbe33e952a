package device

import "errors"

// Domain errors for the device package.
//
// These errors can be checked using errors.Is() for error handling:
//
//	if errors.Is(err, device.ErrDeviceNotFound) {
//	    // handle not found case
//	}
var (
	// ErrDeviceNotFound is returned when a device ID has no state record.
	ErrDeviceNotFound = errors.New("device: not found")

	// ErrInvalidDeviceID is returned when a device ID is empty.
	ErrInvalidDeviceID = errors.New("device: invalid id")

	// ErrTraitNotSupported is returned when an operation targets a trait the
	// device's state record does not carry.
	ErrTraitNotSupported = errors.New("device: trait not supported")

	// ErrStoreWrite is returned when persisting a state record fails.
	// Fatal to that device's command only, never to the whole batch.
	ErrStoreWrite = errors.New("device: store write failed")
)
