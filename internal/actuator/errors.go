package actuator

import "errors"

// Actuator errors.
var (
	// ErrDispatchFailed indicates the vendor request could not be built
	// or sent.
	ErrDispatchFailed = errors.New("actuator: dispatch failed")

	// ErrVendorRejected indicates the vendor returned a non-2xx response.
	ErrVendorRejected = errors.New("actuator: vendor rejected request")
)
