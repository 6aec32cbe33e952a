package homegraph

import "errors"

// HomeGraph client errors.
var (
	// ErrDisabled indicates the client is not configured to make calls.
	ErrDisabled = errors.New("homegraph: client disabled")

	// ErrRequestFailed indicates the request could not be built or sent.
	ErrRequestFailed = errors.New("homegraph: request failed")

	// ErrPlatformRejected indicates the platform returned a non-2xx response.
	ErrPlatformRejected = errors.New("homegraph: platform rejected request")
)
