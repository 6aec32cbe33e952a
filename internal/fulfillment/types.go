package fulfillment

import (
	"encoding/json"

	"github.com/nerrad567/lockbridge/internal/device"
)

// Intents dispatched by the platform.
const (
	IntentSync       = "action.devices.SYNC"
	IntentQuery      = "action.devices.QUERY"
	IntentExecute    = "action.devices.EXECUTE"
	IntentDisconnect = "action.devices.DISCONNECT"
)

// Commands supported by this deployment.
const (
	CommandLockUnlock = "action.devices.commands.LockUnlock"
)

// Result statuses in EXECUTE responses.
const (
	StatusSuccess = "SUCCESS"
	StatusError   = "ERROR"
)

// Error codes returned in QUERY and EXECUTE responses.
const (
	ErrorCodeDeviceNotFound       = "deviceNotFound"
	ErrorCodeFunctionNotSupported = "functionNotSupported"
	ErrorCodeHardError            = "hardError"
)

// Request is the envelope of a fulfillment request. The platform sends a
// single input per request in practice, but the wire format is a list.
type Request struct {
	RequestID string  `json:"requestId"`
	Inputs    []Input `json:"inputs"`
}

// Input is one intent within a fulfillment request. Payload is decoded
// lazily because its shape depends on the intent.
type Input struct {
	Intent  string          `json:"intent"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Response is the envelope of a fulfillment response. A DISCONNECT intent
// returns the zero Response, which marshals as a bare empty object.
type Response struct {
	RequestID string `json:"requestId,omitempty"`
	Payload   any    `json:"payload,omitempty"`
}

// SyncPayload is the response payload for a SYNC intent.
type SyncPayload struct {
	AgentUserID string              `json:"agentUserId"`
	Devices     []device.Descriptor `json:"devices"`
}

// QueryRequestPayload is the request payload for a QUERY intent.
type QueryRequestPayload struct {
	Devices []DeviceRef `json:"devices"`
}

// DeviceRef identifies a device in a request payload.
type DeviceRef struct {
	ID string `json:"id"`
}

// QueryPayload is the response payload for a QUERY intent. Each entry is
// either the device's flattened trait state or an error record of the form
// {"status": "ERROR", "errorCode": "deviceNotFound"}.
type QueryPayload struct {
	Devices map[string]map[string]any `json:"devices"`
}

// ExecuteRequestPayload is the request payload for an EXECUTE intent.
type ExecuteRequestPayload struct {
	Commands []Command `json:"commands"`
}

// Command is one command group: a set of target devices and the executions
// to apply to each of them.
type Command struct {
	Devices   []DeviceRef `json:"devices"`
	Execution []Execution `json:"execution"`
}

// Execution is a single command invocation with its parameters.
type Execution struct {
	Command string          `json:"command"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// LockUnlockParams are the parameters of a LockUnlock command.
type LockUnlockParams struct {
	Lock bool `json:"lock"`
}

// ExecutePayload is the response payload for an EXECUTE intent.
type ExecutePayload struct {
	Commands []CommandResult `json:"commands"`
}

// CommandResult reports the outcome for one device. Results are never
// aggregated across devices: each device gets its own entry so a failure
// on one target cannot mask or clobber another's outcome.
type CommandResult struct {
	IDs       []string       `json:"ids"`
	Status    string         `json:"status"`
	States    map[string]any `json:"states,omitempty"`
	ErrorCode string         `json:"errorCode,omitempty"`
}
