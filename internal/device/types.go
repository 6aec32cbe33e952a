package device

import "time"

// Trait identifies a device capability on the platform.
type Trait string

// Traits supported by this deployment. The state model is keyed by trait so
// additional traits (OnOff, StartStop, ...) can be added without reshaping
// stored records.
const (
	TraitLockUnlock Trait = "action.devices.traits.LockUnlock"
)

// Lock status values reported to the platform.
const (
	StatusSuccess   = "SUCCESS"
	StatusSecured   = "SECURED"
	StatusUnsecured = "UNSECURED"
	StatusJammed    = "JAMMED"
)

// LockUnlockState is the state of the LockUnlock trait.
type LockUnlockState struct {
	IsLocked bool   `json:"isLocked"`
	IsJammed bool   `json:"isJammed"`
	Online   bool   `json:"online"`
	Status   string `json:"status"`
}

// LockUnlockDelta is a partial update to a LockUnlockState. Nil fields are
// left untouched; set fields overwrite, last write wins per field. This is
// the explicit merge contract for concurrent writers.
type LockUnlockDelta struct {
	IsLocked *bool
	IsJammed *bool
	Online   *bool
	Status   *string
}

// Apply merges the delta into a copy of the given state and returns it.
func (d LockUnlockDelta) Apply(state LockUnlockState) LockUnlockState {
	if d.IsLocked != nil {
		state.IsLocked = *d.IsLocked
	}
	if d.IsJammed != nil {
		state.IsJammed = *d.IsJammed
	}
	if d.Online != nil {
		state.Online = *d.Online
	}
	if d.Status != nil {
		state.Status = *d.Status
	}
	return state
}

// TraitState is the complete state record for one device, keyed by trait.
// Only traits the device supports are populated.
type TraitState struct {
	LockUnlock *LockUnlockState `json:"LockUnlock,omitempty"`
}

// Clone returns an independent copy of the TraitState.
// Needed so cached records cannot be mutated by callers.
func (s TraitState) Clone() TraitState {
	cpy := TraitState{}
	if s.LockUnlock != nil {
		lock := *s.LockUnlock
		cpy.LockUnlock = &lock
	}
	return cpy
}

// Flatten returns the trait fields as a flat map in the shape the platform
// expects in QUERY responses and state reports.
func (s TraitState) Flatten() map[string]any {
	out := make(map[string]any)
	if s.LockUnlock != nil {
		out["isLocked"] = s.LockUnlock.IsLocked
		out["isJammed"] = s.LockUnlock.IsJammed
		out["online"] = s.LockUnlock.Online
		out["status"] = s.LockUnlock.Status
	}
	return out
}

// Source identifies what caused a state mutation.
type Source string

// Mutation sources.
const (
	// SourceCommand is a platform EXECUTE command.
	SourceCommand Source = "command"

	// SourceExternal is a direct HTTP state update (e.g. a sensor webhook).
	SourceExternal Source = "external"

	// SourceSensor is the MQTT sensor feed.
	SourceSensor Source = "sensor"

	// SourceSeed is the startup seeding of catalog devices.
	SourceSeed Source = "seed"
)

// Event describes one committed state mutation.
//
// Every committed write to the store produces exactly one Event per
// subscriber, delivered in commit order. State is the post-write snapshot.
type Event struct {
	DeviceID string
	State    TraitState
	Source   Source
	At       time.Time
}
