package fulfillment

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/nerrad567/lockbridge/internal/device"
	"github.com/nerrad567/lockbridge/internal/infrastructure/config"
)

// recordingActuator captures Dispatch calls for assertions.
type recordingActuator struct {
	mu    sync.Mutex
	calls []actuatorCall
}

type actuatorCall struct {
	deviceID string
	lock     bool
}

func (a *recordingActuator) Dispatch(deviceID string, lock bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.calls = append(a.calls, actuatorCall{deviceID: deviceID, lock: lock})
}

func (a *recordingActuator) Calls() []actuatorCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]actuatorCall(nil), a.calls...)
}

// memoryRepository is an in-memory device.Repository for service tests.
type memoryRepository struct {
	mu     sync.Mutex
	states map[string]device.TraitState
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{states: make(map[string]device.TraitState)}
}

func (m *memoryRepository) GetState(_ context.Context, id string) (device.TraitState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if state, ok := m.states[id]; ok {
		return state.Clone(), nil
	}
	return device.TraitState{}, device.ErrDeviceNotFound
}

func (m *memoryRepository) ListStates(_ context.Context) (map[string]device.TraitState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	states := make(map[string]device.TraitState, len(m.states))
	for id, state := range m.states {
		states[id] = state.Clone()
	}
	return states, nil
}

func (m *memoryRepository) PutState(_ context.Context, id string, state device.TraitState) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[id] = state.Clone()
	return nil
}

func testCatalog() device.Catalog {
	return device.CatalogFromConfig([]config.DeviceConfig{
		{
			ID:           "lock",
			Type:         "action.devices.types.LOCK",
			Traits:       []string{"action.devices.traits.LockUnlock"},
			Name:         "Front Door",
			DefaultNames: []string{"Smart Lock"},
			Manufacturer: "Yale",
			Model:        "yale-lock",
		},
	})
}

func newTestService(t *testing.T) (*Service, *device.Store, *recordingActuator) {
	t.Helper()

	repo := newMemoryRepository()
	store := device.NewStore(repo)
	if err := store.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	if err := store.Seed(context.Background(), []string{"lock"}); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	act := &recordingActuator{}
	svc := New(Deps{
		Store:       store,
		Catalog:     testCatalog(),
		Actuator:    act,
		AgentUserID: "123",
	})
	return svc, store, act
}

func mustPayload(t *testing.T, v any) json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	return raw
}

func TestHandle_NoInputs(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Handle(context.Background(), Request{RequestID: "r1"})
	if !errors.Is(err, ErrNoInputs) {
		t.Errorf("Handle() error = %v, want ErrNoInputs", err)
	}
}

func TestHandle_UnknownIntent(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Handle(context.Background(), Request{
		RequestID: "r1",
		Inputs:    []Input{{Intent: "action.devices.REBOOT"}},
	})
	if !errors.Is(err, ErrUnknownIntent) {
		t.Errorf("Handle() error = %v, want ErrUnknownIntent", err)
	}
}

func TestHandle_Sync(t *testing.T) {
	svc, _, _ := newTestService(t)

	resp, err := svc.Handle(context.Background(), Request{
		RequestID: "r1",
		Inputs:    []Input{{Intent: IntentSync}},
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}
	if resp.RequestID != "r1" {
		t.Errorf("RequestID = %q, want r1", resp.RequestID)
	}

	payload, ok := resp.Payload.(SyncPayload)
	if !ok {
		t.Fatalf("Payload type = %T, want SyncPayload", resp.Payload)
	}
	if payload.AgentUserID != "123" {
		t.Errorf("AgentUserID = %q, want 123", payload.AgentUserID)
	}
	if len(payload.Devices) != 1 {
		t.Fatalf("Devices len = %d, want 1", len(payload.Devices))
	}
	d := payload.Devices[0]
	if d.ID != "lock" || d.Type != "action.devices.types.LOCK" {
		t.Errorf("device = %+v, want lock descriptor", d)
	}
	if d.DeviceInfo.Manufacturer != "Yale" {
		t.Errorf("Manufacturer = %q, want Yale", d.DeviceInfo.Manufacturer)
	}
}

func TestHandle_Query_KnownAndUnknown(t *testing.T) {
	svc, _, _ := newTestService(t)

	resp, err := svc.Handle(context.Background(), Request{
		RequestID: "r2",
		Inputs: []Input{{
			Intent: IntentQuery,
			Payload: mustPayload(t, QueryRequestPayload{
				Devices: []DeviceRef{{ID: "lock"}, {ID: "ghost"}},
			}),
		}},
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	payload, ok := resp.Payload.(QueryPayload)
	if !ok {
		t.Fatalf("Payload type = %T, want QueryPayload", resp.Payload)
	}

	lock, ok := payload.Devices["lock"]
	if !ok {
		t.Fatal("missing entry for lock")
	}
	if lock["isLocked"] != false {
		t.Errorf("lock.isLocked = %v, want false", lock["isLocked"])
	}
	if lock["online"] != true {
		t.Errorf("lock.online = %v, want true", lock["online"])
	}

	ghost, ok := payload.Devices["ghost"]
	if !ok {
		t.Fatal("missing entry for ghost")
	}
	if ghost["status"] != StatusError || ghost["errorCode"] != ErrorCodeDeviceNotFound {
		t.Errorf("ghost entry = %v, want ERROR/deviceNotFound", ghost)
	}
}

func executeRequest(t *testing.T, deviceIDs []string, command string, lock bool) Request {
	t.Helper()

	refs := make([]DeviceRef, 0, len(deviceIDs))
	for _, id := range deviceIDs {
		refs = append(refs, DeviceRef{ID: id})
	}
	return Request{
		RequestID: "r3",
		Inputs: []Input{{
			Intent: IntentExecute,
			Payload: mustPayload(t, ExecuteRequestPayload{
				Commands: []Command{{
					Devices: refs,
					Execution: []Execution{{
						Command: command,
						Params:  mustPayload(t, LockUnlockParams{Lock: lock}),
					}},
				}},
			}),
		}},
	}
}

func TestHandle_Execute_Lock(t *testing.T) {
	svc, store, act := newTestService(t)
	ctx := context.Background()

	resp, err := svc.Handle(ctx, executeRequest(t, []string{"lock"}, CommandLockUnlock, true))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	payload, ok := resp.Payload.(ExecutePayload)
	if !ok {
		t.Fatalf("Payload type = %T, want ExecutePayload", resp.Payload)
	}
	if len(payload.Commands) != 1 {
		t.Fatalf("Commands len = %d, want 1", len(payload.Commands))
	}

	result := payload.Commands[0]
	if result.Status != StatusSuccess {
		t.Errorf("Status = %q, want SUCCESS (errorCode=%q)", result.Status, result.ErrorCode)
	}
	if len(result.IDs) != 1 || result.IDs[0] != "lock" {
		t.Errorf("IDs = %v, want [lock]", result.IDs)
	}
	if result.States["isLocked"] != true {
		t.Errorf("States.isLocked = %v, want true", result.States["isLocked"])
	}
	if result.States["online"] != true {
		t.Errorf("States.online = %v, want true", result.States["online"])
	}

	// The store committed before the response was built.
	state, err := store.GetState(ctx, "lock")
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if !state.LockUnlock.IsLocked {
		t.Error("store.IsLocked = false, want true")
	}

	// Actuation dispatched once with the lock flag.
	calls := act.Calls()
	if len(calls) != 1 {
		t.Fatalf("actuator calls = %d, want 1", len(calls))
	}
	if calls[0].deviceID != "lock" || !calls[0].lock {
		t.Errorf("actuator call = %+v, want lock=true on lock", calls[0])
	}
}

func TestHandle_Execute_UnknownDevice(t *testing.T) {
	svc, _, act := newTestService(t)

	resp, err := svc.Handle(context.Background(), executeRequest(t, []string{"ghost"}, CommandLockUnlock, true))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	payload := resp.Payload.(ExecutePayload)
	result := payload.Commands[0]
	if result.Status != StatusError || result.ErrorCode != ErrorCodeDeviceNotFound {
		t.Errorf("result = %+v, want ERROR/deviceNotFound", result)
	}
	if len(act.Calls()) != 0 {
		t.Errorf("actuator called for unknown device")
	}
}

func TestHandle_Execute_UnsupportedCommand(t *testing.T) {
	svc, _, _ := newTestService(t)

	resp, err := svc.Handle(context.Background(), executeRequest(t, []string{"lock"}, "action.devices.commands.OnOff", true))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	payload := resp.Payload.(ExecutePayload)
	result := payload.Commands[0]
	if result.Status != StatusError || result.ErrorCode != ErrorCodeFunctionNotSupported {
		t.Errorf("result = %+v, want ERROR/functionNotSupported", result)
	}
}

func TestHandle_Execute_PerDeviceResults(t *testing.T) {
	svc, _, _ := newTestService(t)

	resp, err := svc.Handle(context.Background(), executeRequest(t, []string{"lock", "ghost"}, CommandLockUnlock, true))
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	payload := resp.Payload.(ExecutePayload)
	if len(payload.Commands) != 2 {
		t.Fatalf("Commands len = %d, want 2 (one per device)", len(payload.Commands))
	}

	byID := make(map[string]CommandResult)
	for _, r := range payload.Commands {
		if len(r.IDs) != 1 {
			t.Fatalf("result IDs = %v, want exactly one id", r.IDs)
		}
		byID[r.IDs[0]] = r
	}

	if byID["lock"].Status != StatusSuccess {
		t.Errorf("lock result = %+v, want SUCCESS", byID["lock"])
	}
	if byID["ghost"].Status != StatusError || byID["ghost"].ErrorCode != ErrorCodeDeviceNotFound {
		t.Errorf("ghost result = %+v, want ERROR/deviceNotFound", byID["ghost"])
	}
}

func TestHandle_Execute_OppositeCommandsIsolated(t *testing.T) {
	repo := newMemoryRepository()
	store := device.NewStore(repo)
	if err := store.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	if err := store.Seed(context.Background(), []string{"front", "back"}); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}
	// Start the back door locked so its unlock is a real transition.
	if _, err := store.ReplaceLockUnlock(context.Background(), "back", device.LockUnlockState{
		IsLocked: true,
		Online:   true,
		Status:   device.StatusSuccess,
	}, device.SourceSensor); err != nil {
		t.Fatalf("ReplaceLockUnlock() error = %v", err)
	}

	svc := New(Deps{
		Store: store,
		Catalog: device.CatalogFromConfig([]config.DeviceConfig{
			{
				ID:     "front",
				Type:   "action.devices.types.LOCK",
				Traits: []string{"action.devices.traits.LockUnlock"},
				Name:   "Front Door",
			},
			{
				ID:     "back",
				Type:   "action.devices.types.LOCK",
				Traits: []string{"action.devices.traits.LockUnlock"},
				Name:   "Back Door",
			},
		}),
		Actuator:    &recordingActuator{},
		AgentUserID: "123",
	})

	// One request, opposite commands: lock the front door, unlock the back.
	req := Request{
		RequestID: "r6",
		Inputs: []Input{{
			Intent: IntentExecute,
			Payload: mustPayload(t, ExecuteRequestPayload{
				Commands: []Command{
					{
						Devices: []DeviceRef{{ID: "front"}},
						Execution: []Execution{{
							Command: CommandLockUnlock,
							Params:  mustPayload(t, LockUnlockParams{Lock: true}),
						}},
					},
					{
						Devices: []DeviceRef{{ID: "back"}},
						Execution: []Execution{{
							Command: CommandLockUnlock,
							Params:  mustPayload(t, LockUnlockParams{Lock: false}),
						}},
					},
				},
			}),
		}},
	}

	resp, err := svc.Handle(context.Background(), req)
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	payload := resp.Payload.(ExecutePayload)
	for _, r := range payload.Commands {
		if r.Status != StatusSuccess {
			t.Errorf("result %+v, want SUCCESS", r)
		}
	}

	// Each device's committed state reflects only its own command.
	front, err := store.GetState(context.Background(), "front")
	if err != nil {
		t.Fatalf("GetState(front) error = %v", err)
	}
	if front.LockUnlock == nil || !front.LockUnlock.IsLocked {
		t.Errorf("front state = %+v, want locked", front.LockUnlock)
	}

	back, err := store.GetState(context.Background(), "back")
	if err != nil {
		t.Fatalf("GetState(back) error = %v", err)
	}
	if back.LockUnlock == nil || back.LockUnlock.IsLocked {
		t.Errorf("back state = %+v, want unlocked", back.LockUnlock)
	}
}

func TestHandle_Disconnect(t *testing.T) {
	svc, _, _ := newTestService(t)

	resp, err := svc.Handle(context.Background(), Request{
		RequestID: "r4",
		Inputs:    []Input{{Intent: IntentDisconnect}},
	})
	if err != nil {
		t.Fatalf("Handle() error = %v", err)
	}

	// The platform expects a bare empty object with no envelope fields.
	body, err := json.Marshal(resp)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	if string(body) != "{}" {
		t.Errorf("response body = %s, want {}", body)
	}
}

func TestHandle_Query_InvalidPayload(t *testing.T) {
	svc, _, _ := newTestService(t)

	_, err := svc.Handle(context.Background(), Request{
		RequestID: "r5",
		Inputs:    []Input{{Intent: IntentQuery, Payload: json.RawMessage(`{"devices": "nope"}`)}},
	})
	if !errors.Is(err, ErrInvalidPayload) {
		t.Errorf("Handle() error = %v, want ErrInvalidPayload", err)
	}
}
