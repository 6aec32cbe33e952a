package device

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

// MockRepository is a test implementation of Repository.
type MockRepository struct {
	mu     sync.Mutex
	states map[string]TraitState
	// For testing error paths
	putErr error
}

func NewMockRepository() *MockRepository {
	return &MockRepository{
		states: make(map[string]TraitState),
	}
}

func (m *MockRepository) GetState(_ context.Context, id string) (TraitState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if state, ok := m.states[id]; ok {
		return state.Clone(), nil
	}
	return TraitState{}, ErrDeviceNotFound
}

func (m *MockRepository) ListStates(_ context.Context) (map[string]TraitState, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	states := make(map[string]TraitState, len(m.states))
	for id, state := range m.states {
		states[id] = state.Clone()
	}
	return states, nil
}

func (m *MockRepository) PutState(_ context.Context, id string, state TraitState) error {
	if m.putErr != nil {
		return m.putErr
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.states[id] = state.Clone()
	return nil
}

func lockedState(isLocked bool) TraitState {
	status := StatusUnsecured
	if isLocked {
		status = StatusSecured
	}
	return TraitState{
		LockUnlock: &LockUnlockState{
			IsLocked: isLocked,
			IsJammed: false,
			Online:   true,
			Status:   status,
		},
	}
}

func newTestStore(t *testing.T) (*Store, *MockRepository) {
	t.Helper()
	repo := NewMockRepository()
	store := NewStore(repo)
	if err := store.RefreshCache(context.Background()); err != nil {
		t.Fatalf("RefreshCache() error = %v", err)
	}
	return store, repo
}

func boolPtr(b bool) *bool    { return &b }
func strPtr(s string) *string { return &s }

func TestStore_GetState_NotFound(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.GetState(context.Background(), "ghost")
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("GetState() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestStore_MergeLockUnlock_PartialUpdate(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()
	repo.states["lock"] = lockedState(false)

	got, err := store.MergeLockUnlock(ctx, "lock", LockUnlockDelta{IsLocked: boolPtr(true)}, SourceCommand)
	if err != nil {
		t.Fatalf("MergeLockUnlock() error = %v", err)
	}

	if !got.LockUnlock.IsLocked {
		t.Error("IsLocked = false, want true")
	}
	// Untouched fields survive the merge
	if !got.LockUnlock.Online {
		t.Error("Online = false, want true (preserved)")
	}
	if got.LockUnlock.Status != StatusUnsecured {
		t.Errorf("Status = %q, want %q (preserved)", got.LockUnlock.Status, StatusUnsecured)
	}

	// Read-after-write: an immediate read observes the merge
	state, err := store.GetState(ctx, "lock")
	if err != nil {
		t.Fatalf("GetState() error = %v", err)
	}
	if !state.LockUnlock.IsLocked {
		t.Error("GetState after merge: IsLocked = false, want true")
	}
}

func TestStore_MergeLockUnlock_NotFound(t *testing.T) {
	store, _ := newTestStore(t)

	_, err := store.MergeLockUnlock(context.Background(), "ghost", LockUnlockDelta{IsLocked: boolPtr(true)}, SourceCommand)
	if !errors.Is(err, ErrDeviceNotFound) {
		t.Errorf("MergeLockUnlock() error = %v, want ErrDeviceNotFound", err)
	}
}

func TestStore_MergeLockUnlock_WriteFailure(t *testing.T) {
	store, repo := newTestStore(t)
	repo.states["lock"] = lockedState(false)
	repo.putErr = errors.New("disk full")

	_, err := store.MergeLockUnlock(context.Background(), "lock", LockUnlockDelta{IsLocked: boolPtr(true)}, SourceCommand)
	if !errors.Is(err, ErrStoreWrite) {
		t.Errorf("MergeLockUnlock() error = %v, want ErrStoreWrite", err)
	}

	// The cache must not have absorbed the failed write.
	state, getErr := store.GetState(context.Background(), "lock")
	if getErr != nil {
		t.Fatalf("GetState() error = %v", getErr)
	}
	if state.LockUnlock.IsLocked {
		t.Error("IsLocked = true after failed write, want false")
	}
}

func TestStore_ReplaceLockUnlock_UpsertsMissingRecord(t *testing.T) {
	store, _ := newTestStore(t)

	got, err := store.ReplaceLockUnlock(context.Background(), "lock", LockUnlockState{
		IsLocked: true,
		Online:   true,
		Status:   StatusSecured,
	}, SourceExternal)
	if err != nil {
		t.Fatalf("ReplaceLockUnlock() error = %v", err)
	}
	if !got.LockUnlock.IsLocked {
		t.Error("IsLocked = false, want true")
	}
}

func TestStore_Subscribe_ExactlyOnePerMutation(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()
	repo.states["lock"] = lockedState(false)

	events, cancel := store.Subscribe()
	defer cancel()

	if _, err := store.MergeLockUnlock(ctx, "lock", LockUnlockDelta{IsLocked: boolPtr(true)}, SourceCommand); err != nil {
		t.Fatalf("MergeLockUnlock() error = %v", err)
	}
	if _, err := store.ReplaceLockUnlock(ctx, "lock", LockUnlockState{IsLocked: false, Online: true, Status: StatusUnsecured}, SourceSensor); err != nil {
		t.Fatalf("ReplaceLockUnlock() error = %v", err)
	}

	first := receiveEvent(t, events)
	if first.DeviceID != "lock" || !first.State.LockUnlock.IsLocked || first.Source != SourceCommand {
		t.Errorf("first event = %+v, want lock locked from command", first)
	}

	second := receiveEvent(t, events)
	if second.State.LockUnlock.IsLocked || second.Source != SourceSensor {
		t.Errorf("second event = %+v, want lock unlocked from sensor", second)
	}

	// No third event: two mutations, exactly two deliveries.
	select {
	case ev := <-events:
		t.Errorf("unexpected extra event: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestStore_Subscribe_CancelClosesChannel(t *testing.T) {
	store, _ := newTestStore(t)

	events, cancel := store.Subscribe()
	cancel()

	select {
	case _, ok := <-events:
		if ok {
			t.Error("expected closed channel after cancel")
		}
	case <-time.After(time.Second):
		t.Error("channel not closed after cancel")
	}
}

func TestStore_ConcurrentWrites_IsolatedPerDevice(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()
	repo.states["front"] = lockedState(false)
	repo.states["back"] = lockedState(false)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if _, err := store.MergeLockUnlock(ctx, "front", LockUnlockDelta{IsLocked: boolPtr(true), Status: strPtr(StatusSecured)}, SourceCommand); err != nil {
			t.Errorf("front merge error = %v", err)
		}
	}()
	go func() {
		defer wg.Done()
		if _, err := store.MergeLockUnlock(ctx, "back", LockUnlockDelta{IsLocked: boolPtr(false), Status: strPtr(StatusUnsecured)}, SourceCommand); err != nil {
			t.Errorf("back merge error = %v", err)
		}
	}()
	wg.Wait()

	front, _ := store.GetState(ctx, "front")
	back, _ := store.GetState(ctx, "back")
	if !front.LockUnlock.IsLocked {
		t.Error("front.IsLocked = false, want true")
	}
	if back.LockUnlock.IsLocked {
		t.Error("back.IsLocked = true, want false")
	}
}

func TestStore_Seed_OnlyMissing(t *testing.T) {
	store, repo := newTestStore(t)
	ctx := context.Background()
	repo.states["lock"] = lockedState(true)

	events, cancel := store.Subscribe()
	defer cancel()

	if err := store.Seed(ctx, []string{"lock", "side-door"}); err != nil {
		t.Fatalf("Seed() error = %v", err)
	}

	// Existing record untouched
	state, err := store.GetState(ctx, "lock")
	if err != nil {
		t.Fatalf("GetState(lock) error = %v", err)
	}
	if !state.LockUnlock.IsLocked {
		t.Error("seed overwrote existing record")
	}

	// Missing record created with defaults
	seeded, err := store.GetState(ctx, "side-door")
	if err != nil {
		t.Fatalf("GetState(side-door) error = %v", err)
	}
	if seeded.LockUnlock == nil || seeded.LockUnlock.IsLocked {
		t.Errorf("seeded state = %+v, want unlocked default", seeded.LockUnlock)
	}

	// Seeding fires no change events
	select {
	case ev := <-events:
		t.Errorf("unexpected event from seed: %+v", ev)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestTraitState_CloneIsIndependent(t *testing.T) {
	orig := lockedState(true)
	cpy := orig.Clone()
	cpy.LockUnlock.IsLocked = false

	if !orig.LockUnlock.IsLocked {
		t.Error("mutating clone affected original")
	}
}

func receiveEvent(t *testing.T, events <-chan Event) Event {
	t.Helper()
	select {
	case ev := <-events:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return Event{}
	}
}
