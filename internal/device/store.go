package device

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Logger defines the logging interface used by the Store.
// This allows different logging implementations to be used.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// subscriberBuffer is the channel capacity handed to each subscriber.
const subscriberBuffer = 64

// Store is the shared device state store.
//
// It wraps a Repository with an in-memory cache and a change subscription.
// The cache makes reads after a committed write immediately consistent; the
// subscription delivers exactly one Event per committed mutation to every
// subscriber, in commit order, regardless of what caused the mutation
// (platform command, HTTP state update, MQTT sensor feed).
//
// Concurrency contract: per-device records are written atomically under a
// single writer lock. Concurrent writes to the same field have no defined
// order; last write wins, per field. Cross-device writes never interfere.
//
// All public methods are thread-safe.
type Store struct {
	repo    Repository
	cache   map[string]TraitState
	cacheMu sync.RWMutex // serialises writes, protects cache reads

	subs   map[int]*subscriber
	nextID int
	subMu  sync.Mutex

	logger Logger
}

// subscriber buffers events between the store's write path and a consumer.
//
// Writes append to an in-memory queue and never block; a pump goroutine
// forwards queued events to the consumer channel in order. The queue is
// unbounded so a slow consumer delays its own delivery without losing
// events or stalling writers.
type subscriber struct {
	mu     sync.Mutex
	cond   *sync.Cond
	queue  []Event
	closed bool

	ch   chan Event
	done chan struct{}
}

func newSubscriber() *subscriber {
	sub := &subscriber{
		ch:   make(chan Event, subscriberBuffer),
		done: make(chan struct{}),
	}
	sub.cond = sync.NewCond(&sub.mu)
	return sub
}

// push enqueues an event. Safe to call after stop (the event is discarded).
func (sub *subscriber) push(ev Event) {
	sub.mu.Lock()
	if !sub.closed {
		sub.queue = append(sub.queue, ev)
		sub.cond.Signal()
	}
	sub.mu.Unlock()
}

// pump forwards queued events to the consumer channel until stopped.
func (sub *subscriber) pump() {
	for {
		sub.mu.Lock()
		for len(sub.queue) == 0 && !sub.closed {
			sub.cond.Wait()
		}
		if sub.closed && len(sub.queue) == 0 {
			sub.mu.Unlock()
			close(sub.ch)
			return
		}
		ev := sub.queue[0]
		sub.queue = sub.queue[1:]
		sub.mu.Unlock()

		select {
		case sub.ch <- ev:
		case <-sub.done:
			close(sub.ch)
			return
		}
	}
}

// stop ends delivery. Events not yet consumed are discarded.
func (sub *subscriber) stop() {
	sub.mu.Lock()
	if sub.closed {
		sub.mu.Unlock()
		return
	}
	sub.closed = true
	sub.queue = nil
	sub.cond.Signal()
	sub.mu.Unlock()
	close(sub.done)
}

// NewStore creates a new device state store.
// The repository is used for persistence; the store adds caching and
// change notification.
func NewStore(repo Repository) *Store {
	return &Store{
		repo:   repo,
		cache:  make(map[string]TraitState),
		subs:   make(map[int]*subscriber),
		logger: noopLogger{},
	}
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// RefreshCache reloads all state records from the repository into the cache.
// This should be called on application startup.
func (s *Store) RefreshCache(ctx context.Context) error {
	states, err := s.repo.ListStates(ctx)
	if err != nil {
		return fmt.Errorf("loading device states: %w", err)
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	s.cache = make(map[string]TraitState, len(states))
	for id, state := range states {
		s.cache[id] = state.Clone()
	}

	s.logger.Info("device state cache refreshed", "count", len(states))
	return nil
}

// Seed ensures every catalog device has a state record, creating a default
// locked=false record where one is missing. Seeding fires no change events:
// it establishes initial records rather than reporting a state transition.
func (s *Store) Seed(ctx context.Context, deviceIDs []string) error {
	for _, id := range deviceIDs {
		_, err := s.GetState(ctx, id)
		if err == nil {
			continue
		}

		state := TraitState{
			LockUnlock: &LockUnlockState{
				IsLocked: false,
				IsJammed: false,
				Online:   true,
				Status:   StatusSuccess,
			},
		}
		if err := s.repo.PutState(ctx, id, state); err != nil {
			return fmt.Errorf("seeding state for %s: %w", id, err)
		}

		s.cacheMu.Lock()
		s.cache[id] = state.Clone()
		s.cacheMu.Unlock()

		s.logger.Info("seeded device state", "device_id", id)
	}
	return nil
}

// GetState retrieves the state record for a device.
// Returns ErrDeviceNotFound if the device has no record.
// The returned state is a copy; callers can safely modify it.
func (s *Store) GetState(ctx context.Context, id string) (TraitState, error) {
	// Try cache first
	s.cacheMu.RLock()
	cached, ok := s.cache[id]
	s.cacheMu.RUnlock()

	if ok {
		return cached.Clone(), nil
	}

	// Fall back to repository (might be a record written out of band)
	state, err := s.repo.GetState(ctx, id)
	if err != nil {
		return TraitState{}, err
	}

	s.cacheMu.Lock()
	s.cache[id] = state.Clone()
	s.cacheMu.Unlock()

	return state, nil
}

// MergeLockUnlock applies a partial update to a device's LockUnlock trait.
//
// The delta is merged into the existing record field by field; unset fields
// are preserved. Returns ErrDeviceNotFound if the device has no record and
// ErrStoreWrite (wrapped) if persistence fails. On success exactly one Event
// carrying the post-write snapshot is delivered to every subscriber.
func (s *Store) MergeLockUnlock(ctx context.Context, id string, delta LockUnlockDelta, source Source) (TraitState, error) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	current, err := s.currentLocked(ctx, id)
	if err != nil {
		return TraitState{}, err
	}
	if current.LockUnlock == nil {
		return TraitState{}, fmt.Errorf("%w: LockUnlock on %s", ErrTraitNotSupported, id)
	}

	next := current.Clone()
	merged := delta.Apply(*next.LockUnlock)
	next.LockUnlock = &merged

	if err := s.repo.PutState(ctx, id, next); err != nil {
		return TraitState{}, fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	s.cache[id] = next.Clone()

	s.publish(Event{DeviceID: id, State: next.Clone(), Source: source, At: time.Now().UTC()})
	return next, nil
}

// ReplaceLockUnlock overwrites a device's LockUnlock trait with a full state.
//
// Unlike MergeLockUnlock this is an upsert: a missing record is created.
// This is the entry path for externally-sourced state (sensor callbacks),
// which must be able to establish state for a device the bridge has not
// written yet. Fires exactly one Event on success.
func (s *Store) ReplaceLockUnlock(ctx context.Context, id string, state LockUnlockState, source Source) (TraitState, error) {
	if id == "" {
		return TraitState{}, ErrInvalidDeviceID
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()

	next := TraitState{}
	if current, err := s.currentLocked(ctx, id); err == nil {
		next = current.Clone()
	}
	lock := state
	next.LockUnlock = &lock

	if err := s.repo.PutState(ctx, id, next); err != nil {
		return TraitState{}, fmt.Errorf("%w: %w", ErrStoreWrite, err)
	}
	s.cache[id] = next.Clone()

	s.publish(Event{DeviceID: id, State: next.Clone(), Source: source, At: time.Now().UTC()})
	return next, nil
}

// currentLocked returns the current record for id. Caller must hold cacheMu.
func (s *Store) currentLocked(ctx context.Context, id string) (TraitState, error) {
	if cached, ok := s.cache[id]; ok {
		return cached, nil
	}
	state, err := s.repo.GetState(ctx, id)
	if err != nil {
		return TraitState{}, err
	}
	s.cache[id] = state.Clone()
	return state, nil
}

// Subscribe registers a change subscriber.
//
// Every committed mutation after the call delivers exactly one Event on the
// returned channel, in commit order. Delivery never blocks writers; events
// queue in memory until the consumer drains them. The returned function
// unsubscribes, after which the channel is closed and undelivered events
// are discarded.
func (s *Store) Subscribe() (<-chan Event, func()) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	id := s.nextID
	s.nextID++
	sub := newSubscriber()
	s.subs[id] = sub
	go sub.pump()

	cancel := func() {
		s.subMu.Lock()
		target, ok := s.subs[id]
		if ok {
			delete(s.subs, id)
		}
		s.subMu.Unlock()
		if ok {
			target.stop()
		}
	}
	return sub.ch, cancel
}

// publish delivers an event to every subscriber. Caller holds cacheMu, which
// keeps event order identical to commit order across subscribers.
func (s *Store) publish(ev Event) {
	s.subMu.Lock()
	defer s.subMu.Unlock()

	for _, sub := range s.subs {
		sub.push(ev)
	}
}
