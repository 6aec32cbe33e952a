// Package device provides the shared device state store for Lock Bridge.
//
// The store is the single source of truth for device trait state. Platform
// EXECUTE commands, direct HTTP state updates, and the MQTT sensor feed all
// write through it; QUERY reads from it; and every committed mutation fires
// exactly one change event, whichever path caused it. State reporting to the
// platform hangs off those events, so out-of-band changes are reported the
// same way command-driven ones are.
//
// # Key Types
//
//   - TraitState: per-device state keyed by trait (LockUnlock implemented)
//   - LockUnlockDelta: field-level partial update with explicit last-write-wins
//   - Store: cache + repository + change subscription
//   - Repository: persistence interface (SQLite implementation provided)
//   - Catalog / Descriptor: the static device declarations for SYNC
//   - StateHistoryRepository: local audit trail of mutations
//
// # Usage
//
//	repo := device.NewSQLiteRepository(db)
//	store := device.NewStore(repo)
//	store.SetLogger(log)
//	if err := store.RefreshCache(ctx); err != nil {
//	    return err
//	}
//
//	// Command path: partial merge
//	locked := true
//	store.MergeLockUnlock(ctx, "lock", device.LockUnlockDelta{IsLocked: &locked}, device.SourceCommand)
//
//	// Sensor path: full overwrite
//	store.ReplaceLockUnlock(ctx, "lock", device.LockUnlockState{IsLocked: true, Online: true, Status: device.StatusSuccess}, device.SourceSensor)
//
//	// Change subscription
//	events, cancel := store.Subscribe()
//	defer cancel()
//
// # Thread Safety
//
// All Store methods are safe for concurrent use. Writes are serialised;
// per-device records are updated atomically. Concurrent writes to the same
// field resolve last-write-wins, which is the documented contract rather
// than an accident of scheduling.
package device
