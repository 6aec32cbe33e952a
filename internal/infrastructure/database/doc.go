// Package database provides SQLite connection management for Lock Bridge.
//
// It handles:
//   - Opening the database with WAL mode and busy timeout pragmas
//   - Embedded SQL migrations (see the migrations package)
//   - Health checks and lifecycle management
//
// The database backs the device state store and the state change history.
// SQLite is configured for a single writer with concurrent readers, which
// matches the store's per-device write pattern.
//
// Usage:
//
//	db, err := database.Open(database.Config{Path: cfg.Database.Path, WALMode: true, BusyTimeout: 5})
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
package database
