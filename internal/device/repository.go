package device

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// Repository defines the interface for device state persistence.
// This abstraction allows for different implementations (SQLite, mock, etc.)
// and enables unit testing without database dependencies.
type Repository interface {
	// GetState retrieves the state record for a device.
	// Returns ErrDeviceNotFound if no record exists.
	GetState(ctx context.Context, id string) (TraitState, error)

	// ListStates retrieves all state records keyed by device ID.
	ListStates(ctx context.Context) (map[string]TraitState, error)

	// PutState inserts or replaces the state record for a device.
	PutState(ctx context.Context, id string, state TraitState) error
}

// SQLiteRepository implements Repository using SQLite.
// State records are stored as JSON in the device_states table.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new SQLite-backed repository.
// The db parameter should be an open SQLite connection.
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// GetState retrieves the state record for a device.
func (r *SQLiteRepository) GetState(ctx context.Context, id string) (TraitState, error) {
	var raw string
	err := r.db.QueryRowContext(ctx,
		"SELECT state FROM device_states WHERE device_id = ?", id,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return TraitState{}, ErrDeviceNotFound
		}
		return TraitState{}, fmt.Errorf("querying device state: %w", err)
	}

	var state TraitState
	if err := json.Unmarshal([]byte(raw), &state); err != nil {
		return TraitState{}, fmt.Errorf("decoding device state: %w", err)
	}
	return state, nil
}

// ListStates retrieves all state records keyed by device ID.
func (r *SQLiteRepository) ListStates(ctx context.Context) (map[string]TraitState, error) {
	rows, err := r.db.QueryContext(ctx, "SELECT device_id, state FROM device_states")
	if err != nil {
		return nil, fmt.Errorf("querying device states: %w", err)
	}
	defer rows.Close()

	states := make(map[string]TraitState)
	for rows.Next() {
		var id, raw string
		if err := rows.Scan(&id, &raw); err != nil {
			return nil, fmt.Errorf("scanning device state row: %w", err)
		}
		var state TraitState
		if err := json.Unmarshal([]byte(raw), &state); err != nil {
			return nil, fmt.Errorf("decoding state for %s: %w", id, err)
		}
		states[id] = state
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating device states: %w", err)
	}
	return states, nil
}

// PutState inserts or replaces the state record for a device.
func (r *SQLiteRepository) PutState(ctx context.Context, id string, state TraitState) error {
	if id == "" {
		return ErrInvalidDeviceID
	}

	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encoding device state: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO device_states (device_id, state, updated_at)
		VALUES (?, ?, ?)
		ON CONFLICT(device_id) DO UPDATE SET
			state = excluded.state,
			updated_at = excluded.updated_at`,
		id,
		string(raw),
		time.Now().UTC().Format(time.RFC3339Nano),
	)
	if err != nil {
		return fmt.Errorf("upserting device state: %w", err)
	}
	return nil
}
