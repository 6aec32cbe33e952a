package device

import (
	"context"
	"fmt"
	"testing"
)

func TestStateHistory_RecordAndRetrieve(t *testing.T) {
	db := openRepoDB(t)
	repo := NewSQLiteStateHistoryRepository(db.DB)
	ctx := context.Background()

	if err := repo.RecordStateChange(ctx, "lock", lockedState(true), SourceCommand); err != nil {
		t.Fatalf("RecordStateChange() error = %v", err)
	}
	if err := repo.RecordStateChange(ctx, "lock", lockedState(false), SourceSensor); err != nil {
		t.Fatalf("RecordStateChange() error = %v", err)
	}

	entries, err := repo.GetHistory(ctx, "lock", 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("GetHistory() len = %d, want 2", len(entries))
	}

	// Newest first
	if entries[0].Source != SourceSensor {
		t.Errorf("entries[0].Source = %q, want %q", entries[0].Source, SourceSensor)
	}
	if entries[0].State.LockUnlock == nil || entries[0].State.LockUnlock.IsLocked {
		t.Errorf("entries[0].State = %+v, want unlocked", entries[0].State.LockUnlock)
	}
	if entries[1].Source != SourceCommand {
		t.Errorf("entries[1].Source = %q, want %q", entries[1].Source, SourceCommand)
	}
}

func TestStateHistory_LimitClamped(t *testing.T) {
	db := openRepoDB(t)
	repo := NewSQLiteStateHistoryRepository(db.DB)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		locked := i%2 == 0
		if err := repo.RecordStateChange(ctx, "lock", lockedState(locked), SourceCommand); err != nil {
			t.Fatalf("RecordStateChange(%d) error = %v", i, err)
		}
	}

	tests := []struct {
		limit int
		want  int
	}{
		{limit: 0, want: 5},  // default applied, more than 5 recorded
		{limit: -1, want: 5}, // negative treated as default
		{limit: 3, want: 3},
		{limit: 500, want: 5}, // clamped to max, only 5 exist
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("limit_%d", tt.limit), func(t *testing.T) {
			entries, err := repo.GetHistory(ctx, "lock", tt.limit)
			if err != nil {
				t.Fatalf("GetHistory() error = %v", err)
			}
			if len(entries) != tt.want {
				t.Errorf("GetHistory(limit=%d) len = %d, want %d", tt.limit, len(entries), tt.want)
			}
		})
	}
}

func TestStateHistory_EmptyForUnknownDevice(t *testing.T) {
	db := openRepoDB(t)
	repo := NewSQLiteStateHistoryRepository(db.DB)

	entries, err := repo.GetHistory(context.Background(), "ghost", 10)
	if err != nil {
		t.Fatalf("GetHistory() error = %v", err)
	}
	if len(entries) != 0 {
		t.Errorf("GetHistory() len = %d, want 0", len(entries))
	}
}
