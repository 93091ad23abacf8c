// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package backup

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// Test Fixtures
// =============================================================================

// steppingClock returns a clock starting at start that advances by step on
// every call.
func steppingClock(start time.Time, step time.Duration) func() time.Time {
	current := start
	return func() time.Time {
		now := current
		current = current.Add(step)
		return now
	}
}

func newTestStore(t *testing.T, now func() time.Time) (*FileStore, string) {
	t.Helper()
	root := t.TempDir()
	store := NewFileStore(Config{
		Dir: filepath.Join(root, "backups"),
		Now: now,
	})
	return store, root
}

func writeLive(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(content), 0640))
}

var baseTime = time.Date(2025, 3, 1, 10, 15, 0, 0, time.Local)

// =============================================================================
// Capture Tests
// =============================================================================

func TestCapture_MissingSourceIsNoop(t *testing.T) {
	store, root := newTestStore(t, steppingClock(baseTime, time.Second))

	id, err := store.Capture("bookings.json", filepath.Join(root, "bookings.json"))

	require.NoError(t, err)
	assert.Empty(t, id)
	_, statErr := os.Stat(store.Dir())
	assert.True(t, os.IsNotExist(statErr), "backup dir should not be created for a no-op")
}

func TestCapture_CopiesContentWithTimestampedName(t *testing.T) {
	store, root := newTestStore(t, steppingClock(baseTime, time.Second))
	live := filepath.Join(root, "trains.csv")
	writeLive(t, live, "Train No,Train Name\n101,Express A1\n")

	id, err := store.Capture("trains.csv", live)

	require.NoError(t, err)
	assert.Equal(t, SnapshotID("trains.csv_20250301_101500.bak"), id)

	data, err := store.Read(id)
	require.NoError(t, err)
	assert.Equal(t, "Train No,Train Name\n101,Express A1\n", string(data))

	// The live file is copied, not moved.
	_, err = os.Stat(live)
	assert.NoError(t, err)
}

func TestCapture_SameSecondGetsSuffix(t *testing.T) {
	store, root := newTestStore(t, func() time.Time { return baseTime })
	live := filepath.Join(root, "bookings.json")
	writeLive(t, live, "[]")

	first, err := store.Capture("bookings.json", live)
	require.NoError(t, err)
	second, err := store.Capture("bookings.json", live)
	require.NoError(t, err)
	third, err := store.Capture("bookings.json", live)
	require.NoError(t, err)

	assert.Equal(t, SnapshotID("bookings.json_20250301_101500.bak"), first)
	assert.Equal(t, SnapshotID("bookings.json_20250301_101500_001.bak"), second)
	assert.Equal(t, SnapshotID("bookings.json_20250301_101500_002.bak"), third)

	latest, ok, err := store.Latest("bookings.json")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, third, latest)
}

func TestCapture_UnwritableBackupDirFails(t *testing.T) {
	root := t.TempDir()
	blocker := filepath.Join(root, "backups")
	writeLive(t, blocker, "not a directory")
	store := NewFileStore(Config{Dir: blocker})

	live := filepath.Join(root, "bookings.json")
	writeLive(t, live, "[]")

	_, err := store.Capture("bookings.json", live)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackupFailed)
}

func TestCapture_UnreadableSourceFails(t *testing.T) {
	store, root := newTestStore(t, steppingClock(baseTime, time.Second))
	live := filepath.Join(root, "bookings.json")
	require.NoError(t, os.Mkdir(live, 0750))

	_, err := store.Capture("bookings.json", live)

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrBackupFailed)

	snapshots, listErr := store.List("bookings.json")
	require.NoError(t, listErr)
	assert.Empty(t, snapshots, "partial snapshot should be removed")
}

// =============================================================================
// List / Latest Tests
// =============================================================================

func TestList_NewestFirstAndFiltered(t *testing.T) {
	store, root := newTestStore(t, steppingClock(baseTime, time.Minute))
	live := filepath.Join(root, "trains.csv")
	for _, content := range []string{"v1", "v2", "v3"} {
		writeLive(t, live, content)
		_, err := store.Capture("trains.csv", live)
		require.NoError(t, err)
	}

	// Files that must be ignored.
	writeLive(t, filepath.Join(store.Dir(), "trains.csv_garbage.bak"), "x")
	writeLive(t, filepath.Join(store.Dir(), "old_trains.csv_20250301_101500.bak"), "x")
	writeLive(t, filepath.Join(store.Dir(), "bookings.json_20250301_101500.bak"), "x")

	snapshots, err := store.List("trains.csv")
	require.NoError(t, err)
	require.Len(t, snapshots, 3)

	assert.Equal(t, SnapshotID("trains.csv_20250301_101700.bak"), snapshots[0].ID)
	assert.Equal(t, SnapshotID("trains.csv_20250301_101600.bak"), snapshots[1].ID)
	assert.Equal(t, SnapshotID("trains.csv_20250301_101500.bak"), snapshots[2].ID)
	assert.True(t, baseTime.Add(2*time.Minute).Equal(snapshots[0].CapturedAt))
	assert.Equal(t, int64(2), snapshots[0].Size)
}

func TestLatest_NoSnapshots(t *testing.T) {
	store, _ := newTestStore(t, time.Now)

	id, ok, err := store.Latest("bookings.json")

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Empty(t, id)
}

// =============================================================================
// Restore Tests
// =============================================================================

func TestRestore_CopiesLatestOverLive(t *testing.T) {
	store, root := newTestStore(t, steppingClock(baseTime, time.Second))
	live := filepath.Join(root, "bookings.json")

	writeLive(t, live, `[{"Booking Ref":"101_1"}]`)
	_, err := store.Capture("bookings.json", live)
	require.NoError(t, err)
	writeLive(t, live, `[{"Booking Ref":"101_2"}]`)
	_, err = store.Capture("bookings.json", live)
	require.NoError(t, err)

	writeLive(t, live, "{corrupt")

	data, ok, err := store.Restore("bookings.json", live)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, `[{"Booking Ref":"101_2"}]`, string(data))

	onDisk, err := os.ReadFile(live)
	require.NoError(t, err)
	assert.Equal(t, string(data), string(onDisk))

	// Snapshots survive a restore.
	snapshots, err := store.List("bookings.json")
	require.NoError(t, err)
	assert.Len(t, snapshots, 2)
}

func TestRestore_NoSnapshotLeavesLiveUntouched(t *testing.T) {
	store, root := newTestStore(t, time.Now)
	live := filepath.Join(root, "bookings.json")
	writeLive(t, live, "{corrupt")

	data, ok, err := store.Restore("bookings.json", live)

	require.NoError(t, err)
	assert.False(t, ok)
	assert.Nil(t, data)
	onDisk, _ := os.ReadFile(live)
	assert.Equal(t, "{corrupt", string(onDisk))
}

func TestRead_RejectsPathsOutsideStore(t *testing.T) {
	store, _ := newTestStore(t, time.Now)

	for _, id := range []SnapshotID{"", "../secret.bak", "a/b.bak", "trains.csv"} {
		_, err := store.Read(id)
		assert.ErrorIs(t, err, ErrInvalidSnapshot, "id %q", id)
	}
}

// =============================================================================
// Name Parsing Tests
// =============================================================================

func TestParseSnapshotName(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"trains.csv_20250301_101500.bak", true},
		{"trains.csv_20250301_101500_001.bak", true},
		{"trains.csv_20250301_101500_01.bak", false},
		{"trains.csv_20250301_101500_abc.bak", false},
		{"trains.csv_2025.bak", false},
		{"trains.csv_20250301_101500", false},
		{"trains.csv.20250301_101500.bak", false},
		{"trains.csv_20251301_101500.bak", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, got := parseSnapshotName("trains.csv", tt.name)
			if got != tt.want {
				t.Errorf("parseSnapshotName(%q) = %v, want %v", tt.name, got, tt.want)
			}
		})
	}
}
