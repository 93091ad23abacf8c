// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package journal

import (
	"bytes"
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openInMemory(t *testing.T) *Journal {
	t.Helper()
	j, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	t.Cleanup(func() { _ = j.Close() })
	return j
}

func TestAppend_AssignsSequenceAndOperationID(t *testing.T) {
	j := openInMemory(t)
	ctx := context.Background()

	first, err := j.Append(ctx, Event{Kind: KindBooked, Reference: "101_1", TrainNumber: 101, Seats: 30})
	require.NoError(t, err)
	second, err := j.Append(ctx, Event{Kind: KindCancelled, Reference: "101_1", TrainNumber: 101, Seats: 30})
	require.NoError(t, err)

	assert.Equal(t, uint64(1), first.Seq)
	assert.Equal(t, uint64(2), second.Seq)
	_, err = uuid.Parse(first.OperationID)
	assert.NoError(t, err)
	assert.NotEqual(t, first.OperationID, second.OperationID)
	assert.False(t, first.At.IsZero())
}

func TestAppend_KeepsCallerFields(t *testing.T) {
	j := openInMemory(t)
	at := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)

	e, err := j.Append(context.Background(), Event{Kind: KindRestored, OperationID: "op-1", At: at, File: "bookings.json"})

	require.NoError(t, err)
	assert.Equal(t, "op-1", e.OperationID)
	assert.True(t, at.Equal(e.At))
}

func TestRecent_NewestFirstWithLimit(t *testing.T) {
	j := openInMemory(t)
	ctx := context.Background()
	for _, ref := range []string{"101_1", "101_2", "102_3"} {
		_, err := j.Append(ctx, Event{Kind: KindBooked, Reference: ref})
		require.NoError(t, err)
	}

	all, err := j.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "102_3", all[0].Reference)
	assert.Equal(t, "101_1", all[2].Reference)

	two, err := j.Recent(ctx, 2)
	require.NoError(t, err)
	require.Len(t, two, 2)
	assert.Equal(t, uint64(3), two[0].Seq)
	assert.Equal(t, uint64(2), two[1].Seq)
}

func TestRecent_SkipsCorruptedEntries(t *testing.T) {
	j := openInMemory(t)
	ctx := context.Background()
	_, err := j.Append(ctx, Event{Kind: KindBooked, Reference: "101_1"})
	require.NoError(t, err)

	require.NoError(t, j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(eventKey(2), []byte{0, 0, 0, 0, '{'})
	}))

	events, err := j.Recent(ctx, 0)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, "101_1", events[0].Reference)
}

func TestOpen_ContinuesSequenceAfterReopen(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "journal")
	ctx := context.Background()

	j, err := Open(Config{Path: dir})
	require.NoError(t, err)
	_, err = j.Append(ctx, Event{Kind: KindBooked, Reference: "101_1"})
	require.NoError(t, err)
	require.NoError(t, j.Close())

	j, err = Open(Config{Path: dir})
	require.NoError(t, err)
	defer j.Close()

	e, err := j.Append(ctx, Event{Kind: KindBooked, Reference: "101_2"})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), e.Seq)
}

func TestClosedJournal(t *testing.T) {
	j, err := Open(Config{InMemory: true})
	require.NoError(t, err)
	require.NoError(t, j.Close())
	require.NoError(t, j.Close())

	_, err = j.Append(context.Background(), Event{Kind: KindBooked})
	assert.ErrorIs(t, err, ErrJournalClosed)
	_, err = j.Recent(context.Background(), 1)
	assert.ErrorIs(t, err, ErrJournalClosed)
}

func TestDecodeEntry_ChecksumMismatch(t *testing.T) {
	data, err := encodeEntry(Event{Kind: KindBooked, Reference: "101_1"})
	require.NoError(t, err)
	data[len(data)-2] ^= 0xFF

	_, err = decodeEntry(data)
	assert.ErrorIs(t, err, ErrJournalCorrupted)
}

func TestOpen_RequiresPath(t *testing.T) {
	_, err := Open(Config{})
	assert.Error(t, err)
}

func TestOpen_PathIsRegularFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "journal")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0640))

	_, err := Open(Config{Path: path})

	assert.ErrorContains(t, err, "journal: create")
}

func TestOpen_CreatesNestedDirectory(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "a", "b", "journal")

	j, err := Open(Config{Path: dir, SyncWrites: true})
	require.NoError(t, err)
	defer j.Close()

	assert.DirExists(t, dir)
}

func TestBadgerLog_Levels(t *testing.T) {
	var buf bytes.Buffer
	l := badgerLog{l: slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))}

	l.Errorf("value log %d\n", 3)
	l.Warningf("slow sync")
	l.Infof("compaction done")

	out := buf.String()
	assert.Contains(t, out, `level=ERROR msg="value log 3"`)
	assert.Contains(t, out, `level=WARN msg="slow sync"`)
	assert.Contains(t, out, `level=DEBUG msg="compaction done"`)
	assert.NotContains(t, out, "level=INFO")
}
