// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"bytes"
	"context"
	"fmt"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/railticket/cmd/railticket/internal/backup"
	"github.com/AleutianAI/railticket/cmd/railticket/internal/ledger"
	"github.com/AleutianAI/railticket/cmd/railticket/internal/storage"
	"github.com/AleutianAI/railticket/pkg/ux"
)

// =============================================================================
// Test Helpers
// =============================================================================

func newTestShell(t *testing.T, desk bookingDesk, script string) (*shell, *bytes.Buffer, *bytes.Buffer) {
	t.Helper()
	var out, errOut bytes.Buffer
	return &shell{
		desk:     desk,
		prompter: ux.NewLinePrompter(strings.NewReader(script), &out),
		printer:  &ux.Printer{Out: &out, Err: &errOut, Level: ux.PersonalityMachine},
	}, &out, &errOut
}

func openTestLedger(t *testing.T) *ledger.Ledger {
	t.Helper()
	dir := t.TempDir()
	paths := storage.DefaultPaths(filepath.Join(dir, "data"))
	clock := time.Date(2025, 3, 1, 10, 15, 0, 0, time.Local)
	l, err := ledger.Open(context.Background(), ledger.Options{
		Paths:   paths,
		Backups: backup.NewFileStore(backup.Config{Dir: paths.BackupDir, Now: func() time.Time { return clock }}),
		Now:     func() time.Time { return clock },
	})
	require.NoError(t, err)
	return l
}

// failingDesk fails every protected write with ErrBackupFailed.
type failingDesk struct {
	bookingDesk
	calls       int
	unprotected int
}

func (d *failingDesk) Book(ctx context.Context, req ledger.BookingRequest, opts ...ledger.CommitOption) (string, error) {
	d.calls++
	if len(opts) == 0 {
		return "", fmt.Errorf("%w: disk full", backup.ErrBackupFailed)
	}
	d.unprotected++
	return "101_7", nil
}

func (d *failingDesk) Cancel(ctx context.Context, ref string, opts ...ledger.CommitOption) error {
	d.calls++
	if len(opts) == 0 {
		return fmt.Errorf("%w: disk full", backup.ErrBackupFailed)
	}
	d.unprotected++
	return nil
}

// =============================================================================
// Menu Tests
// =============================================================================

func TestShell_BookViewCancel(t *testing.T) {
	l := openTestLedger(t)
	script := strings.Join([]string{
		"2", "101", "Alice", "30", "30", // book
		"1",          // trains
		"4",          // bookings
		"3", "101_1", // cancel
		"5",
	}, "\n") + "\n"
	s, out, errOut := newTestShell(t, l, script)

	require.NoError(t, s.run(context.Background()))

	text := out.String()
	assert.Contains(t, text, "OK: Booking successful. Reference No: 101_1")
	assert.Contains(t, text, "101\tExpress A1\tCity B1\tCity C1\t70")
	assert.Contains(t, text, "101_1\t101\tAlice\t30\t30\t2025-03-01 10:15:00")
	assert.Contains(t, text, "OK: Booking 101_1 cancelled successfully.")
	assert.Contains(t, text, "Exiting system...")
	assert.Empty(t, errOut.String())

	assert.Equal(t, 100, l.Trains()[0].SeatsAvailable)
	assert.Empty(t, l.Bookings())
}

func TestShell_RejectionKeepsMenuRunning(t *testing.T) {
	l := openTestLedger(t)
	script := "2\n102\nBob\n40\n51\n3\n999_1\n5\n"
	s, out, errOut := newTestShell(t, l, script)

	require.NoError(t, s.run(context.Background()))

	assert.Contains(t, errOut.String(), "ERROR: "+ledger.ErrInsufficientSeats.Error())
	assert.Contains(t, errOut.String(), "ERROR: "+ledger.ErrBookingNotFound.Error())
	assert.Contains(t, out.String(), "Exiting system...")
	assert.Equal(t, 50, l.Trains()[1].SeatsAvailable)
}

func TestShell_InvalidMenuChoiceReprompts(t *testing.T) {
	l := openTestLedger(t)
	s, out, _ := newTestShell(t, l, "7\nx\n5\n")

	require.NoError(t, s.run(context.Background()))

	assert.Equal(t, 2, strings.Count(out.String(), "Invalid choice. Please try again."))
}

func TestShell_EndOfInputExits(t *testing.T) {
	l := openTestLedger(t)
	s, _, _ := newTestShell(t, l, "2\n101\n")

	assert.NoError(t, s.run(context.Background()))
	assert.Empty(t, l.Bookings())
}

func TestShell_CancelledContextExits(t *testing.T) {
	l := openTestLedger(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	s, out, _ := newTestShell(t, l, "1\n")

	require.NoError(t, s.run(ctx))
	assert.Empty(t, out.String())
}

// =============================================================================
// Unprotected Write Tests
// =============================================================================

func TestShell_BackupFailureConfirmedRetriesUnprotected(t *testing.T) {
	desk := &failingDesk{}
	s, out, errOut := newTestShell(t, desk, "2\n101\nAlice\n30\n1\ny\n3\n101_7\nyes\n5\n")

	require.NoError(t, s.run(context.Background()))

	assert.Equal(t, 4, desk.calls)
	assert.Equal(t, 2, desk.unprotected)
	assert.Contains(t, errOut.String(), "WARN Snapshot failed")
	assert.Contains(t, out.String(), "Reference No: 101_7")
	assert.Contains(t, out.String(), "Booking 101_7 cancelled successfully.")
}

func TestShell_BackupFailureDeclinedWritesNothing(t *testing.T) {
	desk := &failingDesk{}
	s, out, errOut := newTestShell(t, desk, "2\n101\nAlice\n30\n1\nn\n5\n")

	require.NoError(t, s.run(context.Background()))

	assert.Equal(t, 1, desk.calls)
	assert.Zero(t, desk.unprotected)
	assert.Contains(t, errOut.String(), "ERROR: "+backup.ErrBackupFailed.Error())
	assert.NotContains(t, out.String(), "Reference No")
}
