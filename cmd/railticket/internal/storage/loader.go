// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package storage reads and writes the railticket data files.
//
// The train table is CSV, the booking list is JSON and the booking counter
// is a tiny JSON document. Loader never hands a decode error to its caller:
// an unreadable file is replaced by the newest snapshot that still decodes,
// and if no snapshot does, by the seeded train table or an empty booking
// list. Every load returns a LoadReport saying where the data came from.
package storage

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/railticket/cmd/railticket/internal/backup"
	"github.com/AleutianAI/railticket/cmd/railticket/internal/fsutil"
)

// Source says where loaded data came from.
type Source string

const (
	// SourceLive means the live file decoded cleanly.
	SourceLive Source = "live"

	// SourceSnapshot means a snapshot was restored over the live file.
	SourceSnapshot Source = "snapshot"

	// SourceDefault means no usable data was found and defaults were used.
	SourceDefault Source = "default"
)

// LoadReport describes the outcome of one load.
type LoadReport struct {
	// File is the logical file name.
	File string

	// Source is where the returned data came from.
	Source Source

	// Snapshot is set when Source is SourceSnapshot.
	Snapshot backup.SnapshotID

	// Cause is the error that made the live file unusable, nil for SourceLive.
	Cause error
}

// Recovered reports whether the live file could not be used as-is.
func (r LoadReport) Recovered() bool {
	return r.Source != SourceLive
}

// String renders a one-line summary suitable for a warning.
func (r LoadReport) String() string {
	switch r.Source {
	case SourceSnapshot:
		return fmt.Sprintf("%s was unreadable (%v); restored from snapshot %s", r.File, r.Cause, r.Snapshot)
	case SourceDefault:
		return fmt.Sprintf("%s was unreadable (%v) and no valid snapshot exists; using defaults", r.File, r.Cause)
	default:
		return fmt.Sprintf("%s loaded", r.File)
	}
}

// Loader loads data files with snapshot recovery.
type Loader struct {
	paths   Paths
	backups backup.Manager
	logger  *slog.Logger
	tracer  trace.Tracer
}

// NewLoader creates a Loader. A nil logger uses slog.Default().
func NewLoader(paths Paths, backups backup.Manager, logger *slog.Logger) *Loader {
	if logger == nil {
		logger = slog.Default()
	}
	return &Loader{
		paths:   paths,
		backups: backups,
		logger:  logger.With(slog.String("component", "loader")),
		tracer:  otel.Tracer("railticket/storage"),
	}
}

// Paths returns the file locations the loader works on.
func (l *Loader) Paths() Paths {
	return l.paths
}

// Initialize writes the seeded train table, an empty booking list and a
// fresh counter for whichever of those files does not exist yet. Existing
// files are never touched.
func (l *Loader) Initialize() error {
	seedTrains, err := EncodeTrains(SeedTrains())
	if err != nil {
		return err
	}
	noBookings, err := EncodeBookings(nil)
	if err != nil {
		return err
	}

	files := []struct {
		path string
		data []byte
	}{
		{l.paths.TrainsFile, seedTrains},
		{l.paths.BookingsFile, noBookings},
	}
	for _, f := range files {
		_, err := os.Stat(f.path)
		if err == nil {
			continue
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("stat %s: %w", f.path, err)
		}
		if err := fsutil.WriteFileAtomic(f.path, f.data, 0640); err != nil {
			return err
		}
		l.logger.Info("initialized data file", slog.String("path", f.path))
	}

	if _, err := os.Stat(l.paths.SequenceFile); errors.Is(err, fs.ErrNotExist) {
		if err := SaveSequence(l.paths.SequenceFile, 1); err != nil {
			return err
		}
	}
	return nil
}

// LoadTrains loads the train table, falling back to snapshots and then to
// SeedTrains.
func (l *Loader) LoadTrains(ctx context.Context) ([]Train, LoadReport) {
	_, span := l.tracer.Start(ctx, "storage.LoadTrains")
	defer span.End()

	trains, report := loadWithRecovery(l, l.paths.TrainsName(), l.paths.TrainsFile, DecodeTrains, SeedTrains)
	span.SetAttributes(
		attribute.String("source", string(report.Source)),
		attribute.Int("trains", len(trains)),
	)
	return trains, report
}

// LoadBookings loads the booking list, falling back to snapshots and then to
// an empty list.
func (l *Loader) LoadBookings(ctx context.Context) ([]Booking, LoadReport) {
	_, span := l.tracer.Start(ctx, "storage.LoadBookings")
	defer span.End()

	bookings, report := loadWithRecovery(l, l.paths.BookingsName(), l.paths.BookingsFile, DecodeBookings,
		func() []Booking { return []Booking{} })
	span.SetAttributes(
		attribute.String("source", string(report.Source)),
		attribute.Int("bookings", len(bookings)),
	)
	return bookings, report
}

// CheckFile decodes the file at path with the codec matching its logical
// name. It is used by the watcher to re-validate files changed on disk.
func (l *Loader) CheckFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	switch path {
	case l.paths.TrainsFile:
		_, err = DecodeTrains(data)
	case l.paths.BookingsFile:
		_, err = DecodeBookings(data)
	default:
		return fmt.Errorf("not a data file: %s", path)
	}
	return err
}

// Recover runs the snapshot walk-back for path regardless of whether the
// live file decodes, returning the report of the load.
func (l *Loader) Recover(ctx context.Context, path string) (LoadReport, error) {
	switch path {
	case l.paths.TrainsFile:
		_, report := l.LoadTrains(ctx)
		return report, nil
	case l.paths.BookingsFile:
		_, report := l.LoadBookings(ctx)
		return report, nil
	default:
		return LoadReport{}, fmt.Errorf("not a data file: %s", path)
	}
}

// loadWithRecovery implements the live -> snapshot -> default fallback.
//
// Snapshots are tried newest first. The first one that decodes is copied
// over the live file; if that copy fails the decoded data is still returned
// and the failure is only logged.
func loadWithRecovery[T any](l *Loader, name, path string, decode func([]byte) (T, error), fallback func() T) (T, LoadReport) {
	data, err := os.ReadFile(path)
	if err == nil {
		value, decodeErr := decode(data)
		if decodeErr == nil {
			return value, LoadReport{File: name, Source: SourceLive}
		}
		err = decodeErr
	}
	cause := err

	logger := l.logger.With(slog.String("file", name))
	logger.Warn("data file unreadable, trying snapshots", slog.String("error", cause.Error()))

	snapshots, err := l.backups.List(name)
	if err != nil {
		logger.Warn("cannot list snapshots", slog.String("error", err.Error()))
	}

	for _, snap := range snapshots {
		content, err := l.backups.Read(snap.ID)
		if err != nil {
			logger.Warn("cannot read snapshot", slog.String("snapshot", string(snap.ID)), slog.String("error", err.Error()))
			continue
		}
		value, err := decode(content)
		if err != nil {
			logger.Warn("snapshot unreadable, trying older one", slog.String("snapshot", string(snap.ID)), slog.String("error", err.Error()))
			continue
		}
		if _, err := l.backups.RestoreSnapshot(snap.ID, path); err != nil {
			logger.Error("restored data could not be written back", slog.String("snapshot", string(snap.ID)), slog.String("error", err.Error()))
		}
		logger.Warn("recovered data file from snapshot", slog.String("snapshot", string(snap.ID)))
		return value, LoadReport{File: name, Source: SourceSnapshot, Snapshot: snap.ID, Cause: cause}
	}

	logger.Warn("no valid snapshot, using defaults")
	return fallback(), LoadReport{File: name, Source: SourceDefault, Cause: cause}
}
