// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package ledger owns the in-memory train table and booking list and
// applies bookings and cancellations to both.
//
// Every mutation is computed on copies and committed in a fixed order:
//
//  1. booking counter
//  2. snapshot + write of the booking list
//  3. snapshot + write of the train table
//
// The in-memory state is replaced only after all writes succeed, so a
// failed operation leaves the ledger exactly as it was. For every train,
// seats available plus seats held by its bookings equals its capacity.
package ledger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/AleutianAI/railticket/cmd/railticket/internal/backup"
	"github.com/AleutianAI/railticket/cmd/railticket/internal/fsutil"
	"github.com/AleutianAI/railticket/cmd/railticket/internal/journal"
	"github.com/AleutianAI/railticket/cmd/railticket/internal/storage"
)

// Journal records committed events. *journal.Journal implements it.
type Journal interface {
	Append(ctx context.Context, e journal.Event) (journal.Event, error)
}

// Options configures a Ledger.
type Options struct {
	// Paths locates the data files. Required.
	Paths storage.Paths

	// Backups captures snapshots before each overwrite. Required.
	Backups backup.Manager

	// Journal receives committed events. Optional.
	Journal Journal

	// Metrics records operation counts. Optional.
	Metrics *Metrics

	// Logger defaults to slog.Default().
	Logger *slog.Logger

	// Now defaults to time.Now.
	Now func() time.Time
}

// CommitOption adjusts a single Book or Cancel call.
type CommitOption func(*commitOptions)

type commitOptions struct {
	unprotected bool
}

// WithoutBackup skips the snapshots normally taken before each write. It is
// meant for retrying an operation that failed with backup.ErrBackupFailed
// once the user has accepted writing without a safety copy.
func WithoutBackup() CommitOption {
	return func(o *commitOptions) { o.unprotected = true }
}

// Ledger is the booking ledger. It is not safe for concurrent use.
type Ledger struct {
	paths    storage.Paths
	backups  backup.Manager
	journal  Journal
	metrics  *Metrics
	logger   *slog.Logger
	now      func() time.Time
	tracer   trace.Tracer
	trains   []storage.Train
	bookings []storage.Booking
	nextSeq  int
	warnings []storage.LoadReport
}

// Open initializes missing data files, loads trains and bookings through the
// Safe Loader and prepares the booking counter.
//
// Description:
//
//	Load problems never fail Open: they are recovered from snapshots or
//	defaults and reported through Warnings(). Seats of seeded trains are
//	then rebuilt from the loaded bookings, so a file restored from an older
//	snapshot cannot break the capacity invariant.
//
// Inputs:
//
//	ctx - Context for tracing.
//	opts - Paths and Backups are required.
//
// Outputs:
//
//	*Ledger - Loaded ledger.
//	error - Non-nil only if the data files cannot be initialized.
func Open(ctx context.Context, opts Options) (*Ledger, error) {
	if opts.Backups == nil {
		return nil, errors.New("ledger: backup manager is required")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}

	l := &Ledger{
		paths:   opts.Paths,
		backups: opts.Backups,
		journal: opts.Journal,
		metrics: opts.Metrics,
		logger:  opts.Logger.With(slog.String("component", "ledger")),
		now:     opts.Now,
		tracer:  otel.Tracer("railticket/ledger"),
	}

	ctx, span := l.tracer.Start(ctx, "ledger.Open")
	defer span.End()

	loader := storage.NewLoader(opts.Paths, opts.Backups, opts.Logger)
	if err := loader.Initialize(); err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("initialize data files: %w", err)
	}

	bookings, bookingsReport := loader.LoadBookings(ctx)
	trains, trainsReport := loader.LoadTrains(ctx)
	for _, report := range []storage.LoadReport{bookingsReport, trainsReport} {
		l.noteLoad(ctx, report)
	}
	for _, fix := range reconcileSeats(trains, bookings) {
		l.logger.Warn("seat count rebuilt from bookings",
			slog.Int("train", fix.number),
			slog.Int("from", fix.from),
			slog.Int("to", fix.to))
	}
	for _, b := range bookings {
		if findTrain(trains, b.TrainNumber) < 0 {
			l.logger.Warn("booking references unknown train",
				slog.String("reference", b.Reference),
				slog.Int("train", b.TrainNumber))
		}
	}

	next, err := storage.LoadSequence(opts.Paths.SequenceFile)
	if err != nil {
		l.logger.Warn("booking counter unreadable, deriving from bookings", slog.String("error", err.Error()))
		next = 1
	}
	l.nextSeq = max(next, storage.NextSequenceAfter(bookings))
	l.trains = trains
	l.bookings = bookings

	span.SetAttributes(
		attribute.Int("trains", len(trains)),
		attribute.Int("bookings", len(bookings)),
		attribute.Int("next_sequence", l.nextSeq),
	)
	return l, nil
}

// noteLoad records a recovered load as a warning, metric and journal event.
func (l *Ledger) noteLoad(ctx context.Context, report storage.LoadReport) {
	if !report.Recovered() {
		return
	}
	l.warnings = append(l.warnings, report)
	l.metrics.Recovery(report.File, string(report.Source))
	if report.Source == storage.SourceSnapshot {
		l.record(ctx, journal.Event{
			Kind:     journal.KindRestored,
			File:     report.File,
			Snapshot: string(report.Snapshot),
		})
	}
}

// seatFix records one train whose seat count disagreed with its bookings.
type seatFix struct {
	number, from, to int
}

// reconcileSeats sets the seats of every seeded train to its capacity minus
// the seats held by bookings, clamped at zero, and returns the trains that
// changed. The two files are snapshotted one commit apart, so a table or list
// brought back from a snapshot (or from defaults) can disagree with the other
// file. Trains outside the seed set have no known capacity and are left alone.
func reconcileSeats(trains []storage.Train, bookings []storage.Booking) []seatFix {
	held := make(map[int]int, len(trains))
	for _, b := range bookings {
		held[b.TrainNumber] += b.SeatCount
	}

	var fixes []seatFix
	for _, seed := range storage.SeedTrains() {
		i := findTrain(trains, seed.Number)
		if i < 0 {
			continue
		}
		want := max(seed.SeatsAvailable-held[seed.Number], 0)
		if trains[i].SeatsAvailable != want {
			fixes = append(fixes, seatFix{number: seed.Number, from: trains[i].SeatsAvailable, to: want})
			trains[i].SeatsAvailable = want
		}
	}
	return fixes
}

// Trains returns a copy of the train table.
func (l *Ledger) Trains() []storage.Train {
	return slices.Clone(l.trains)
}

// Bookings returns a copy of the booking list.
func (l *Ledger) Bookings() []storage.Booking {
	return slices.Clone(l.bookings)
}

// Warnings returns the load reports of files that had to be recovered when
// the ledger was opened.
func (l *Ledger) Warnings() []storage.LoadReport {
	return slices.Clone(l.warnings)
}

// Book validates req and, if it passes, commits a new booking.
//
// Description:
//
//	Validation runs in a fixed order and the first failure is returned
//	wrapped around one of the Err* sentinels; nothing is written in that
//	case. On success the booking gets reference "<train>_<seq>" from the
//	durable counter, the train's seats are decremented and both files are
//	persisted, each after a snapshot unless WithoutBackup is given.
//
// Outputs:
//
//	string - The booking reference.
//	error - Validation sentinel, backup.ErrBackupFailed or a write error.
func (l *Ledger) Book(ctx context.Context, req BookingRequest, opts ...CommitOption) (string, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.Book")
	defer span.End()

	v, err := validateBooking(req, l.trains)
	if err != nil {
		l.metrics.booking(ResultRejected)
		span.SetStatus(codes.Error, "rejected")
		return "", err
	}

	seq := l.nextSeq
	ref := storage.FormatReference(v.trainNumber, seq)
	booking := storage.Booking{
		Reference:     ref,
		TrainNumber:   v.trainNumber,
		PassengerName: v.passengerName,
		PassengerAge:  v.passengerAge,
		SeatCount:     v.seatCount,
		BookedAt:      l.now().Truncate(time.Second),
	}

	trains := slices.Clone(l.trains)
	trains[v.trainIndex].SeatsAvailable -= v.seatCount
	bookings := append(slices.Clone(l.bookings), booking)

	co := applyOptions(opts)
	if err := l.commit(ctx, trains, bookings, seq+1, co); err != nil {
		l.metrics.booking(ResultFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return "", err
	}

	l.trains, l.bookings, l.nextSeq = trains, bookings, seq+1
	l.metrics.booking(ResultOK)
	span.SetAttributes(attribute.String("reference", ref), attribute.Int("seats", v.seatCount))
	l.logger.Info("booking committed",
		slog.String("reference", ref),
		slog.Int("train", v.trainNumber),
		slog.Int("seats", v.seatCount),
		slog.Bool("unprotected", co.unprotected))
	l.record(ctx, journal.Event{
		Kind:        journal.KindBooked,
		Reference:   ref,
		TrainNumber: v.trainNumber,
		Seats:       v.seatCount,
		Unprotected: co.unprotected,
		At:          booking.BookedAt,
	})
	return ref, nil
}

// Cancel removes the booking with the exact reference and returns its seats
// to the train. Persistence follows the same order as Book.
func (l *Ledger) Cancel(ctx context.Context, reference string, opts ...CommitOption) error {
	ctx, span := l.tracer.Start(ctx, "ledger.Cancel", trace.WithAttributes(attribute.String("reference", reference)))
	defer span.End()

	index := slices.IndexFunc(l.bookings, func(b storage.Booking) bool { return b.Reference == reference })
	if index < 0 {
		l.metrics.cancellation(ResultRejected)
		span.SetStatus(codes.Error, "not found")
		return fmt.Errorf("%w: %q", ErrBookingNotFound, reference)
	}
	cancelled := l.bookings[index]

	bookings := slices.Delete(slices.Clone(l.bookings), index, index+1)
	trains := slices.Clone(l.trains)
	if i := findTrain(trains, cancelled.TrainNumber); i >= 0 {
		trains[i].SeatsAvailable += cancelled.SeatCount
	} else {
		l.logger.Warn("cancelled booking references unknown train",
			slog.String("reference", reference),
			slog.Int("train", cancelled.TrainNumber))
	}

	co := applyOptions(opts)
	if err := l.commit(ctx, trains, bookings, l.nextSeq, co); err != nil {
		l.metrics.cancellation(ResultFailed)
		span.RecordError(err)
		span.SetStatus(codes.Error, "commit failed")
		return err
	}

	l.trains, l.bookings = trains, bookings
	l.metrics.cancellation(ResultOK)
	l.logger.Info("booking cancelled",
		slog.String("reference", reference),
		slog.Int("train", cancelled.TrainNumber),
		slog.Int("seats", cancelled.SeatCount),
		slog.Bool("unprotected", co.unprotected))
	l.record(ctx, journal.Event{
		Kind:        journal.KindCancelled,
		Reference:   reference,
		TrainNumber: cancelled.TrainNumber,
		Seats:       cancelled.SeatCount,
		Unprotected: co.unprotected,
	})
	return nil
}

func applyOptions(opts []CommitOption) commitOptions {
	var co commitOptions
	for _, opt := range opts {
		opt(&co)
	}
	return co
}

// commit persists a new state. On error the files hold the pre-commit
// content (best effort) and the in-memory state is untouched.
func (l *Ledger) commit(ctx context.Context, trains []storage.Train, bookings []storage.Booking, nextSeq int, co commitOptions) error {
	_, span := l.tracer.Start(ctx, "ledger.commit")
	defer span.End()

	trainsData, err := storage.EncodeTrains(trains)
	if err != nil {
		return fmt.Errorf("encode trains: %w", err)
	}
	bookingsData, err := storage.EncodeBookings(bookings)
	if err != nil {
		return fmt.Errorf("encode bookings: %w", err)
	}

	if err := l.capture(l.paths.BookingsName(), l.paths.BookingsFile, co); err != nil {
		return err
	}
	if nextSeq != l.nextSeq {
		if err := storage.SaveSequence(l.paths.SequenceFile, nextSeq); err != nil {
			return err
		}
	}
	if err := fsutil.WriteFileAtomic(l.paths.BookingsFile, bookingsData, 0640); err != nil {
		return fmt.Errorf("write bookings: %w", err)
	}

	err = l.capture(l.paths.TrainsName(), l.paths.TrainsFile, co)
	if err == nil {
		if werr := fsutil.WriteFileAtomic(l.paths.TrainsFile, trainsData, 0640); werr != nil {
			err = fmt.Errorf("write trains: %w", werr)
		}
	}
	if err != nil {
		l.rollbackBookings()
		return err
	}
	return nil
}

// capture snapshots a live file unless the commit is unprotected.
func (l *Ledger) capture(name, path string, co commitOptions) error {
	if co.unprotected {
		l.logger.Warn("writing without backup", slog.String("file", name))
		return nil
	}
	id, err := l.backups.Capture(name, path)
	if err != nil {
		return err
	}
	if id != "" {
		l.metrics.snapshot(name)
		l.logger.Debug("snapshot captured", slog.String("file", name), slog.String("snapshot", string(id)))
	}
	return nil
}

// rollbackBookings rewrites the booking list with the pre-commit state after
// the train table could not be persisted.
func (l *Ledger) rollbackBookings() {
	data, err := storage.EncodeBookings(l.bookings)
	if err == nil {
		err = fsutil.WriteFileAtomic(l.paths.BookingsFile, data, 0640)
	}
	if err != nil {
		l.logger.Error("could not roll back booking list; files may disagree",
			slog.String("error", err.Error()))
		return
	}
	l.logger.Warn("train table write failed, booking list rolled back")
}

// record appends to the journal. Failures are logged only.
func (l *Ledger) record(ctx context.Context, e journal.Event) {
	if l.journal == nil {
		return
	}
	if e.At.IsZero() {
		e.At = l.now()
	}
	if _, err := l.journal.Append(ctx, e); err != nil {
		l.logger.Warn("journal append failed",
			slog.String("kind", string(e.Kind)),
			slog.String("error", err.Error()))
	}
}
