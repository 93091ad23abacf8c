// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package journal keeps an append-only history of committed ledger events
// in BadgerDB.
//
// Entries are keyed "event:<seq>" with a zero-padded 16 digit sequence so
// key order is append order. Each value is [4-byte CRC32][JSON event].
// The journal is informational: the data files stay the source of truth.
package journal

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"hash/crc32"
	"log/slog"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dgraph-io/badger/v4"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var (
	// ErrJournalClosed is returned by operations on a closed journal.
	ErrJournalClosed = errors.New("journal is closed")

	// ErrJournalCorrupted indicates an entry failed its checksum.
	ErrJournalCorrupted = errors.New("journal entry corrupted")
)

// Kind identifies what happened.
type Kind string

const (
	// KindBooked records a committed booking.
	KindBooked Kind = "booked"

	// KindCancelled records a committed cancellation.
	KindCancelled Kind = "cancelled"

	// KindRestored records a data file restored from a snapshot.
	KindRestored Kind = "restored"
)

// Event is one journal entry.
type Event struct {
	Seq         uint64    `json:"seq"`
	Kind        Kind      `json:"kind"`
	OperationID string    `json:"operation_id"`
	Reference   string    `json:"reference,omitempty"`
	TrainNumber int       `json:"train_number,omitempty"`
	Seats       int       `json:"seats,omitempty"`
	File        string    `json:"file,omitempty"`
	Snapshot    string    `json:"snapshot,omitempty"`
	Unprotected bool      `json:"unprotected,omitempty"`
	At          time.Time `json:"at"`
}

const keyPrefix = "event:"

// Config locates the journal. Path is ignored when InMemory is set.
type Config struct {
	Path       string
	InMemory   bool
	SyncWrites bool
	// Logger also receives BadgerDB's own messages; when nil those are dropped.
	Logger *slog.Logger
}

// badgerLog feeds BadgerDB's printf-style output into slog. Badger's info
// lines are demoted to debug.
type badgerLog struct {
	l *slog.Logger
}

func (b badgerLog) emit(level slog.Level, format string, args []any) {
	b.l.Log(context.Background(), level, strings.TrimSpace(fmt.Sprintf(format, args...)))
}

func (b badgerLog) Errorf(format string, args ...any)   { b.emit(slog.LevelError, format, args) }
func (b badgerLog) Warningf(format string, args ...any) { b.emit(slog.LevelWarn, format, args) }
func (b badgerLog) Infof(format string, args ...any)    { b.emit(slog.LevelDebug, format, args) }
func (b badgerLog) Debugf(format string, args ...any)   { b.emit(slog.LevelDebug, format, args) }

// Journal is a BadgerDB-backed event log.
//
// Thread Safety: Safe for concurrent use.
type Journal struct {
	db     *badger.DB
	logger *slog.Logger
	tracer trace.Tracer

	mu     sync.Mutex
	seq    uint64
	closed bool
}

// Open opens (or creates) the journal.
//
// Description:
//
//	Opens BadgerDB per cfg and scans for the highest existing sequence
//	number so appends continue where the previous process stopped.
//
// Inputs:
//
//	cfg - Journal configuration. Path is required unless InMemory is true.
//
// Outputs:
//
//	*Journal - Ready-to-use journal. Caller must call Close().
//	error - Non-nil if the database cannot be opened.
func Open(cfg Config) (*Journal, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	dir := cfg.Path
	switch {
	case cfg.InMemory:
		dir = ""
	case dir == "":
		return nil, errors.New("journal: path is required unless in memory")
	default:
		if err := os.MkdirAll(dir, 0750); err != nil {
			return nil, fmt.Errorf("journal: create %s: %w", dir, err)
		}
	}

	opts := badger.DefaultOptions(dir).
		WithInMemory(cfg.InMemory).
		WithSyncWrites(cfg.SyncWrites).
		WithNumVersionsToKeep(1).
		WithLogger(nil)
	if cfg.Logger != nil {
		opts = opts.WithLogger(badgerLog{l: cfg.Logger.With(slog.String("component", "badger"))})
	}

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("journal: open %q: %w", dir, err)
	}

	j := &Journal{
		db:     db,
		logger: logger.With(slog.String("component", "journal")),
		tracer: otel.Tracer("railticket/journal"),
	}
	if err := j.initSeq(); err != nil {
		db.Close()
		return nil, fmt.Errorf("init sequence number: %w", err)
	}

	j.logger.Debug("journal opened",
		slog.String("path", cfg.Path),
		slog.Bool("in_memory", cfg.InMemory),
		slog.Uint64("last_seq", j.seq))
	return j, nil
}

// initSeq scans for the highest existing sequence number.
func (j *Journal) initSeq() error {
	return j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.PrefetchValues = false
		opts.Reverse = true

		it := txn.NewIterator(opts)
		defer it.Close()

		it.Seek(append([]byte(keyPrefix), 0xFF))
		if it.ValidForPrefix([]byte(keyPrefix)) {
			var seq uint64
			if _, err := fmt.Sscanf(string(it.Item().Key()[len(keyPrefix):]), "%016d", &seq); err == nil {
				j.seq = seq
			}
		}
		return nil
	})
}

func eventKey(seq uint64) []byte {
	return []byte(fmt.Sprintf("%s%016d", keyPrefix, seq))
}

// encodeEntry encodes an event with a CRC32 prefix.
func encodeEntry(e Event) ([]byte, error) {
	payload, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("json encode: %w", err)
	}
	result := make([]byte, 4+len(payload))
	binary.BigEndian.PutUint32(result[:4], crc32.ChecksumIEEE(payload))
	copy(result[4:], payload)
	return result, nil
}

// decodeEntry validates the checksum and decodes an event.
func decodeEntry(data []byte) (Event, error) {
	if len(data) < 5 {
		return Event{}, fmt.Errorf("%w: entry too short", ErrJournalCorrupted)
	}
	stored := binary.BigEndian.Uint32(data[:4])
	payload := data[4:]
	if computed := crc32.ChecksumIEEE(payload); stored != computed {
		return Event{}, fmt.Errorf("%w: stored=%08x computed=%08x", ErrJournalCorrupted, stored, computed)
	}
	var e Event
	if err := json.Unmarshal(payload, &e); err != nil {
		return Event{}, fmt.Errorf("%w: %w", ErrJournalCorrupted, err)
	}
	return e, nil
}

// Append writes an event and returns it with Seq, OperationID and At filled
// in. A caller-provided OperationID or At is kept.
func (j *Journal) Append(ctx context.Context, e Event) (Event, error) {
	ctx, span := j.tracer.Start(ctx, "journal.Append",
		trace.WithAttributes(attribute.String("kind", string(e.Kind))))
	defer span.End()

	if err := ctx.Err(); err != nil {
		return Event{}, err
	}

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return Event{}, ErrJournalClosed
	}

	e.Seq = j.seq + 1
	if e.OperationID == "" {
		e.OperationID = uuid.NewString()
	}
	if e.At.IsZero() {
		e.At = time.Now()
	}

	data, err := encodeEntry(e)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "encode failed")
		return Event{}, err
	}

	err = j.db.Update(func(txn *badger.Txn) error {
		return txn.Set(eventKey(e.Seq), data)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "write failed")
		return Event{}, fmt.Errorf("write entry: %w", err)
	}
	j.seq = e.Seq

	span.SetAttributes(attribute.Int64("seq", int64(e.Seq)))
	j.logger.Debug("event appended",
		slog.Uint64("seq", e.Seq),
		slog.String("kind", string(e.Kind)),
		slog.String("operation_id", e.OperationID))
	return e, nil
}

// Recent returns up to limit events, newest first. A limit <= 0 returns all.
// Corrupted entries are skipped and logged.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Event, error) {
	_, span := j.tracer.Start(ctx, "journal.Recent")
	defer span.End()

	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil, ErrJournalClosed
	}

	var events []Event
	err := j.db.View(func(txn *badger.Txn) error {
		opts := badger.DefaultIteratorOptions
		opts.Reverse = true

		it := txn.NewIterator(opts)
		defer it.Close()

		prefix := []byte(keyPrefix)
		for it.Seek(append([]byte(keyPrefix), 0xFF)); it.ValidForPrefix(prefix); it.Next() {
			if err := ctx.Err(); err != nil {
				return err
			}
			if limit > 0 && len(events) >= limit {
				break
			}
			item := it.Item()
			data, err := item.ValueCopy(nil)
			if err != nil {
				return err
			}
			e, err := decodeEntry(data)
			if err != nil {
				j.logger.Warn("skipping corrupted journal entry",
					slog.String("key", string(item.Key())),
					slog.String("error", err.Error()))
				continue
			}
			events = append(events, e)
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, fmt.Errorf("read journal: %w", err)
	}
	span.SetAttributes(attribute.Int("events", len(events)))
	return events, nil
}

// Close syncs and releases the database. Calling Close twice is a no-op.
func (j *Journal) Close() error {
	j.mu.Lock()
	defer j.mu.Unlock()

	if j.closed {
		return nil
	}
	j.closed = true

	if err := j.db.Sync(); err != nil {
		j.logger.Warn("sync before close failed", slog.String("error", err.Error()))
	}
	return j.db.Close()
}
