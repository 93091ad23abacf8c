// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package backup keeps timestamped snapshots of the railticket data files.
//
// A snapshot is a byte-for-byte copy of a live data file taken right before
// the file is overwritten. Snapshots live in a dedicated directory and are
// named "<logical name>_<YYYYMMDD_HHMMSS>.bak", so sorting names lexically
// also sorts them chronologically. Snapshots are never modified or pruned.
package backup

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/AleutianAI/railticket/cmd/railticket/internal/fsutil"
)

// ErrBackupFailed is returned when a snapshot could not be written although
// the source file exists. Callers decide whether to continue unprotected.
var ErrBackupFailed = errors.New("backup failed")

// ErrInvalidSnapshot is returned for snapshot IDs that do not name a
// snapshot file inside the backup directory.
var ErrInvalidSnapshot = errors.New("invalid snapshot id")

const (
	// TimeFormat is the layout embedded in snapshot names.
	TimeFormat = "20060102_150405"

	// Extension is the snapshot file suffix.
	Extension = ".bak"

	// maxSameSecond bounds the _NNN disambiguation suffix.
	maxSameSecond = 999
)

// SnapshotID is the file name of a snapshot inside the backup directory.
type SnapshotID string

// Snapshot describes one stored snapshot.
type Snapshot struct {
	// ID is the snapshot file name.
	ID SnapshotID

	// LogicalName is the data file name the snapshot was taken from.
	LogicalName string

	// Path is the full path of the snapshot file.
	Path string

	// CapturedAt is parsed from the name (second resolution, local time).
	CapturedAt time.Time

	// Size is the snapshot size in bytes.
	Size int64
}

// Manager defines snapshot operations used by the loader and the ledger.
//
// # Description
//
// Manager captures a data file before it is overwritten and brings a
// snapshot back when the live file turns out to be unreadable.
//
// # Thread Safety
//
// Implementations are not required to be safe for concurrent use. The
// application is single-user and single-process.
type Manager interface {
	// Capture copies livePath into a new snapshot. Missing source is a no-op.
	Capture(logicalName, livePath string) (SnapshotID, error)

	// Latest returns the newest snapshot ID for logicalName.
	Latest(logicalName string) (SnapshotID, bool, error)

	// Restore copies the newest snapshot back over livePath.
	Restore(logicalName, livePath string) ([]byte, bool, error)

	// List returns all snapshots for logicalName, newest first.
	List(logicalName string) ([]Snapshot, error)

	// Read returns the content of one snapshot.
	Read(id SnapshotID) ([]byte, error)

	// RestoreSnapshot copies a specific snapshot back over livePath.
	RestoreSnapshot(id SnapshotID, livePath string) ([]byte, error)
}

// Config configures a FileStore.
//
// # Example
//
//	store := backup.NewFileStore(backup.Config{
//	    Dir:    "~/.railticket/backups",
//	    Logger: logger.Slog(),
//	})
type Config struct {
	// Dir is the backup directory. Created on first capture.
	Dir string

	// Now returns the capture time. Default: time.Now.
	Now func() time.Time

	// Logger receives debug lines for each capture/restore. Default: slog.Default().
	Logger *slog.Logger
}

// FileStore implements Manager on a local directory.
//
// # Description
//
// FileStore copies (never moves) data files into the backup directory.
// Two captures of the same file within one second get a zero-padded
// "_NNN" suffix so that names stay unique and still sort chronologically:
//
//	bookings.json_20250301_101500.bak
//	bookings.json_20250301_101500_001.bak
//	bookings.json_20250301_101501.bak
//
// # Limitations
//
//   - No retention policy: snapshots accumulate until removed by hand.
//   - At most 1000 snapshots of one file per second.
type FileStore struct {
	dir    string
	now    func() time.Time
	logger *slog.Logger
}

// NewFileStore creates a FileStore. The directory is not touched until the
// first capture.
func NewFileStore(cfg Config) *FileStore {
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &FileStore{
		dir:    cfg.Dir,
		now:    cfg.Now,
		logger: cfg.Logger.With(slog.String("component", "backup")),
	}
}

// Dir returns the backup directory.
func (s *FileStore) Dir() string {
	return s.dir
}

// Capture snapshots a live data file before it is overwritten.
//
// # Description
//
// Copies livePath into the backup directory under a timestamped name
// derived from logicalName. If livePath does not exist there is nothing to
// protect yet, so Capture returns an empty ID and a nil error. Every other
// failure (permissions, disk full, short copy) is wrapped in ErrBackupFailed
// and any partial snapshot is removed.
//
// # Inputs
//
//   - logicalName: Name the snapshot is filed under (e.g. "bookings.json").
//   - livePath: Current location of the data file.
//
// # Outputs
//
//   - SnapshotID: Name of the new snapshot, empty if nothing was captured.
//   - error: Wraps ErrBackupFailed on I/O failure.
func (s *FileStore) Capture(logicalName, livePath string) (SnapshotID, error) {
	src, err := os.Open(livePath)
	if errors.Is(err, fs.ErrNotExist) {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("%w: open %s: %w", ErrBackupFailed, livePath, err)
	}
	defer src.Close()

	if err := os.MkdirAll(s.dir, 0750); err != nil {
		return "", fmt.Errorf("%w: create backup directory %s: %w", ErrBackupFailed, s.dir, err)
	}

	dst, id, err := s.createSnapshotFile(logicalName)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrBackupFailed, err)
	}
	dstPath := dst.Name()

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("%w: copy %s: %w", ErrBackupFailed, livePath, err)
	}
	if err := dst.Sync(); err != nil {
		dst.Close()
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("%w: sync %s: %w", ErrBackupFailed, dstPath, err)
	}
	if err := dst.Close(); err != nil {
		_ = os.Remove(dstPath)
		return "", fmt.Errorf("%w: close %s: %w", ErrBackupFailed, dstPath, err)
	}

	s.logger.Debug("snapshot captured",
		slog.String("file", logicalName),
		slog.String("snapshot", string(id)))
	return id, nil
}

// Latest returns the newest snapshot for logicalName, if any.
func (s *FileStore) Latest(logicalName string) (SnapshotID, bool, error) {
	snapshots, err := s.List(logicalName)
	if err != nil {
		return "", false, err
	}
	if len(snapshots) == 0 {
		return "", false, nil
	}
	return snapshots[0].ID, true, nil
}

// Restore copies the newest snapshot of logicalName over livePath.
//
// # Outputs
//
//   - []byte: The restored content.
//   - bool: False if no snapshot exists (livePath untouched).
//   - error: Non-nil if listing, reading or writing failed.
func (s *FileStore) Restore(logicalName, livePath string) ([]byte, bool, error) {
	id, ok, err := s.Latest(logicalName)
	if err != nil || !ok {
		return nil, false, err
	}
	data, err := s.RestoreSnapshot(id, livePath)
	if err != nil {
		return nil, false, err
	}
	return data, true, nil
}

// List returns the snapshots of logicalName sorted by name, newest first.
//
// Only names of the exact form "<logicalName>_<timestamp>[_NNN].bak" are
// returned; other files in the directory are ignored. A missing backup
// directory yields an empty list.
func (s *FileStore) List(logicalName string) ([]Snapshot, error) {
	entries, err := os.ReadDir(s.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read backup directory %s: %w", s.dir, err)
	}

	var snapshots []Snapshot
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := entry.Name()
		capturedAt, ok := parseSnapshotName(logicalName, name)
		if !ok {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			continue
		}
		snapshots = append(snapshots, Snapshot{
			ID:          SnapshotID(name),
			LogicalName: logicalName,
			Path:        filepath.Join(s.dir, name),
			CapturedAt:  capturedAt,
			Size:        info.Size(),
		})
	}

	slices.SortFunc(snapshots, func(a, b Snapshot) int {
		return strings.Compare(string(b.ID), string(a.ID))
	})
	return snapshots, nil
}

// Read returns the content of a snapshot.
func (s *FileStore) Read(id SnapshotID) ([]byte, error) {
	path, err := s.snapshotPath(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot %s: %w", id, err)
	}
	return data, nil
}

// RestoreSnapshot copies snapshot id over livePath and returns its content.
// The snapshot itself is kept.
func (s *FileStore) RestoreSnapshot(id SnapshotID, livePath string) ([]byte, error) {
	data, err := s.Read(id)
	if err != nil {
		return nil, err
	}
	if err := fsutil.WriteFileAtomic(livePath, data, 0640); err != nil {
		return nil, fmt.Errorf("restore snapshot %s: %w", id, err)
	}
	s.logger.Info("snapshot restored",
		slog.String("snapshot", string(id)),
		slog.String("path", livePath))
	return data, nil
}

// createSnapshotFile opens a fresh snapshot file with O_EXCL, adding a
// _NNN suffix when the plain timestamped name is taken.
func (s *FileStore) createSnapshotFile(logicalName string) (*os.File, SnapshotID, error) {
	base := logicalName + "_" + s.now().Format(TimeFormat)
	for n := 0; n <= maxSameSecond; n++ {
		name := base + Extension
		if n > 0 {
			name = fmt.Sprintf("%s_%03d%s", base, n, Extension)
		}
		f, err := os.OpenFile(filepath.Join(s.dir, name), os.O_CREATE|os.O_WRONLY|os.O_EXCL, 0640)
		if errors.Is(err, fs.ErrExist) {
			continue
		}
		if err != nil {
			return nil, "", fmt.Errorf("create snapshot %s: %w", name, err)
		}
		return f, SnapshotID(name), nil
	}
	return nil, "", fmt.Errorf("too many snapshots of %s within one second", logicalName)
}

// snapshotPath resolves id inside the backup directory.
func (s *FileStore) snapshotPath(id SnapshotID) (string, error) {
	name := string(id)
	if name == "" || filepath.Base(name) != name || !strings.HasSuffix(name, Extension) {
		return "", fmt.Errorf("%w: %q", ErrInvalidSnapshot, name)
	}
	return filepath.Join(s.dir, name), nil
}

// parseSnapshotName reports whether name is a snapshot of logicalName and
// returns its capture time.
func parseSnapshotName(logicalName, name string) (time.Time, bool) {
	prefix := logicalName + "_"
	if !strings.HasPrefix(name, prefix) || !strings.HasSuffix(name, Extension) {
		return time.Time{}, false
	}
	stamp := strings.TrimSuffix(strings.TrimPrefix(name, prefix), Extension)
	if len(stamp) < len(TimeFormat) {
		return time.Time{}, false
	}

	capturedAt, err := time.ParseInLocation(TimeFormat, stamp[:len(TimeFormat)], time.Local)
	if err != nil {
		return time.Time{}, false
	}

	rest := stamp[len(TimeFormat):]
	if rest == "" {
		return capturedAt, true
	}
	if len(rest) != 4 || rest[0] != '_' {
		return time.Time{}, false
	}
	for _, c := range rest[1:] {
		if c < '0' || c > '9' {
			return time.Time{}, false
		}
	}
	return capturedAt, true
}

// Compile-time interface check
var _ Manager = (*FileStore)(nil)
