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
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/railticket/cmd/railticket/internal/backup"
	"github.com/AleutianAI/railticket/cmd/railticket/internal/journal"
	"github.com/AleutianAI/railticket/cmd/railticket/internal/storage"
)

// errNoValidSnapshot is returned when restore finds nothing that decodes.
var errNoValidSnapshot = errors.New("no valid snapshot")

// dataFile is one of the two snapshotted files.
type dataFile struct {
	name   string
	path   string
	decode func([]byte) error
}

func (c *cli) dataFiles() []dataFile {
	paths := c.app.paths
	return []dataFile{
		{
			name: paths.TrainsName(),
			path: paths.TrainsFile,
			decode: func(b []byte) error {
				_, err := storage.DecodeTrains(b)
				return err
			},
		},
		{
			name: paths.BookingsName(),
			path: paths.BookingsFile,
			decode: func(b []byte) error {
				_, err := storage.DecodeBookings(b)
				return err
			},
		},
	}
}

// preRestoreName is the logical name for copies of f taken just before a
// restore. They sit beside f's snapshots but are never picked as "newest".
func (f dataFile) preRestoreName() string {
	return f.name + ".pre-restore"
}

// resolveDataFile accepts "trains", "bookings" or the file names.
func (c *cli) resolveDataFile(arg string) (dataFile, error) {
	for _, f := range c.dataFiles() {
		if arg == f.name || arg+".csv" == f.name || arg+".json" == f.name {
			return f, nil
		}
	}
	return dataFile{}, fmt.Errorf("unknown data file %q (want trains or bookings)", arg)
}

func (c *cli) newBackupsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "backups",
		Short: "Inspect and restore data file snapshots",
	}
	cmd.AddCommand(c.newBackupsListCmd(), c.newBackupsRestoreCmd())
	return cmd
}

func (c *cli) newBackupsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list [trains|bookings]",
		Short: "List snapshots, newest first",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			files := c.dataFiles()
			if len(args) == 1 {
				f, err := c.resolveDataFile(args[0])
				if err != nil {
					return err
				}
				files = []dataFile{f}
			}

			var rows [][]string
			for _, f := range files {
				for _, name := range []string{f.name, f.preRestoreName()} {
					snapshots, err := c.app.backups.List(name)
					if err != nil {
						return err
					}
					for _, s := range snapshots {
						rows = append(rows, []string{
							string(s.ID),
							s.LogicalName,
							s.CapturedAt.Format(time.DateTime),
							strconv.FormatInt(s.Size, 10),
						})
					}
				}
			}

			if len(rows) == 0 {
				c.app.printer.Info("No snapshots in " + c.app.backups.Dir())
				return nil
			}
			c.app.printer.Title("Snapshots in " + c.app.backups.Dir())
			c.app.printer.Table([]string{"Snapshot", "File", "Captured", "Bytes"}, rows)
			return nil
		},
	}
}

// newBackupsRestoreCmd restores a data file.
//
// # Examples
//
//	railticket backups restore bookings
//	railticket backups restore bookings bookings.json_20250301_101500.bak
//
// Without a snapshot ID the newest snapshot that decodes is used. A named
// snapshot that does not decode is refused. The file being replaced is kept
// as a pre-restore copy, which can itself be restored by ID.
func (c *cli) newBackupsRestoreCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "restore <trains|bookings> [snapshot]",
		Short: "Copy a snapshot back over a data file",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := c.resolveDataFile(args[0])
			if err != nil {
				return err
			}
			var id backup.SnapshotID
			if len(args) == 2 {
				id = backup.SnapshotID(args[1])
			}

			id, err = c.restore(f, id)
			if err != nil {
				return err
			}
			c.recordRestore(cmd.Context(), f.name, id)
			c.app.printer.Success(fmt.Sprintf("%s restored from %s", f.name, id))
			return nil
		},
	}
}

func (c *cli) restore(f dataFile, id backup.SnapshotID) (backup.SnapshotID, error) {
	if id != "" {
		data, err := c.app.backups.Read(id)
		if err != nil {
			return "", err
		}
		if err := f.decode(data); err != nil {
			return "", fmt.Errorf("snapshot %s is unreadable: %w", id, err)
		}
		return id, c.replaceLive(f, id)
	}

	snapshots, err := c.app.backups.List(f.name)
	if err != nil {
		return "", err
	}
	for _, s := range snapshots {
		data, err := c.app.backups.Read(s.ID)
		if err != nil || f.decode(data) != nil {
			c.app.logger.Warn("skipping unreadable snapshot", slog.String("snapshot", string(s.ID)))
			continue
		}
		return s.ID, c.replaceLive(f, s.ID)
	}
	return "", fmt.Errorf("%w for %s", errNoValidSnapshot, f.name)
}

// replaceLive keeps a pre-restore copy of the live file, then copies id
// over it. The copy is filed under its own name so that repeating a restore
// without an ID lands on the same snapshot again.
func (c *cli) replaceLive(f dataFile, id backup.SnapshotID) error {
	if _, err := c.app.backups.Capture(f.preRestoreName(), f.path); err != nil {
		return err
	}
	_, err := c.app.backups.RestoreSnapshot(id, f.path)
	return err
}

func (c *cli) recordRestore(ctx context.Context, file string, id backup.SnapshotID) {
	j := c.app.openJournal()
	if j == nil {
		return
	}
	_, err := j.Append(ctx, journal.Event{
		Kind:     journal.KindRestored,
		File:     file,
		Snapshot: string(id),
	})
	if err != nil {
		c.app.logger.Warn("journal append failed", slog.String("error", err.Error()))
	}
}
