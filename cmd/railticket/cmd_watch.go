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
	"fmt"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/railticket/cmd/railticket/internal/journal"
	"github.com/AleutianAI/railticket/cmd/railticket/internal/storage"
	"github.com/AleutianAI/railticket/cmd/railticket/internal/watch"
)

// newWatchCmd re-validates the data files whenever they change on disk.
//
// # Examples
//
//	railticket watch
//	railticket watch --auto-restore
//
// Runs until interrupted.
func (c *cli) newWatchCmd() *cobra.Command {
	var autoRestore bool
	cmd := &cobra.Command{
		Use:   "watch",
		Short: "Watch the data files and report (or repair) corruption",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			w, err := watch.New(c.app.paths, c.app.loader, watch.Options{
				AutoRestore: autoRestore,
				OnResult:    func(r watch.Result) { c.reportWatch(ctx, r) },
				Logger:      c.app.logger.Slog(),
			})
			if err != nil {
				return err
			}
			defer w.Stop()

			c.app.printer.Info(fmt.Sprintf("Watching %s (Ctrl+C to stop)", filepath.Dir(c.app.paths.TrainsFile)))
			return w.Start(ctx)
		},
	}
	cmd.Flags().BoolVar(&autoRestore, "auto-restore", false, "restore the newest valid snapshot when a file is corrupted")
	return cmd
}

func (c *cli) reportWatch(ctx context.Context, r watch.Result) {
	name := filepath.Base(r.Path)
	switch {
	case r.Err == nil:
		c.app.printer.Success(name + " is valid")
	case r.Recovery == nil:
		c.app.printer.Error(fmt.Sprintf("%s is unreadable: %v", name, r.Err))
	default:
		c.app.printer.Warning(r.Recovery.String())
		c.app.metrics.Recovery(r.Recovery.File, string(r.Recovery.Source))
		if r.Recovery.Source == storage.SourceSnapshot {
			c.recordWatchRestore(ctx, *r.Recovery)
		}
	}
}

func (c *cli) recordWatchRestore(ctx context.Context, report storage.LoadReport) {
	j := c.app.openJournal()
	if j == nil {
		return
	}
	if _, err := j.Append(ctx, journal.Event{
		Kind:     journal.KindRestored,
		File:     report.File,
		Snapshot: string(report.Snapshot),
	}); err != nil {
		c.app.logger.Warn("journal append failed", "error", err)
	}
}
