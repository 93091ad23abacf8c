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
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/cobra"
)

// =============================================================================
// COMMAND DEFINITION
// =============================================================================

// newInitCmd creates the data files that do not exist yet.
//
// # Description
//
// Writes the seeded train table, an empty booking list and a fresh booking
// counter. Existing files are left alone, so running init twice is safe.
// Every other command does the same implicitly; init exists to prepare a
// data directory ahead of time and to show where the files live.
//
// # Exit Codes
//
//	0 - Success
//	1 - A file could not be written
func (c *cli) newInitCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create the data files with the default trains",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.app.loader.Initialize(); err != nil {
				return err
			}
			p := c.app.paths
			c.app.printer.Box("Data files", strings.Join([]string{
				"Trains:    " + p.TrainsFile,
				"Bookings:  " + p.BookingsFile,
				"Counter:   " + p.SequenceFile,
				"Snapshots: " + p.BackupDir,
			}, "\n"))
			return nil
		},
	}
}

func (c *cli) newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		// No configuration is needed to print the version.
		PersistentPreRun: func(cmd *cobra.Command, args []string) {},
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "railticket %s (%s %s/%s)\n", version, runtime.Version(), runtime.GOOS, runtime.GOARCH)
		},
	}
}
