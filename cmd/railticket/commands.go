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
	"io"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/railticket/cmd/railticket/internal/ledger"
	"github.com/AleutianAI/railticket/pkg/ux"
)

// cli carries the streams and per-run state shared by all commands.
type cli struct {
	opts   rootOptions
	in     io.Reader
	out    io.Writer
	errOut io.Writer

	// newPrompter builds the prompter for the shell and confirmations.
	newPrompter func(level ux.PersonalityLevel) ux.Prompter

	app *app
}

func newCLI(in io.Reader, out, errOut io.Writer) *cli {
	return &cli{
		in:          in,
		out:         out,
		errOut:      errOut,
		newPrompter: ux.NewPrompter,
	}
}

// newRootCmd builds the command tree. Running the root command without a
// subcommand starts the interactive shell.
func (c *cli) newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "railticket",
		Short: "Book and cancel railway tickets from the terminal",
		Long: `railticket keeps a small train table and booking list on disk.

Every write is preceded by a timestamped snapshot of the file it replaces,
and unreadable files are recovered from the newest valid snapshot on load.
Run without a subcommand for the interactive menu.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), &c.opts, c.out, c.errOut)
			if err != nil {
				return err
			}
			c.app = a
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runShell(cmd.Context())
		},
	}
	root.SetIn(c.in)
	root.SetOut(c.out)
	root.SetErr(c.errOut)

	flags := root.PersistentFlags()
	flags.StringVar(&c.opts.configPath, "config", "", "config file (default ~/.railticket/railticket.yaml)")
	flags.StringVar(&c.opts.envFile, "env-file", "", "dotenv file with RAILTICKET_* overrides (default ./.env)")
	flags.StringVar(&c.opts.dataDir, "data-dir", "", "directory holding trains.csv, bookings.json and booking_seq.json")
	flags.StringVar(&c.opts.logLevel, "log-level", "", "log level: debug, info, warn, error")
	flags.StringVar(&c.opts.personality, "personality", "", "output style: full, standard, minimal, machine")

	root.AddCommand(
		c.newTrainsCmd(),
		c.newBookingsCmd(),
		c.newBookCmd(),
		c.newCancelCmd(),
		c.newShellCmd(),
		c.newBackupsCmd(),
		c.newHistoryCmd(),
		c.newWatchCmd(),
		c.newInitCmd(),
		c.newVersionCmd(),
	)
	return root
}

// execute runs args and releases the app. It returns the process exit code.
func (c *cli) execute(ctx context.Context, args []string) int {
	root := c.newRootCmd()
	root.SetArgs(args)

	cmd, err := root.ExecuteContextC(ctx)
	if c.app != nil {
		c.app.close(context.WithoutCancel(ctx))
	}
	if err == nil {
		return ExitOK
	}

	cmdErr := WrapCommandError(err, cmd.Name())
	if cmdErr.ExitCode != ExitOK {
		printer := &ux.Printer{Out: c.out, Err: c.errOut, Level: ux.GetPersonality()}
		printer.Error(cmdErr.Message)
	}
	return cmdErr.ExitCode
}

// ledger opens the booking ledger for the current run.
func (c *cli) ledger(ctx context.Context) (*ledger.Ledger, error) {
	return c.app.openLedger(ctx)
}

func (c *cli) prompter() ux.Prompter {
	return c.newPrompter(c.app.printer.Level)
}
