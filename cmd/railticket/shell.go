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
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/railticket/cmd/railticket/internal/backup"
	"github.com/AleutianAI/railticket/cmd/railticket/internal/ledger"
	"github.com/AleutianAI/railticket/cmd/railticket/internal/storage"
	"github.com/AleutianAI/railticket/pkg/ux"
)

// bookingDesk is what the shell needs from the ledger. Every method returns
// results or errors; the shell does all printing.
type bookingDesk interface {
	Trains() []storage.Train
	Bookings() []storage.Booking
	Book(ctx context.Context, req ledger.BookingRequest, opts ...ledger.CommitOption) (string, error)
	Cancel(ctx context.Context, reference string, opts ...ledger.CommitOption) error
}

// Menu choices.
const (
	menuViewTrains = iota + 1
	menuBook
	menuCancel
	menuViewBookings
	menuExit
)

var menuOptions = []ux.Option{
	{Label: "View Available Trains", Value: menuViewTrains},
	{Label: "Book a Ticket", Value: menuBook},
	{Label: "Cancel a Ticket", Value: menuCancel},
	{Label: "View Bookings", Value: menuViewBookings},
	{Label: "Exit", Value: menuExit},
}

// shell is the interactive menu loop.
type shell struct {
	desk     bookingDesk
	prompter ux.Prompter
	printer  *ux.Printer
}

func (c *cli) newShellCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "shell",
		Short: "Start the interactive booking menu (default)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runShell(cmd.Context())
		},
	}
}

func (c *cli) runShell(ctx context.Context) error {
	l, err := c.ledger(ctx)
	if err != nil {
		return err
	}
	s := &shell{desk: l, prompter: c.prompter(), printer: c.app.printer}
	return s.run(ctx)
}

// run shows the menu until the user exits, input ends or ctx is cancelled.
// Operation failures are printed and the menu is shown again.
func (s *shell) run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return nil
		}

		s.printer.Title("Train Ticket Booking System")
		choice, err := s.prompter.Select("Choose an option", menuOptions)
		if errors.Is(err, ux.ErrAborted) {
			return nil
		}
		if err != nil {
			return err
		}

		switch choice {
		case menuViewTrains:
			printTrains(s.printer, s.desk.Trains())
		case menuBook:
			err = s.book(ctx)
		case menuCancel:
			err = s.cancel(ctx)
		case menuViewBookings:
			printBookings(s.printer, s.desk.Bookings())
		case menuExit:
			s.printer.Info("Exiting system...")
			return nil
		}

		switch {
		case err == nil:
		case errors.Is(err, ux.ErrAborted):
			s.printer.Muted("cancelled")
		default:
			s.printer.Error(err.Error())
		}
	}
}

func (s *shell) book(ctx context.Context) error {
	var req ledger.BookingRequest
	fields := []struct {
		title string
		dst   *string
	}{
		{"Enter Train Number to Book", &req.TrainNumber},
		{"Enter Passenger Name", &req.PassengerName},
		{"Enter Passenger Age", &req.PassengerAge},
		{"Number of Seats", &req.SeatCount},
	}
	for _, f := range fields {
		v, err := s.prompter.Input(f.title)
		if err != nil {
			return err
		}
		*f.dst = v
	}

	ref, err := s.desk.Book(ctx, req)
	if errors.Is(err, backup.ErrBackupFailed) {
		ok, cerr := s.confirmUnprotected(err)
		if cerr != nil || !ok {
			return err
		}
		ref, err = s.desk.Book(ctx, req, ledger.WithoutBackup())
	}
	if err != nil {
		return err
	}
	s.printer.Success(fmt.Sprintf("Booking successful. Reference No: %s", ref))
	return nil
}

func (s *shell) cancel(ctx context.Context) error {
	ref, err := s.prompter.Input("Enter the Booking Reference to Cancel")
	if err != nil {
		return err
	}
	ref = strings.TrimSpace(ref)

	err = s.desk.Cancel(ctx, ref)
	if errors.Is(err, backup.ErrBackupFailed) {
		ok, cerr := s.confirmUnprotected(err)
		if cerr != nil || !ok {
			return err
		}
		err = s.desk.Cancel(ctx, ref, ledger.WithoutBackup())
	}
	if err != nil {
		return err
	}
	s.printer.Success(fmt.Sprintf("Booking %s cancelled successfully.", ref))
	return nil
}

// confirmUnprotected explains a snapshot failure and asks whether to write
// anyway.
func (s *shell) confirmUnprotected(cause error) (bool, error) {
	s.printer.WarningBox("Snapshot failed", cause.Error()+"\nNothing has been written.")
	return s.prompter.Confirm("Write without a snapshot?")
}
