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

	"github.com/spf13/cobra"

	"github.com/AleutianAI/railticket/cmd/railticket/internal/ledger"
)

// newBookCmd books seats non-interactively.
//
// # Examples
//
//	railticket book --train 101 --name Alice --age 30 --seats 2
//	railticket book --train 101 --name Alice --age 30 --seats 2 --unprotected
//
// # Exit Codes
//
//	0 - Booked; the reference is printed
//	2 - Request rejected (bad input, unknown train, not enough seats)
//	3 - Snapshot failed, nothing written
func (c *cli) newBookCmd() *cobra.Command {
	var (
		req         ledger.BookingRequest
		unprotected bool
	)
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Book seats on a train",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := c.ledger(cmd.Context())
			if err != nil {
				return err
			}
			ref, err := l.Book(cmd.Context(), req, commitOptions(unprotected)...)
			if err != nil {
				return err
			}
			if unprotected {
				c.app.printer.Warning("written without a snapshot")
			}
			c.app.printer.Success(fmt.Sprintf("Booking successful. Reference No: %s", ref))
			return nil
		},
	}
	cmd.Flags().StringVar(&req.TrainNumber, "train", "", "train number")
	cmd.Flags().StringVar(&req.PassengerName, "name", "", "passenger name")
	cmd.Flags().StringVar(&req.PassengerAge, "age", "", "passenger age")
	cmd.Flags().StringVar(&req.SeatCount, "seats", "", "number of seats")
	cmd.Flags().BoolVar(&unprotected, "unprotected", false, "write even if the snapshot cannot be taken")
	return cmd
}

func (c *cli) newCancelCmd() *cobra.Command {
	var unprotected bool
	cmd := &cobra.Command{
		Use:   "cancel <reference>",
		Short: "Cancel a booking by its reference",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := c.ledger(cmd.Context())
			if err != nil {
				return err
			}
			if err := l.Cancel(cmd.Context(), args[0], commitOptions(unprotected)...); err != nil {
				return err
			}
			if unprotected {
				c.app.printer.Warning("written without a snapshot")
			}
			c.app.printer.Success(fmt.Sprintf("Booking %s cancelled successfully.", args[0]))
			return nil
		},
	}
	cmd.Flags().BoolVar(&unprotected, "unprotected", false, "write even if the snapshot cannot be taken")
	return cmd
}

func commitOptions(unprotected bool) []ledger.CommitOption {
	if unprotected {
		return []ledger.CommitOption{ledger.WithoutBackup()}
	}
	return nil
}
