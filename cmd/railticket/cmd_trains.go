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
	"strconv"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/railticket/cmd/railticket/internal/storage"
	"github.com/AleutianAI/railticket/pkg/ux"
)

var (
	trainHeaders   = []string{"Train No", "Train Name", "From", "To", "Seats Available"}
	bookingHeaders = []string{"Booking Ref", "Train No", "Name", "Age", "Seats", "Timestamp"}
)

func (c *cli) newTrainsCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "trains",
		Short:   "List trains and their available seats",
		Aliases: []string{"t"},
		Args:    cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := c.ledger(cmd.Context())
			if err != nil {
				return err
			}
			printTrains(c.app.printer, l.Trains())
			return nil
		},
	}
}

func (c *cli) newBookingsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "bookings",
		Short: "List all bookings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			l, err := c.ledger(cmd.Context())
			if err != nil {
				return err
			}
			printBookings(c.app.printer, l.Bookings())
			return nil
		},
	}
}

func printTrains(p *ux.Printer, trains []storage.Train) {
	rows := make([][]string, 0, len(trains))
	for _, t := range trains {
		rows = append(rows, []string{
			strconv.Itoa(t.Number),
			t.Name,
			t.Origin,
			t.Destination,
			strconv.Itoa(t.SeatsAvailable),
		})
	}
	p.Title("Available Trains")
	p.Table(trainHeaders, rows)
}

func printBookings(p *ux.Printer, bookings []storage.Booking) {
	if len(bookings) == 0 {
		p.Info("No bookings are available.")
		return
	}
	rows := make([][]string, 0, len(bookings))
	for _, b := range bookings {
		rows = append(rows, []string{
			b.Reference,
			strconv.Itoa(b.TrainNumber),
			b.PassengerName,
			strconv.Itoa(b.PassengerAge),
			strconv.Itoa(b.SeatCount),
			b.BookedAt.Format(storage.TimestampLayout),
		})
	}
	p.Title("All Bookings")
	p.Table(bookingHeaders, rows)
}
