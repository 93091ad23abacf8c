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
	"errors"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/railticket/cmd/railticket/internal/journal"
)

var errJournalDisabled = errors.New("journal is disabled or could not be opened")

func (c *cli) newHistoryCmd() *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recent bookings, cancellations and restores",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			j := c.app.openJournal()
			if j == nil {
				return errJournalDisabled
			}
			events, err := j.Recent(cmd.Context(), limit)
			if err != nil {
				return err
			}
			if len(events) == 0 {
				c.app.printer.Info("No history yet.")
				return nil
			}
			c.app.printer.Title("History")
			c.app.printer.Table(
				[]string{"Seq", "When", "Event", "Reference", "Train", "Seats", "Detail"},
				historyRows(events),
			)
			return nil
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "number of events to show (0 for all)")
	return cmd
}

func historyRows(events []journal.Event) [][]string {
	rows := make([][]string, 0, len(events))
	for _, e := range events {
		var train, seats, detail string
		if e.TrainNumber > 0 {
			train = strconv.Itoa(e.TrainNumber)
		}
		if e.Seats > 0 {
			seats = strconv.Itoa(e.Seats)
		}
		switch {
		case e.Kind == journal.KindRestored:
			detail = e.File + " <- " + e.Snapshot
		case e.Unprotected:
			detail = "no snapshot"
		}
		rows = append(rows, []string{
			strconv.FormatUint(e.Seq, 10),
			e.At.Local().Format(time.DateTime),
			string(e.Kind),
			e.Reference,
			train,
			seats,
			detail,
		})
	}
	return rows
}
