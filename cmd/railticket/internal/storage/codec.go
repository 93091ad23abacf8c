// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package storage

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
	"time"
)

// ErrCorrupt marks data files that were read but could not be decoded or
// failed record validation.
var ErrCorrupt = errors.New("corrupt data file")

// TimestampLayout is the booking timestamp format ("YYYY-MM-DD HH:MM:SS").
const TimestampLayout = "2006-01-02 15:04:05"

// trainsHeader is the required CSV header, in column order.
var trainsHeader = []string{"Train No", "Train Name", "From", "To", "Seats Available"}

// bookingRecord is the on-disk shape of a booking.
type bookingRecord struct {
	Reference   string `json:"Booking Ref"`
	TrainNumber int    `json:"Train No"`
	Name        string `json:"Name"`
	Age         int    `json:"Age"`
	Seats       int    `json:"Seats"`
	Timestamp   string `json:"Timestamp"`
}

// EncodeTrains renders the train table as CSV with header.
func EncodeTrains(trains []Train) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(trainsHeader); err != nil {
		return nil, err
	}
	for _, t := range trains {
		row := []string{
			strconv.Itoa(t.Number),
			t.Name,
			t.Origin,
			t.Destination,
			strconv.Itoa(t.SeatsAvailable),
		}
		if err := w.Write(row); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// DecodeTrains parses and validates a train table.
//
// The header must match exactly, every row needs five fields, numbers must
// be integers, train numbers must be unique and the table must not be
// empty. Any violation wraps ErrCorrupt.
func DecodeTrains(data []byte) ([]Train, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))

	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = len(trainsHeader)

	header, err := r.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: missing header", ErrCorrupt)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if !slices.Equal(header, trainsHeader) {
		return nil, fmt.Errorf("%w: unexpected header %q", ErrCorrupt, header)
	}

	var trains []Train
	seen := make(map[int]bool)
	for {
		row, err := r.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
		}

		line := len(trains) + 2
		number, err := strconv.Atoi(strings.TrimSpace(row[0]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: train number %q", ErrCorrupt, line, row[0])
		}
		seats, err := strconv.Atoi(strings.TrimSpace(row[4]))
		if err != nil {
			return nil, fmt.Errorf("%w: line %d: seats %q", ErrCorrupt, line, row[4])
		}

		train := Train{
			Number:         number,
			Name:           row[1],
			Origin:         row[2],
			Destination:    row[3],
			SeatsAvailable: seats,
		}
		if err := recordValidate.Struct(train); err != nil {
			return nil, fmt.Errorf("%w: line %d: %w", ErrCorrupt, line, err)
		}
		if seen[number] {
			return nil, fmt.Errorf("%w: line %d: duplicate train %d", ErrCorrupt, line, number)
		}
		seen[number] = true
		trains = append(trains, train)
	}

	if len(trains) == 0 {
		return nil, fmt.Errorf("%w: no trains", ErrCorrupt)
	}
	return trains, nil
}

// EncodeBookings renders the booking list as a JSON array.
func EncodeBookings(bookings []Booking) ([]byte, error) {
	records := make([]bookingRecord, 0, len(bookings))
	for _, b := range bookings {
		records = append(records, bookingRecord{
			Reference:   b.Reference,
			TrainNumber: b.TrainNumber,
			Name:        b.PassengerName,
			Age:         b.PassengerAge,
			Seats:       b.SeatCount,
			Timestamp:   b.BookedAt.Format(TimestampLayout),
		})
	}
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return nil, err
	}
	return append(data, '\n'), nil
}

// DecodeBookings parses and validates a booking list. The document must be a
// single JSON array; null, trailing data, invalid records and duplicate
// references wrap ErrCorrupt.
func DecodeBookings(data []byte) ([]Booking, error) {
	dec := json.NewDecoder(bytes.NewReader(data))

	var records *[]bookingRecord
	if err := dec.Decode(&records); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrCorrupt, err)
	}
	if records == nil {
		return nil, fmt.Errorf("%w: booking list is null", ErrCorrupt)
	}
	if _, err := dec.Token(); !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: trailing data after booking list", ErrCorrupt)
	}

	bookings := make([]Booking, 0, len(*records))
	seen := make(map[string]bool)
	for i, rec := range *records {
		bookedAt, err := time.ParseInLocation(TimestampLayout, rec.Timestamp, time.Local)
		if err != nil {
			return nil, fmt.Errorf("%w: booking %d: timestamp %q", ErrCorrupt, i, rec.Timestamp)
		}
		b := Booking{
			Reference:     rec.Reference,
			TrainNumber:   rec.TrainNumber,
			PassengerName: rec.Name,
			PassengerAge:  rec.Age,
			SeatCount:     rec.Seats,
			BookedAt:      bookedAt,
		}
		if err := recordValidate.Struct(b); err != nil {
			return nil, fmt.Errorf("%w: booking %d: %w", ErrCorrupt, i, err)
		}
		if train, _, _ := ParseReference(b.Reference); train != b.TrainNumber {
			return nil, fmt.Errorf("%w: booking %s: reference does not match train %d", ErrCorrupt, b.Reference, b.TrainNumber)
		}
		if seen[b.Reference] {
			return nil, fmt.Errorf("%w: duplicate booking %s", ErrCorrupt, b.Reference)
		}
		seen[b.Reference] = true
		bookings = append(bookings, b)
	}
	return bookings, nil
}
