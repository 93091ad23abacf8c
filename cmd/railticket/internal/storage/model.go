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
	"fmt"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Train is one row of the train table.
type Train struct {
	Number         int    `validate:"gt=0"`
	Name           string `validate:"required"`
	Origin         string `validate:"required"`
	Destination    string `validate:"required"`
	SeatsAvailable int    `validate:"gte=0"`
}

// Booking is one entry of the booking list.
type Booking struct {
	Reference     string    `validate:"required,bookingref"`
	TrainNumber   int       `validate:"gt=0"`
	PassengerName string    `validate:"required"`
	PassengerAge  int       `validate:"gt=0"`
	SeatCount     int       `validate:"gt=0"`
	BookedAt      time.Time `validate:"required"`
}

// Paths locates every file the ledger reads or writes.
type Paths struct {
	// TrainsFile is the train table (CSV).
	TrainsFile string

	// BookingsFile is the booking list (JSON).
	BookingsFile string

	// SequenceFile holds the durable booking counter.
	SequenceFile string

	// BackupDir receives snapshots of TrainsFile and BookingsFile.
	BackupDir string
}

// DefaultPaths lays the standard file names out under dataDir.
func DefaultPaths(dataDir string) Paths {
	return Paths{
		TrainsFile:   filepath.Join(dataDir, "trains.csv"),
		BookingsFile: filepath.Join(dataDir, "bookings.json"),
		SequenceFile: filepath.Join(dataDir, "booking_seq.json"),
		BackupDir:    filepath.Join(dataDir, "backups"),
	}
}

// TrainsName is the logical name snapshots of the train table are filed under.
func (p Paths) TrainsName() string { return filepath.Base(p.TrainsFile) }

// BookingsName is the logical name snapshots of the booking list are filed under.
func (p Paths) BookingsName() string { return filepath.Base(p.BookingsFile) }

// SeedTrains returns the train table written on first run.
func SeedTrains() []Train {
	return []Train{
		{Number: 101, Name: "Express A1", Origin: "City B1", Destination: "City C1", SeatsAvailable: 100},
		{Number: 102, Name: "Express A2", Origin: "City B2", Destination: "City C2", SeatsAvailable: 50},
		{Number: 103, Name: "Express A3", Origin: "City B3", Destination: "City C3", SeatsAvailable: 75},
	}
}

// FormatReference builds "<train>_<sequence>".
func FormatReference(trainNumber, sequence int) string {
	return fmt.Sprintf("%d_%d", trainNumber, sequence)
}

// ParseReference splits a reference into train number and sequence.
func ParseReference(ref string) (trainNumber, sequence int, ok bool) {
	if !referencePattern.MatchString(ref) {
		return 0, 0, false
	}
	train, seq, _ := strings.Cut(ref, "_")
	trainNumber, err := strconv.Atoi(train)
	if err != nil {
		return 0, 0, false
	}
	sequence, err = strconv.Atoi(seq)
	if err != nil {
		return 0, 0, false
	}
	return trainNumber, sequence, true
}

var referencePattern = regexp.MustCompile(`^[0-9]+_[0-9]+$`)

// recordValidate checks decoded records. Initialized in init() with the
// booking reference rule.
var recordValidate *validator.Validate

func init() {
	recordValidate = validator.New()
	_ = recordValidate.RegisterValidation("bookingref", validateBookingRef)
}

func validateBookingRef(fl validator.FieldLevel) bool {
	return referencePattern.MatchString(fl.Field().String())
}
