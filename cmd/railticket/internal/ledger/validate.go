// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ledger

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/AleutianAI/railticket/cmd/railticket/internal/storage"
)

// BookingRequest carries the raw user input for a booking. Fields are
// strings so that parsing is part of validation and fails in order.
type BookingRequest struct {
	TrainNumber   string
	PassengerName string
	PassengerAge  string
	SeatCount     string
}

// validatedBooking is a request that passed every check.
type validatedBooking struct {
	trainIndex    int
	trainNumber   int
	passengerName string
	passengerAge  int
	seatCount     int
}

// validateBooking checks req against trains. The first failing check wins:
// train number, train exists, seats left, name, age, seat count, capacity.
func validateBooking(req BookingRequest, trains []storage.Train) (validatedBooking, error) {
	var v validatedBooking

	number, err := strconv.Atoi(strings.TrimSpace(req.TrainNumber))
	if err != nil {
		return v, fmt.Errorf("%w: %q", ErrInvalidTrainNumber, req.TrainNumber)
	}

	index := findTrain(trains, number)
	if index < 0 {
		return v, fmt.Errorf("%w: %d", ErrTrainNotFound, number)
	}
	available := trains[index].SeatsAvailable
	if available <= 0 {
		return v, fmt.Errorf("%w: train %d", ErrNoSeatsAvailable, number)
	}

	name := strings.TrimSpace(req.PassengerName)
	if name == "" {
		return v, ErrInvalidPassengerName
	}

	age, err := strconv.Atoi(strings.TrimSpace(req.PassengerAge))
	if err != nil || age <= 0 {
		return v, fmt.Errorf("%w: %q", ErrInvalidAge, req.PassengerAge)
	}

	seats, err := strconv.Atoi(strings.TrimSpace(req.SeatCount))
	if err != nil || seats <= 0 {
		return v, fmt.Errorf("%w: %q", ErrInvalidSeatCount, req.SeatCount)
	}
	if seats > available {
		return v, fmt.Errorf("%w: requested %d, train %d has %d", ErrInsufficientSeats, seats, number, available)
	}

	return validatedBooking{
		trainIndex:    index,
		trainNumber:   number,
		passengerName: name,
		passengerAge:  age,
		seatCount:     seats,
	}, nil
}

func findTrain(trains []storage.Train, number int) int {
	for i, t := range trains {
		if t.Number == number {
			return i
		}
	}
	return -1
}
