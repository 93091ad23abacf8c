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

import "errors"

// Booking and cancellation errors. Returned errors wrap exactly one of these
// and can be matched with errors.Is.
var (
	ErrInvalidTrainNumber   = errors.New("train number must be an integer")
	ErrTrainNotFound        = errors.New("train not found")
	ErrNoSeatsAvailable     = errors.New("no seats available on this train")
	ErrInvalidPassengerName = errors.New("passenger name must not be empty")
	ErrInvalidAge           = errors.New("age must be a positive integer")
	ErrInvalidSeatCount     = errors.New("seat count must be a positive integer")
	ErrInsufficientSeats    = errors.New("not enough seats available")
	ErrBookingNotFound      = errors.New("booking not found")
)

// IsValidation reports whether err is a rejection of the request itself
// rather than a persistence failure.
func IsValidation(err error) bool {
	for _, target := range []error{
		ErrInvalidTrainNumber,
		ErrTrainNotFound,
		ErrNoSeatsAvailable,
		ErrInvalidPassengerName,
		ErrInvalidAge,
		ErrInvalidSeatCount,
		ErrInsufficientSeats,
		ErrBookingNotFound,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
