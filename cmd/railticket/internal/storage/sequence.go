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
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/AleutianAI/railticket/cmd/railticket/internal/fsutil"
)

type sequenceState struct {
	NextSequence int `json:"next_sequence"`
}

// LoadSequence reads the durable booking counter. A missing file returns 1.
func LoadSequence(path string) (int, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) {
		return 1, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read sequence file: %w", err)
	}

	var state sequenceState
	if err := json.Unmarshal(data, &state); err != nil {
		return 0, fmt.Errorf("%w: sequence file: %w", ErrCorrupt, err)
	}
	if state.NextSequence < 1 {
		return 0, fmt.Errorf("%w: sequence file: next_sequence %d", ErrCorrupt, state.NextSequence)
	}
	return state.NextSequence, nil
}

// SaveSequence persists the counter atomically.
func SaveSequence(path string, next int) error {
	data, err := json.Marshal(sequenceState{NextSequence: next})
	if err != nil {
		return err
	}
	if err := fsutil.WriteFileAtomic(path, append(data, '\n'), 0640); err != nil {
		return fmt.Errorf("write sequence file: %w", err)
	}
	return nil
}

// NextSequenceAfter returns one past the highest sequence used by bookings.
func NextSequenceAfter(bookings []Booking) int {
	next := 1
	for _, b := range bookings {
		if _, seq, ok := ParseReference(b.Reference); ok && seq >= next {
			next = seq + 1
		}
	}
	return next
}
