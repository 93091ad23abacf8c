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
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/railticket/cmd/railticket/config"
	"github.com/AleutianAI/railticket/cmd/railticket/internal/backup"
	"github.com/AleutianAI/railticket/cmd/railticket/internal/ledger"
	"github.com/AleutianAI/railticket/pkg/ux"
)

func TestWrapCommandError_ExitCodes(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"validation", fmt.Errorf("%w: 51 requested", ledger.ErrInsufficientSeats), ExitRejected},
		{"unknown booking", ledger.ErrBookingNotFound, ExitRejected},
		{"backup", fmt.Errorf("%w: disk full", backup.ErrBackupFailed), ExitBackupFailed},
		{"config", fmt.Errorf("%w: bad level", config.ErrInvalidConfig), ExitConfig},
		{"aborted", ux.ErrAborted, ExitOK},
		{"other", errors.New("permission denied"), ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cmdErr := WrapCommandError(tt.err, "book")
			require.NotNil(t, cmdErr)
			assert.Equal(t, tt.want, cmdErr.ExitCode)
			assert.ErrorIs(t, cmdErr, tt.err)
			assert.Equal(t, tt.want, ExitCodeOf(tt.err))
		})
	}
}

func TestWrapCommandError_Nil(t *testing.T) {
	assert.Nil(t, WrapCommandError(nil, "book"))
	assert.Equal(t, ExitOK, ExitCodeOf(nil))
}

func TestWrapCommandError_NoDoubleWrap(t *testing.T) {
	first := WrapCommandError(ledger.ErrTrainNotFound, "book")
	second := WrapCommandError(fmt.Errorf("outer: %w", first), "shell")

	assert.Same(t, first, second)
	assert.Equal(t, "book: train not found", second.Error())
}

func TestWrapCommandError_BackupMessageSuggestsRetry(t *testing.T) {
	cmdErr := WrapCommandError(backup.ErrBackupFailed, "cancel")
	assert.Contains(t, cmdErr.Message, "--unprotected")
}
