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

	"github.com/AleutianAI/railticket/cmd/railticket/config"
	"github.com/AleutianAI/railticket/cmd/railticket/internal/backup"
	"github.com/AleutianAI/railticket/cmd/railticket/internal/ledger"
	"github.com/AleutianAI/railticket/pkg/ux"
)

// Process exit codes.
const (
	ExitOK           = 0
	ExitFailure      = 1
	ExitRejected     = 2
	ExitBackupFailed = 3
	ExitConfig       = 4
)

// CommandError wraps a command failure with the exit code and the message
// shown to the user.
//
// # Description
//
// Commands return plain errors; main passes them through WrapCommandError
// so that ledger rejections, backup failures and configuration problems
// each get a stable exit code for scripts.
//
// # Example
//
//	err := WrapCommandError(ledger.ErrTrainNotFound, "book")
//	fmt.Println(err.ExitCode) // 2
//
//	var cmdErr *CommandError
//	if errors.As(err, &cmdErr) {
//	    fmt.Println(cmdErr.Message) // "train not found"
//	}
type CommandError struct {
	// Command is the subcommand that failed.
	Command string

	// ExitCode is the process exit code.
	ExitCode int

	// Message is the user-facing text.
	Message string

	// Wrapped is the underlying error.
	Wrapped error
}

// Error returns a formatted error message.
func (e *CommandError) Error() string {
	if e.Command == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Command, e.Message)
}

// Unwrap returns the underlying error.
func (e *CommandError) Unwrap() error {
	return e.Wrapped
}

// WrapCommandError classifies err into a CommandError. A nil err returns nil
// and an existing CommandError is returned as-is.
func WrapCommandError(err error, command string) *CommandError {
	if err == nil {
		return nil
	}

	var cmdErr *CommandError
	if errors.As(err, &cmdErr) {
		return cmdErr
	}

	ce := &CommandError{Command: command, ExitCode: ExitFailure, Message: err.Error(), Wrapped: err}
	switch {
	case ledger.IsValidation(err):
		ce.ExitCode = ExitRejected
	case errors.Is(err, backup.ErrBackupFailed):
		ce.ExitCode = ExitBackupFailed
		ce.Message = err.Error() + " (nothing was written; retry with --unprotected to write without a snapshot)"
	case errors.Is(err, config.ErrInvalidConfig):
		ce.ExitCode = ExitConfig
	case errors.Is(err, ux.ErrAborted):
		ce.ExitCode = ExitOK
		ce.Message = "aborted"
	}
	return ce
}

// ExitCodeOf returns the exit code for err.
func ExitCodeOf(err error) int {
	if err == nil {
		return ExitOK
	}
	return WrapCommandError(err, "").ExitCode
}
