// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ux

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// =============================================================================
// LinePrompter Tests
// =============================================================================

func TestLinePrompter_Input(t *testing.T) {
	var out bytes.Buffer
	p := NewLinePrompter(strings.NewReader("Alice\r\n30\n"), &out)

	name, err := p.Input("Passenger name")
	require.NoError(t, err)
	age, err := p.Input("Age")
	require.NoError(t, err)

	assert.Equal(t, "Alice", name)
	assert.Equal(t, "30", age)
	assert.Equal(t, "Passenger name: Age: ", out.String())
}

func TestLinePrompter_InputWithoutTrailingNewline(t *testing.T) {
	p := NewLinePrompter(strings.NewReader("101"), &bytes.Buffer{})

	got, err := p.Input("Train")

	require.NoError(t, err)
	assert.Equal(t, "101", got)
}

func TestLinePrompter_EndOfInputAborts(t *testing.T) {
	p := NewLinePrompter(strings.NewReader(""), &bytes.Buffer{})

	_, err := p.Input("Train")

	assert.ErrorIs(t, err, ErrAborted)
}

func TestLinePrompter_SelectRetriesInvalidChoice(t *testing.T) {
	var out bytes.Buffer
	p := NewLinePrompter(strings.NewReader("9\nabc\n2\n"), &out)
	options := []Option{{Label: "View trains", Value: 1}, {Label: "Book ticket", Value: 2}}

	got, err := p.Select("Menu", options)

	require.NoError(t, err)
	assert.Equal(t, 2, got)
	assert.Equal(t, 2, strings.Count(out.String(), "Invalid choice"))
	assert.Contains(t, out.String(), "1. View trains")
}

func TestLinePrompter_Confirm(t *testing.T) {
	tests := []struct {
		input string
		want  bool
	}{
		{"y\n", true},
		{"YES\n", true},
		{"n\n", false},
		{"\n", false},
		{"maybe\n", false},
	}
	for _, tt := range tests {
		p := NewLinePrompter(strings.NewReader(tt.input), &bytes.Buffer{})
		got, err := p.Confirm("Write without backup?")
		require.NoError(t, err)
		assert.Equal(t, tt.want, got, "input %q", tt.input)
	}
}

// =============================================================================
// Theme Tests
// =============================================================================

func TestRailTheme_ReturnsNonNil(t *testing.T) {
	theme := railTheme()
	require.NotNil(t, theme)
	assert.True(t, theme.Focused.Title.GetBold())
}

func TestNewPrompter_MachineUsesLines(t *testing.T) {
	_, ok := NewPrompter(PersonalityMachine).(*LinePrompter)
	assert.True(t, ok)
}
