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
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
)

// ErrAborted is returned when the user cancels a prompt or input ends.
var ErrAborted = errors.New("input aborted")

// Option is one choice of a Select prompt.
type Option struct {
	Label string
	Value int
}

// Prompter asks the user for input.
type Prompter interface {
	// Input asks for a line of text.
	Input(title string) (string, error)

	// Select asks the user to pick one of options and returns its Value.
	Select(title string, options []Option) (int, error)

	// Confirm asks a yes/no question.
	Confirm(title string) (bool, error)
}

// NewPrompter returns a huh-based prompter when stdin and stdout are
// terminals and the level is not machine, otherwise a line prompter on
// stdin/stdout.
func NewPrompter(level PersonalityLevel) Prompter {
	if level != PersonalityMachine && IsTerminal(os.Stdin) && IsTerminal(os.Stdout) {
		return &FormPrompter{theme: railTheme()}
	}
	return NewLinePrompter(os.Stdin, os.Stdout)
}

// =============================================================================
// Form Prompter (huh)
// =============================================================================

// FormPrompter renders each prompt as a single-field huh form.
type FormPrompter struct {
	theme *huh.Theme
}

func (p *FormPrompter) run(field huh.Field) error {
	err := huh.NewForm(huh.NewGroup(field)).WithTheme(p.theme).Run()
	if errors.Is(err, huh.ErrUserAborted) {
		return ErrAborted
	}
	return err
}

// Input implements Prompter.
func (p *FormPrompter) Input(title string) (string, error) {
	var value string
	err := p.run(huh.NewInput().Title(title).Value(&value))
	return value, err
}

// Select implements Prompter.
func (p *FormPrompter) Select(title string, options []Option) (int, error) {
	opts := make([]huh.Option[int], 0, len(options))
	for _, o := range options {
		opts = append(opts, huh.NewOption(o.Label, o.Value))
	}
	var value int
	err := p.run(huh.NewSelect[int]().Title(title).Options(opts...).Value(&value))
	return value, err
}

// Confirm implements Prompter.
func (p *FormPrompter) Confirm(title string) (bool, error) {
	var value bool
	err := p.run(huh.NewConfirm().Title(title).Affirmative("Yes").Negative("No").Value(&value))
	return value, err
}

// railTheme styles huh forms with the railticket palette.
func railTheme() *huh.Theme {
	t := huh.ThemeBase()

	t.Focused.Base = t.Focused.Base.BorderForeground(ColorSteel)
	t.Focused.Title = t.Focused.Title.Foreground(ColorBrass).Bold(true)
	t.Focused.Description = t.Focused.Description.Foreground(ColorSlate)
	t.Focused.ErrorIndicator = t.Focused.ErrorIndicator.Foreground(ColorSignalRed)
	t.Focused.ErrorMessage = t.Focused.ErrorMessage.Foreground(ColorSignalRed)
	t.Focused.SelectSelector = t.Focused.SelectSelector.Foreground(ColorSignalGreen)
	t.Focused.SelectedOption = t.Focused.SelectedOption.Foreground(ColorSignalGreen)
	t.Focused.FocusedButton = t.Focused.FocusedButton.Foreground(lipgloss.Color("#0F1923")).Background(ColorBrass)
	t.Focused.TextInput.Cursor = t.Focused.TextInput.Cursor.Foreground(ColorBrass)
	t.Focused.TextInput.Prompt = t.Focused.TextInput.Prompt.Foreground(ColorSteel)

	t.Blurred = t.Focused
	t.Blurred.Base = t.Blurred.Base.BorderStyle(lipgloss.HiddenBorder())
	return t
}

// =============================================================================
// Line Prompter
// =============================================================================

// LinePrompter reads answers one line at a time. It is used when input is
// piped and in tests.
type LinePrompter struct {
	in  *bufio.Reader
	out io.Writer
}

// NewLinePrompter creates a LinePrompter.
func NewLinePrompter(in io.Reader, out io.Writer) *LinePrompter {
	return &LinePrompter{in: bufio.NewReader(in), out: out}
}

func (p *LinePrompter) readLine() (string, error) {
	line, err := p.in.ReadString('\n')
	if err != nil && (line == "" || !errors.Is(err, io.EOF)) {
		if errors.Is(err, io.EOF) {
			return "", ErrAborted
		}
		return "", err
	}
	return strings.TrimRight(line, "\r\n"), nil
}

// Input implements Prompter.
func (p *LinePrompter) Input(title string) (string, error) {
	fmt.Fprintf(p.out, "%s: ", title)
	return p.readLine()
}

// Select implements Prompter. The user answers with the option's Value.
func (p *LinePrompter) Select(title string, options []Option) (int, error) {
	fmt.Fprintln(p.out, title)
	for _, o := range options {
		fmt.Fprintf(p.out, "%d. %s\n", o.Value, o.Label)
	}
	for {
		fmt.Fprint(p.out, "Enter your choice: ")
		line, err := p.readLine()
		if err != nil {
			return 0, err
		}
		if n, err := strconv.Atoi(strings.TrimSpace(line)); err == nil {
			for _, o := range options {
				if o.Value == n {
					return n, nil
				}
			}
		}
		fmt.Fprintln(p.out, "Invalid choice. Please try again.")
	}
}

// Confirm implements Prompter. Anything but y/yes is no.
func (p *LinePrompter) Confirm(title string) (bool, error) {
	fmt.Fprintf(p.out, "%s [y/N]: ", title)
	line, err := p.readLine()
	if err != nil {
		return false, err
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true, nil
	default:
		return false, nil
	}
}
