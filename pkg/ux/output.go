// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.

// Package ux provides terminal output styling and prompts for railticket.
package ux

import (
	"fmt"
	"io"
	"os"

	"github.com/charmbracelet/lipgloss"
)

// railticket palette - signal lamps on slate
var (
	ColorSignalGreen = lipgloss.Color("#2ECC71") // clear signal - success
	ColorSignalAmber = lipgloss.Color("#F4D03F") // caution - warnings
	ColorSignalRed   = lipgloss.Color("#E74C3C") // stop - errors
	ColorBrass       = lipgloss.Color("#D4A017") // titles, highlights
	ColorSteel       = lipgloss.Color("#5D8AA8") // borders, headers
	ColorSlate       = lipgloss.Color("#6C7A89") // muted text
)

// Styles provides pre-configured lipgloss styles
var Styles = struct {
	Title     lipgloss.Style
	Bold      lipgloss.Style
	Muted     lipgloss.Style
	Success   lipgloss.Style
	Warning   lipgloss.Style
	Error     lipgloss.Style
	Highlight lipgloss.Style
	Header    lipgloss.Style
	Cell      lipgloss.Style

	Box        lipgloss.Style
	WarningBox lipgloss.Style
}{
	Title:     lipgloss.NewStyle().Bold(true).Foreground(ColorBrass),
	Bold:      lipgloss.NewStyle().Bold(true),
	Muted:     lipgloss.NewStyle().Foreground(ColorSlate),
	Success:   lipgloss.NewStyle().Foreground(ColorSignalGreen),
	Warning:   lipgloss.NewStyle().Foreground(ColorSignalAmber),
	Error:     lipgloss.NewStyle().Foreground(ColorSignalRed),
	Highlight: lipgloss.NewStyle().Foreground(ColorBrass).Bold(true),
	Header:    lipgloss.NewStyle().Bold(true).Foreground(ColorSteel).Padding(0, 1),
	Cell:      lipgloss.NewStyle().Padding(0, 1),

	Box: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorSteel).
		Padding(0, 1),
	WarningBox: lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(ColorSignalAmber).
		Padding(0, 1),
}

// Icon provides themed status icons
type Icon string

const (
	IconSuccess Icon = "✓"
	IconWarning Icon = "⚠"
	IconError   Icon = "✗"
	IconArrow   Icon = "→"
	IconBullet  Icon = "•"
	IconTrain   Icon = "🚆"
)

// Render returns the icon with appropriate styling
func (i Icon) Render() string {
	switch i {
	case IconSuccess:
		return Styles.Success.Render(string(i))
	case IconWarning:
		return Styles.Warning.Render(string(i))
	case IconError:
		return Styles.Error.Render(string(i))
	default:
		return string(i)
	}
}

// Printer writes styled messages according to a personality level. Results
// go to Out; warnings and errors in machine mode go to Err so that scripted
// output stays parseable.
type Printer struct {
	Out   io.Writer
	Err   io.Writer
	Level PersonalityLevel
}

// NewPrinter returns a Printer on stdout/stderr at the current level.
func NewPrinter() *Printer {
	return &Printer{Out: os.Stdout, Err: os.Stderr, Level: GetPersonality()}
}

// Title prints a styled title
func (p *Printer) Title(text string) {
	if p.Level == PersonalityMachine {
		return
	}
	if p.Level == PersonalityFull {
		text = string(IconTrain) + " " + text
	}
	fmt.Fprintln(p.Out, Styles.Title.Render(text))
}

// Success prints a success message with checkmark
func (p *Printer) Success(text string) {
	switch p.Level {
	case PersonalityMachine:
		fmt.Fprintf(p.Out, "OK: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(p.Out, "%s %s\n", IconSuccess, text)
	default:
		fmt.Fprintf(p.Out, "%s %s\n", IconSuccess.Render(), Styles.Success.Render(text))
	}
}

// Warning prints a warning message
func (p *Printer) Warning(text string) {
	switch p.Level {
	case PersonalityMachine:
		fmt.Fprintf(p.Err, "WARN: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(p.Out, "%s %s\n", IconWarning, text)
	default:
		fmt.Fprintf(p.Out, "%s %s\n", IconWarning.Render(), Styles.Warning.Render(text))
	}
}

// Error prints an error message
func (p *Printer) Error(text string) {
	switch p.Level {
	case PersonalityMachine:
		fmt.Fprintf(p.Err, "ERROR: %s\n", text)
	case PersonalityMinimal:
		fmt.Fprintf(p.Out, "%s %s\n", IconError, text)
	default:
		fmt.Fprintf(p.Out, "%s %s\n", IconError.Render(), Styles.Error.Render(text))
	}
}

// Info prints an informational message
func (p *Printer) Info(text string) {
	switch p.Level {
	case PersonalityMachine, PersonalityMinimal:
		fmt.Fprintln(p.Out, text)
	default:
		fmt.Fprintf(p.Out, "%s %s\n", Styles.Muted.Render("│"), text)
	}
}

// Muted prints secondary text; nothing in machine mode.
func (p *Printer) Muted(text string) {
	if p.Level == PersonalityMachine {
		return
	}
	fmt.Fprintln(p.Out, Styles.Muted.Render(text))
}

// Box prints text in a rounded box
func (p *Printer) Box(title, content string) {
	if p.Level == PersonalityMachine || p.Level == PersonalityMinimal {
		fmt.Fprintf(p.Out, "%s: %s\n", title, content)
		return
	}
	fmt.Fprintln(p.Out, Styles.Box.Width(60).Render(Styles.Title.Render(title)+"\n"+content))
}

// WarningBox prints text in a warning-styled box
func (p *Printer) WarningBox(title, content string) {
	if p.Level == PersonalityMachine {
		fmt.Fprintf(p.Err, "WARN %s: %s\n", title, content)
		return
	}
	if p.Level == PersonalityMinimal {
		fmt.Fprintf(p.Out, "%s %s: %s\n", IconWarning, title, content)
		return
	}
	titleLine := Styles.Warning.Bold(true).Render(title)
	fmt.Fprintln(p.Out, Styles.WarningBox.Width(60).Render(titleLine+"\n"+content))
}

// Table prints a table; see RenderTable.
func (p *Printer) Table(headers []string, rows [][]string) {
	fmt.Fprintln(p.Out, RenderTable(p.Level, headers, rows))
}
