// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package config

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/AleutianAI/railticket/cmd/railticket/internal/storage"
)

// CurrentConfigVersion is written into new config files.
const CurrentConfigVersion = "1"

type RailticketConfig struct {
	Meta MetaConfig `yaml:"meta"`

	// DataDir holds trains.csv, bookings.json and booking_seq.json.
	DataDir string `yaml:"data_dir" validate:"required"`

	// BackupDir overrides <data_dir>/backups.
	BackupDir string `yaml:"backup_dir,omitempty"`

	Logging LoggingConfig `yaml:"logging"`
	UX      UXConfig      `yaml:"ux"`
	Journal JournalConfig `yaml:"journal"`
	Metrics MetricsConfig `yaml:"metrics"`
	Tracing TracingConfig `yaml:"tracing"`
}

type MetaConfig struct {
	Version string `yaml:"version"`
}

type LoggingConfig struct {
	Level string `yaml:"level" validate:"oneof=debug info warn error"`
	// Dir enables a daily JSON log file when set.
	Dir  string `yaml:"dir,omitempty"`
	JSON bool   `yaml:"json"`
}

type UXConfig struct {
	Personality string `yaml:"personality" validate:"oneof=full standard minimal machine"`
}

type JournalConfig struct {
	Enabled bool `yaml:"enabled"`
	// Dir overrides <data_dir>/journal.
	Dir string `yaml:"dir,omitempty"`
}

type MetricsConfig struct {
	// Textfile is written in node_exporter textfile format on exit.
	Textfile string `yaml:"textfile,omitempty"`
}

type TracingConfig struct {
	Enabled bool   `yaml:"enabled"`
	File    string `yaml:"file,omitempty"`
}

func DefaultConfig() RailticketConfig {
	return RailticketConfig{
		Meta:    MetaConfig{Version: CurrentConfigVersion},
		DataDir: filepath.Join(baseDir(), "data"),
		Logging: LoggingConfig{Level: "warn"},
		UX:      UXConfig{Personality: "standard"},
		Journal: JournalConfig{Enabled: true},
		Tracing: TracingConfig{Enabled: false},
	}
}

// Paths resolves the storage layout, applying the backup_dir override.
func (c RailticketConfig) Paths() storage.Paths {
	paths := storage.DefaultPaths(expandPath(c.DataDir))
	if c.BackupDir != "" {
		paths.BackupDir = expandPath(c.BackupDir)
	}
	return paths
}

// JournalPath is the badger directory for the booking journal.
func (c RailticketConfig) JournalPath() string {
	if c.Journal.Dir != "" {
		return expandPath(c.Journal.Dir)
	}
	return filepath.Join(expandPath(c.DataDir), "journal")
}

// TraceFile is where spans are written when tracing is enabled.
func (c RailticketConfig) TraceFile() string {
	if !c.Tracing.Enabled {
		return ""
	}
	if c.Tracing.File != "" {
		return expandPath(c.Tracing.File)
	}
	return filepath.Join(expandPath(c.DataDir), "traces.jsonl")
}

// baseDir is ~/.railticket, or .railticket if the home directory is unknown.
func baseDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".railticket"
	}
	return filepath.Join(home, ".railticket")
}

func expandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			return filepath.Join(home, strings.TrimPrefix(path, "~"))
		}
	}
	return path
}
