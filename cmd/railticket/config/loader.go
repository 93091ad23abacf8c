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
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Environment overrides, applied after the config file.
const (
	EnvDataDir     = "RAILTICKET_DATA_DIR"
	EnvBackupDir   = "RAILTICKET_BACKUP_DIR"
	EnvLogLevel    = "RAILTICKET_LOG_LEVEL"
	EnvPersonality = "RAILTICKET_PERSONALITY"
)

// ErrInvalidConfig wraps validation failures.
var ErrInvalidConfig = errors.New("invalid configuration")

var validate = validator.New()

// LoadOptions says where to read configuration from.
type LoadOptions struct {
	// Path is the YAML file. Empty uses DefaultPath().
	Path string

	// EnvFile is a dotenv file loaded before overrides are read. Missing
	// files are ignored. Empty uses ".env" in the working directory.
	EnvFile string

	// Announce is called with the path when a default file is created.
	Announce func(path string)
}

// DefaultPath is ~/.railticket/railticket.yaml.
func DefaultPath() string {
	return filepath.Join(baseDir(), "railticket.yaml")
}

// Load reads the config file, creating it with defaults on first run, then
// applies the dotenv file and RAILTICKET_* environment overrides and
// validates the result.
func Load(opts LoadOptions) (RailticketConfig, error) {
	path := opts.Path
	if path == "" {
		path = DefaultPath()
	}

	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		if opts.Announce != nil {
			opts.Announce(path)
		}
		if err := createDefault(path); err != nil {
			return RailticketConfig{}, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return RailticketConfig{}, fmt.Errorf("failed to read the config file: %w", err)
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return RailticketConfig{}, fmt.Errorf("failed to parse the config file %s: %w", path, err)
	}

	envFile := opts.EnvFile
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return RailticketConfig{}, fmt.Errorf("failed to load %s: %w", envFile, err)
	}
	applyEnv(&cfg)

	if err := cfg.Validate(); err != nil {
		return RailticketConfig{}, err
	}
	return cfg, nil
}

// Validate checks the struct tags.
func (c RailticketConfig) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return nil
}

func applyEnv(cfg *RailticketConfig) {
	if v := os.Getenv(EnvDataDir); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv(EnvBackupDir); v != "" {
		cfg.BackupDir = v
	}
	if v := os.Getenv(EnvLogLevel); v != "" {
		cfg.Logging.Level = v
	}
	if v := os.Getenv(EnvPersonality); v != "" {
		cfg.UX.Personality = v
	}
}

func createDefault(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create the config directory: %w", err)
	}
	data, err := yaml.Marshal(DefaultConfig())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0640)
}
