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
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"
)

// clearEnv unsets the override variables for the duration of the test.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range []string{EnvDataDir, EnvBackupDir, EnvLogLevel, EnvPersonality} {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func noEnvFile(t *testing.T) string {
	return filepath.Join(t.TempDir(), "missing.env")
}

// TestLoad_CreatesDefault verifies first-run config creation.
func TestLoad_CreatesDefault(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "deep", "nested", "railticket.yaml")
	var announced string

	cfg, err := Load(LoadOptions{Path: path, EnvFile: noEnvFile(t), Announce: func(p string) { announced = p }})

	require.NoError(t, err)
	assert.Equal(t, path, announced)
	assert.Equal(t, CurrentConfigVersion, cfg.Meta.Version)
	assert.Equal(t, "warn", cfg.Logging.Level)
	assert.Equal(t, "standard", cfg.UX.Personality)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var onDisk RailticketConfig
	require.NoError(t, yaml.Unmarshal(data, &onDisk))
	assert.Equal(t, DefaultConfig(), onDisk)
}

func TestLoad_ReadsFileAndKeepsDefaultsForMissingKeys(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "railticket.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /srv/rail\nlogging:\n  level: debug\n"), 0640))

	cfg, err := Load(LoadOptions{Path: path, EnvFile: noEnvFile(t)})

	require.NoError(t, err)
	assert.Equal(t, "/srv/rail", cfg.DataDir)
	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "standard", cfg.UX.Personality)
	assert.True(t, cfg.Journal.Enabled)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "railticket.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /srv/rail\n"), 0640))
	t.Setenv(EnvDataDir, "/tmp/override")
	t.Setenv(EnvPersonality, "machine")

	cfg, err := Load(LoadOptions{Path: path, EnvFile: noEnvFile(t)})

	require.NoError(t, err)
	assert.Equal(t, "/tmp/override", cfg.DataDir)
	assert.Equal(t, "machine", cfg.UX.Personality)
}

func TestLoad_DotEnvFile(t *testing.T) {
	clearEnv(t)
	dir := t.TempDir()
	path := filepath.Join(dir, "railticket.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /srv/rail\n"), 0640))
	envFile := filepath.Join(dir, ".env")
	require.NoError(t, os.WriteFile(envFile, []byte("RAILTICKET_LOG_LEVEL=error\nRAILTICKET_BACKUP_DIR=/srv/backups\n"), 0640))

	cfg, err := Load(LoadOptions{Path: path, EnvFile: envFile})

	require.NoError(t, err)
	assert.Equal(t, "error", cfg.Logging.Level)
	assert.Equal(t, "/srv/backups", cfg.Paths().BackupDir)
}

func TestLoad_InvalidValues(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "railticket.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: /srv/rail\nlogging:\n  level: loud\n"), 0640))

	_, err := Load(LoadOptions{Path: path, EnvFile: noEnvFile(t)})

	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestLoad_MalformedYAML(t *testing.T) {
	clearEnv(t)
	path := filepath.Join(t.TempDir(), "railticket.yaml")
	require.NoError(t, os.WriteFile(path, []byte("data_dir: [unterminated\n"), 0640))

	_, err := Load(LoadOptions{Path: path, EnvFile: noEnvFile(t)})

	assert.Error(t, err)
}
