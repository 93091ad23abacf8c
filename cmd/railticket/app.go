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
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/AleutianAI/railticket/cmd/railticket/config"
	"github.com/AleutianAI/railticket/cmd/railticket/internal/backup"
	"github.com/AleutianAI/railticket/cmd/railticket/internal/journal"
	"github.com/AleutianAI/railticket/cmd/railticket/internal/ledger"
	"github.com/AleutianAI/railticket/cmd/railticket/internal/storage"
	"github.com/AleutianAI/railticket/cmd/railticket/internal/telemetry"
	"github.com/AleutianAI/railticket/pkg/logging"
	"github.com/AleutianAI/railticket/pkg/ux"
)

// rootOptions holds the persistent flags.
type rootOptions struct {
	configPath  string
	envFile     string
	dataDir     string
	logLevel    string
	personality string
}

// app is everything a command needs for one run.
//
// Build it with newApp and always call close, which flushes spans, writes
// the metrics textfile and closes the journal and log file.
type app struct {
	cfg       config.RailticketConfig
	paths     storage.Paths
	logger    *logging.Logger
	telemetry *telemetry.Telemetry
	metrics   *ledger.Metrics
	backups   *backup.FileStore
	loader    *storage.Loader
	journal   *journal.Journal
	printer   *ux.Printer
}

// newApp loads configuration, applies flag overrides and sets up logging,
// telemetry and storage. The journal is opened lazily by openJournal.
func newApp(ctx context.Context, opts *rootOptions, out, errOut io.Writer) (*app, error) {
	cfg, err := config.Load(config.LoadOptions{
		Path:    opts.configPath,
		EnvFile: opts.envFile,
		Announce: func(path string) {
			fmt.Fprintf(errOut, "Creating default configuration at %s\n", path)
		},
	})
	if err != nil {
		return nil, err
	}

	if opts.dataDir != "" {
		cfg.DataDir = opts.dataDir
	}
	if opts.logLevel != "" {
		cfg.Logging.Level = opts.logLevel
	}
	if opts.personality != "" {
		cfg.UX.Personality = opts.personality
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	level := ux.InitPersonality(cfg.UX.Personality)
	if opts.personality != "" {
		level = ux.ParsePersonalityLevel(opts.personality)
		ux.SetPersonality(level)
	}

	logLevel, err := logging.ParseLevel(cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", config.ErrInvalidConfig, err)
	}
	logger := logging.New(logging.Config{
		Level:   logLevel,
		LogDir:  cfg.Logging.Dir,
		Service: "railticket",
		JSON:    cfg.Logging.JSON,
		Output:  errOut,
	})

	tel, err := telemetry.Init(ctx, telemetry.Config{
		ServiceName:    "railticket",
		ServiceVersion: version,
		TraceFile:      cfg.TraceFile(),
		MetricsFile:    cfg.Metrics.Textfile,
	})
	if err != nil {
		logger.Close()
		return nil, err
	}

	paths := cfg.Paths()
	backups := backup.NewFileStore(backup.Config{Dir: paths.BackupDir, Logger: logger.Slog()})

	return &app{
		cfg:       cfg,
		paths:     paths,
		logger:    logger,
		telemetry: tel,
		metrics:   ledger.NewMetrics(tel.Registry()),
		backups:   backups,
		loader:    storage.NewLoader(paths, backups, logger.Slog()),
		printer:   &ux.Printer{Out: out, Err: errOut, Level: level},
	}, nil
}

// openJournal opens the booking journal if it is enabled. A journal that
// cannot be opened is logged and left nil; bookings still work without it.
func (a *app) openJournal() *journal.Journal {
	if a.journal != nil || !a.cfg.Journal.Enabled {
		return a.journal
	}
	j, err := journal.Open(journal.Config{
		Path:       a.cfg.JournalPath(),
		SyncWrites: true,
		Logger:     a.logger.Slog(),
	})
	if err != nil {
		a.logger.Warn("journal unavailable", slog.String("error", err.Error()))
		return nil
	}
	a.journal = j
	return j
}

// openLedger loads the ledger and prints any recovery warnings.
func (a *app) openLedger(ctx context.Context) (*ledger.Ledger, error) {
	opts := ledger.Options{
		Paths:   a.paths,
		Backups: a.backups,
		Metrics: a.metrics,
		Logger:  a.logger.Slog(),
	}
	if j := a.openJournal(); j != nil {
		opts.Journal = j
	}

	l, err := ledger.Open(ctx, opts)
	if err != nil {
		return nil, err
	}
	for _, w := range l.Warnings() {
		a.printer.Warning(w.String())
	}
	return l, nil
}

// close releases everything newApp and openJournal acquired.
func (a *app) close(ctx context.Context) {
	if a.journal != nil {
		if err := a.journal.Close(); err != nil {
			a.logger.Warn("closing journal", slog.String("error", err.Error()))
		}
	}
	if err := a.telemetry.Shutdown(ctx); err != nil {
		a.logger.Warn("telemetry shutdown", slog.String("error", err.Error()))
	}
	a.logger.Close()
}
