// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package watch re-validates the data files when they change on disk.
//
// The data directory is watched rather than the files themselves because
// atomic writes replace the file, which would drop a per-file watch.
package watch

import (
	"context"
	"log/slog"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/AleutianAI/railticket/cmd/railticket/internal/storage"
)

// Checker validates and recovers data files. *storage.Loader implements it.
type Checker interface {
	CheckFile(path string) error
	Recover(ctx context.Context, path string) (storage.LoadReport, error)
}

// Result describes one check of a changed file.
type Result struct {
	// Path is the file that changed.
	Path string

	// Err is the decode error, nil if the file is valid.
	Err error

	// Recovery is set when auto-restore ran.
	Recovery *storage.LoadReport
}

// Options configures a DataWatcher.
type Options struct {
	// AutoRestore restores the newest valid snapshot when a file is corrupt.
	AutoRestore bool

	// OnResult is called after every check. Optional.
	OnResult func(Result)

	// Logger defaults to slog.Default().
	Logger *slog.Logger
}

// DataWatcher watches the train table and booking list.
type DataWatcher struct {
	dir     string
	files   map[string]bool
	checker Checker
	opts    Options
	logger  *slog.Logger
	watcher *fsnotify.Watcher
}

// New creates a watcher for the files in paths. Call Start to begin and
// Stop to release the underlying watcher.
func New(paths storage.Paths, checker Checker, opts Options) (*DataWatcher, error) {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &DataWatcher{
		dir: filepath.Dir(paths.TrainsFile),
		files: map[string]bool{
			filepath.Clean(paths.TrainsFile):   true,
			filepath.Clean(paths.BookingsFile): true,
		},
		checker: checker,
		opts:    opts,
		logger:  opts.Logger.With(slog.String("component", "watch")),
		watcher: watcher,
	}, nil
}

// Start watches until ctx is cancelled or the watcher is stopped. It blocks.
func (w *DataWatcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(w.dir); err != nil {
		return err
	}
	w.logger.Info("watching data files", slog.String("dir", w.dir))

	for {
		select {
		case event, ok := <-w.watcher.Events:
			if !ok {
				return nil
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("data file watcher error", slog.String("error", err.Error()))

		case <-ctx.Done():
			w.logger.Debug("data file watcher stopping")
			return nil
		}
	}
}

func (w *DataWatcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
		return
	}
	path := filepath.Clean(event.Name)
	if !w.files[path] {
		return
	}

	result := Result{Path: path, Err: w.checker.CheckFile(path)}
	if result.Err == nil {
		w.logger.Debug("data file changed and is valid", slog.String("path", path))
	} else {
		w.logger.Warn("data file changed and is unreadable",
			slog.String("path", path),
			slog.String("error", result.Err.Error()))

		if w.opts.AutoRestore {
			report, err := w.checker.Recover(ctx, path)
			if err != nil {
				w.logger.Error("auto-restore failed", slog.String("path", path), slog.String("error", err.Error()))
			} else {
				result.Recovery = &report
				w.logger.Warn("auto-restore ran", slog.String("path", path), slog.String("result", report.String()))
			}
		}
	}

	if w.opts.OnResult != nil {
		w.opts.OnResult(result)
	}
}

// Stop closes the underlying watcher, which also ends Start.
func (w *DataWatcher) Stop() error {
	return w.watcher.Close()
}
