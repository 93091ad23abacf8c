// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package telemetry sets up tracing and metrics output for one CLI run.
//
// Spans go to a local file through the stdout exporter; metrics are kept in
// a Prometheus registry and written in textfile-collector format on exit.
// Nothing leaves the machine.
package telemetry

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	"go.opentelemetry.io/otel/sdk/resource"
	"go.opentelemetry.io/otel/sdk/trace"
)

// Config controls telemetry behavior.
type Config struct {
	// ServiceName identifies this program in spans.
	ServiceName string

	// ServiceVersion is the build version.
	ServiceVersion string

	// TraceFile receives spans as JSON. Empty disables tracing.
	TraceFile string

	// MetricsFile receives the registry in textfile format on Shutdown.
	// Empty disables the write.
	MetricsFile string
}

// Telemetry owns the tracer provider and metrics registry for a run.
type Telemetry struct {
	cfg       Config
	registry  *prometheus.Registry
	provider  *trace.TracerProvider
	traceFile *os.File
}

// Init installs the tracer provider when cfg.TraceFile is set and creates a
// fresh metrics registry with the Go and process collectors.
//
// Description:
//
//	Without a trace file the global no-op tracer provider stays in place, so
//	spans cost nothing. The returned Telemetry must be shut down.
//
// Inputs:
//
//	ctx - Context for initialization.
//	cfg - Telemetry configuration.
//
// Outputs:
//
//	*Telemetry - Call Shutdown on exit.
//	error - Non-nil if the trace file or exporter cannot be created.
func Init(ctx context.Context, cfg Config) (*Telemetry, error) {
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	t := &Telemetry{cfg: cfg, registry: registry}

	if cfg.TraceFile == "" {
		return t, nil
	}

	if err := os.MkdirAll(filepath.Dir(cfg.TraceFile), 0750); err != nil {
		return nil, fmt.Errorf("create trace directory: %w", err)
	}
	f, err := os.OpenFile(cfg.TraceFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return nil, fmt.Errorf("open trace file: %w", err)
	}

	exporter, err := stdouttrace.New(stdouttrace.WithWriter(f))
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create exporter: %w", err)
	}

	res := resource.NewWithAttributes(
		"",
		attribute.String("service.name", cfg.ServiceName),
		attribute.String("service.version", cfg.ServiceVersion),
	)
	t.provider = trace.NewTracerProvider(
		trace.WithBatcher(exporter),
		trace.WithResource(res),
		trace.WithSampler(trace.AlwaysSample()),
	)
	t.traceFile = f
	otel.SetTracerProvider(t.provider)
	return t, nil
}

// Registry is where application collectors are registered.
func (t *Telemetry) Registry() *prometheus.Registry {
	return t.registry
}

// Shutdown flushes spans, closes the trace file and writes the metrics file.
func (t *Telemetry) Shutdown(ctx context.Context) error {
	var errs []error
	if t.provider != nil {
		if err := t.provider.Shutdown(ctx); err != nil {
			errs = append(errs, fmt.Errorf("shutdown tracer: %w", err))
		}
	}
	if t.traceFile != nil {
		if err := t.traceFile.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	if t.cfg.MetricsFile != "" {
		if err := WriteMetrics(t.registry, t.cfg.MetricsFile); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// WriteMetrics writes g to path in the node_exporter textfile format.
func WriteMetrics(g prometheus.Gatherer, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("create metrics directory: %w", err)
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("write metrics: %w", err)
	}
	return nil
}
