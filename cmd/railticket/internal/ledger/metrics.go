// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package ledger

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Result label values.
const (
	ResultOK       = "ok"
	ResultRejected = "rejected"
	ResultFailed   = "failed"
)

// Metrics holds the ledger's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	bookings      *prometheus.CounterVec
	cancellations *prometheus.CounterVec
	snapshots     *prometheus.CounterVec
	recoveries    *prometheus.CounterVec
}

// NewMetrics registers the ledger collectors on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		bookings: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "railticket_bookings_total",
			Help: "Booking attempts by result",
		}, []string{"result"}),
		cancellations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "railticket_cancellations_total",
			Help: "Cancellation attempts by result",
		}, []string{"result"}),
		snapshots: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "railticket_snapshots_total",
			Help: "Snapshots captured before overwriting a data file",
		}, []string{"file"}),
		recoveries: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "railticket_recoveries_total",
			Help: "Data files that could not be loaded as-is, by fallback source",
		}, []string{"file", "source"}),
	}
}

func (m *Metrics) booking(result string) {
	if m != nil {
		m.bookings.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) cancellation(result string) {
	if m != nil {
		m.cancellations.WithLabelValues(result).Inc()
	}
}

func (m *Metrics) snapshot(file string) {
	if m != nil {
		m.snapshots.WithLabelValues(file).Inc()
	}
}

// Recovery counts a data file that was loaded from a snapshot or defaults.
// The watcher reports its auto-restores here too.
func (m *Metrics) Recovery(file, source string) {
	if m != nil {
		m.recoveries.WithLabelValues(file, source).Inc()
	}
}
