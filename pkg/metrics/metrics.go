// Copyright The Linux Foundation and each contributor to LFX.
// SPDX-License-Identifier: MIT

package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "tasknest_meetings"

var (
	StoreErrCount = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "err_count",
		Help:      "Failed store operations by backend and method.",
	}, []string{"backend", "method"})
	StoreDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "store",
		Name:      "duration_seconds",
		Help:      "Store operation latency by backend and method.",
	}, []string{"backend", "method"})
	OccurrencesMaterialized = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "series",
		Name:      "occurrences_materialized_total",
		Help:      "Occurrence records written for recurring meetings.",
	})
	SeriesRepaired = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "series",
		Name:      "repaired_total",
		Help:      "Incomplete series rolled back by the repair sweep.",
	})
	ApprovalResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "approvals",
		Name:      "resolutions_total",
		Help:      "Task approval resolutions by outcome.",
	}, []string{"outcome"})
	CallableInvocations = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "callables",
		Name:      "invocations_total",
		Help:      "Remote callable invocations by name and outcome.",
	}, []string{"name", "outcome"})
)

// ObserveStore records the latency of a store call and counts it as failed
// when err is non-nil. Use it with defer:
//
//	defer metrics.ObserveStore("nats", "get", time.Now(), &err)
func ObserveStore(backend, method string, started time.Time, err *error) {
	StoreDuration.WithLabelValues(backend, method).Observe(time.Since(started).Seconds())
	if err != nil && *err != nil {
		StoreErrCount.WithLabelValues(backend, method).Inc()
	}
}

// Outcome returns the label used for success or failure counters.
func Outcome(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
