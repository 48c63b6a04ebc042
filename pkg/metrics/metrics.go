// Package metrics exposes Prometheus instrumentation for the audit
// pipeline: how many records were emitted, persisted, and dropped, how long
// persistence takes, and whether rule refreshes succeed.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the collectors for the audit pipeline. A single instance is
// shared by the interceptor, sink, and rule refresher.
type Metrics struct {
	// RecordsEmitted counts audit records handed to the sink.
	RecordsEmitted prometheus.Counter

	// RecordsPersisted counts records successfully stored.
	RecordsPersisted prometheus.Counter

	// RecordsDropped counts records lost to persistence failures or a
	// closed sink. Labels: reason (store_error, sink_closed).
	RecordsDropped *prometheus.CounterVec

	// PersistDuration tracks the latency of the persistence collaborator.
	PersistDuration prometheus.Histogram

	// RuleRefreshes counts rule snapshot refresh attempts.
	// Labels: result (ok, error).
	RuleRefreshes *prometheus.CounterVec

	// RulesLoaded gauges the size of the current rule snapshot.
	RulesLoaded prometheus.Gauge
}

// New creates the audit pipeline collectors and registers them with reg.
// Pass prometheus.DefaultRegisterer for the process-wide registry, or a
// fresh registry in tests.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RecordsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audit_records_emitted_total",
			Help: "Total number of audit records submitted to the sink.",
		}),
		RecordsPersisted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "audit_records_persisted_total",
			Help: "Total number of audit records successfully persisted.",
		}),
		RecordsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_records_dropped_total",
			Help: "Total number of audit records dropped.",
		}, []string{"reason"}),
		PersistDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "audit_persist_duration_seconds",
			Help:    "Latency of the audit persistence collaborator.",
			Buckets: prometheus.DefBuckets,
		}),
		RuleRefreshes: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "audit_rule_refreshes_total",
			Help: "Total number of audit rule snapshot refresh attempts.",
		}, []string{"result"}),
		RulesLoaded: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "audit_rules_loaded",
			Help: "Number of rules in the current snapshot.",
		}),
	}

	if reg != nil {
		reg.MustRegister(
			m.RecordsEmitted,
			m.RecordsPersisted,
			m.RecordsDropped,
			m.PersistDuration,
			m.RuleRefreshes,
			m.RulesLoaded,
		)
	}
	return m
}

// Nop returns unregistered collectors that can be incremented freely.
// Use it when metrics are disabled or irrelevant, e.g. in unit tests.
func Nop() *Metrics {
	return New(nil)
}

// Drop reasons.
const (
	DropStoreError = "store_error"
	DropSinkClosed = "sink_closed"
)

// Refresh results.
const (
	RefreshOK    = "ok"
	RefreshError = "error"
)
