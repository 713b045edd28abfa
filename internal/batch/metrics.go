// Copyright Amazon.com, Inc. or its affiliates. All Rights Reserved.
// SPDX-License-Identifier: Apache-2.0

package batch

import (
	"fmt"
	"time"

	"archivist/internal/metadata"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	// MetricsNamespace is the namespace for all batch metrics.
	MetricsNamespace = "archivist"

	// MetricsSubsystem is the subsystem for batch metrics.
	MetricsSubsystem = "batch"
)

// Metrics holds the Prometheus metrics of batch runs. Every Metrics owns its
// registry so runs and tests never collide on registration.
type Metrics struct {
	registry *prometheus.Registry

	ArchivesTotal      *prometheus.CounterVec
	ArchiveDuration    prometheus.Histogram
	PagesTotal         prometheus.Counter
	RuleDecisionsTotal *prometheus.CounterVec
	PeriodLocksTotal   *prometheus.CounterVec
	DisclosureTotal    *prometheus.CounterVec
	CodeResolution     *prometheus.CounterVec
	LastRunTimestamp   prometheus.Gauge
}

// NewMetrics creates and registers the batch metrics.
func NewMetrics() *Metrics {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)
	m := &Metrics{registry: reg}

	m.initArchiveMetrics(factory)
	m.initRuleMetrics(factory)
	return m
}

func (m *Metrics) initArchiveMetrics(factory promauto.Factory) {
	m.ArchivesTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystem,
			Name:      "archives_total",
			Help:      "Archives processed, by outcome",
		},
		[]string{"status"},
	)

	m.ArchiveDuration = factory.NewHistogram(
		prometheus.HistogramOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystem,
			Name:      "archive_duration_seconds",
			Help:      "Time spent on one archive",
			Buckets:   prometheus.ExponentialBuckets(0.001, 4, 8),
		},
	)

	m.PagesTotal = factory.NewCounter(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystem,
			Name:      "pages_total",
			Help:      "Pages counted across processed archives",
		},
	)

	m.LastRunTimestamp = factory.NewGauge(
		prometheus.GaugeOpts{
			Namespace: MetricsNamespace,
			Subsystem: MetricsSubsystem,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last batch run finished",
		},
	)
}

func (m *Metrics) initRuleMetrics(factory promauto.Factory) {
	m.RuleDecisionsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: "rules",
			Name:      "decisions_total",
			Help:      "Field corrections by stage and rule; skipped counts writes withheld by the period lock",
		},
		[]string{"stage", "rule", "skipped"},
	)

	m.PeriodLocksTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: "rules",
			Name:      "period_locks_total",
			Help:      "Records whose retention period was locked, by locking rule",
		},
		[]string{"rule"},
	)

	m.DisclosureTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: "rules",
			Name:      "disclosure_total",
			Help:      "Records by open status and deferred-opening reason",
		},
		[]string{"status", "reason"},
	)

	m.CodeResolution = factory.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: MetricsNamespace,
			Subsystem: "rules",
			Name:      "code_resolution_total",
			Help:      "Outcome of the final classification code lookup",
		},
		[]string{"resolution"},
	)
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observe(r *Result) {
	if m == nil || r == nil {
		return
	}
	m.ArchivesTotal.WithLabelValues(string(r.Status)).Inc()
	m.ArchiveDuration.Observe(r.Duration.Seconds())
	m.PagesTotal.Add(float64(r.PageCount))

	if r.Report == nil {
		return
	}
	for _, d := range r.Report.Decisions {
		m.RuleDecisionsTotal.WithLabelValues(string(d.Stage), d.Rule, fmt.Sprint(d.Skipped)).Inc()
	}
	if r.Report.PeriodLocked {
		m.PeriodLocksTotal.WithLabelValues(r.Report.LockedBy).Inc()
	}
	m.CodeResolution.WithLabelValues(r.Report.Code.String()).Inc()
	if r.Metadata != nil {
		m.DisclosureTotal.WithLabelValues(r.Metadata.Trimmed(metadata.FieldOpenStatus), r.Metadata.Trimmed(metadata.FieldDeferredReason)).Inc()
	}
}

func (m *Metrics) finish(at time.Time) {
	if m == nil {
		return
	}
	m.LastRunTimestamp.Set(float64(at.Unix()))
}

// WriteTextfile writes the current metrics in the text exposition format,
// for node_exporter's textfile collector.
func (m *Metrics) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("error writing metrics file: %w", err)
	}
	return nil
}
