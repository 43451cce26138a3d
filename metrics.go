/*
Copyright © 2026 Acronis International GmbH.

Released under MIT license.
*/

package dagmigrate

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Migration execution statuses reported to the metrics collector.
const (
	MigrationStatusOK    = "ok"
	MigrationStatusError = "error"
)

// MetricsCollector is an interface for collecting metrics about executed migrations.
type MetricsCollector interface {
	// ObserveMigration observes the duration of a single migration execution.
	ObserveMigration(direction Direction, status string, elapsed time.Duration)
}

// PrometheusMetrics represents a Prometheus collector of migration execution metrics.
type PrometheusMetrics struct {
	MigrationDurations *prometheus.HistogramVec
}

// NewPrometheusMetrics creates a new Prometheus metrics collector.
func NewPrometheusMetrics() *PrometheusMetrics {
	migrationDurations := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "schema_migration_duration_seconds",
			Help:    "A histogram of durations of single schema migration executions.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"direction", "status"},
	)
	return &PrometheusMetrics{MigrationDurations: migrationDurations}
}

// MustRegister does registration of the metrics collector in Prometheus
// and panics if any error occurs.
func (pm *PrometheusMetrics) MustRegister() {
	prometheus.MustRegister(pm.MigrationDurations)
}

// Unregister cancels registration of the metrics collector in Prometheus.
func (pm *PrometheusMetrics) Unregister() {
	prometheus.Unregister(pm.MigrationDurations)
}

// ObserveMigration implements the MetricsCollector interface.
func (pm *PrometheusMetrics) ObserveMigration(direction Direction, status string, elapsed time.Duration) {
	pm.MigrationDurations.With(prometheus.Labels{
		"direction": string(direction),
		"status":    status,
	}).Observe(elapsed.Seconds())
}

type disabledMetrics struct{}

func (disabledMetrics) ObserveMigration(direction Direction, status string, elapsed time.Duration) {}
