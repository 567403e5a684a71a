// Package metrics exposes apply and override activity as Prometheus
// metrics, and forwards per-run statistics to InfluxDB.
package metrics

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/nerrad567/gray-logic-entity-manager/internal/overrides"
	"github.com/nerrad567/gray-logic-entity-manager/internal/review"
)

const namespace = "entitymanager"

// Collector is a review.Observer that keeps Prometheus metrics.
type Collector struct {
	entities        *prometheus.CounterVec
	renamed         prometheus.Counter
	runs            *prometheus.CounterVec
	runDuration     prometheus.Histogram
	overrideReloads *prometheus.CounterVec
}

// NewCollector registers the entity manager metrics with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		entities: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "apply",
			Name:      "entities_total",
			Help:      "Entities handled by apply runs, by outcome",
		}, []string{"outcome", "dry_run"}),
		renamed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "apply",
			Name:      "renamed_total",
			Help:      "Entities whose identifier was changed by a live run",
		}),
		runs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "apply",
			Name:      "runs_total",
			Help:      "Completed apply runs",
		}, []string{"dry_run"}),
		runDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "apply",
			Name:      "run_duration_seconds",
			Help:      "Wall time of apply runs",
			Buckets:   prometheus.ExponentialBuckets(0.01, 4, 8),
		}),
		overrideReloads: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "overrides",
			Name:      "reloads_total",
			Help:      "Naming override document loads, by status",
		}, []string{"status"}),
	}
}

// EntityApplied implements review.Observer.
func (c *Collector) EntityApplied(_ context.Context, _ string, dryRun bool, res review.Result) {
	c.entities.WithLabelValues(string(res.Outcome), strconv.FormatBool(dryRun)).Inc()
	if !dryRun && res.Changed && (res.Outcome == review.OutcomeProcessed || res.Renamed) {
		c.renamed.Inc()
	}
}

// BatchApplied implements review.Observer.
func (c *Collector) BatchApplied(_ context.Context, report *review.Report) {
	c.runs.WithLabelValues(strconv.FormatBool(report.DryRun)).Inc()
	c.runDuration.Observe(report.Duration.Seconds())
}

// OverridesLoaded counts one override document load.
func (c *Collector) OverridesLoaded(status overrides.LoadStatus) {
	c.overrideReloads.WithLabelValues(status.String()).Inc()
}
