package metrics

import (
	"context"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/nerrad567/gray-logic-entity-manager/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-entity-manager/internal/overrides"
	"github.com/nerrad567/gray-logic-entity-manager/internal/review"
)

func TestCollector_CountsOutcomes(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	ctx := context.Background()

	c.EntityApplied(ctx, "run", false, review.Result{Outcome: review.OutcomeProcessed, Changed: true})
	c.EntityApplied(ctx, "run", false, review.Result{Outcome: review.OutcomeProcessed})
	c.EntityApplied(ctx, "run", false, review.Result{Outcome: review.OutcomeError, Changed: true, Renamed: true})
	c.EntityApplied(ctx, "run", false, review.Result{Outcome: review.OutcomeError, Changed: true})
	c.EntityApplied(ctx, "run", true, review.Result{Outcome: review.OutcomeProcessed, Changed: true})
	c.BatchApplied(ctx, &review.Report{DryRun: false, Duration: 30 * time.Millisecond})

	tests := []struct {
		name string
		got  float64
		want float64
	}{
		{"live processed", testutil.ToFloat64(c.entities.WithLabelValues("processed", "false")), 2},
		{"live errors", testutil.ToFloat64(c.entities.WithLabelValues("error", "false")), 2},
		{"dry processed", testutil.ToFloat64(c.entities.WithLabelValues("processed", "true")), 1},
		{"renamed", testutil.ToFloat64(c.renamed), 2},
		{"live runs", testutil.ToFloat64(c.runs.WithLabelValues("false")), 1},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s = %v, want %v", tt.name, tt.got, tt.want)
		}
	}
}

func TestCollector_OverridesLoaded(t *testing.T) {
	c := NewCollector(prometheus.NewRegistry())
	c.OverridesLoaded(overrides.LoadOK)
	c.OverridesLoaded(overrides.LoadOK)
	c.OverridesLoaded(overrides.LoadFailed)

	if got := testutil.ToFloat64(c.overrideReloads.WithLabelValues(overrides.LoadOK.String())); got != 2 {
		t.Errorf("ok reloads = %v, want 2", got)
	}
	if got := testutil.ToFloat64(c.overrideReloads.WithLabelValues(overrides.LoadFailed.String())); got != 1 {
		t.Errorf("failed reloads = %v, want 1", got)
	}
}

func TestNewCollector_RegistersOnce(t *testing.T) {
	reg := prometheus.NewRegistry()
	NewCollector(reg)

	defer func() {
		if recover() == nil {
			t.Error("second registration on the same registry did not panic")
		}
	}()
	NewCollector(reg)
}

type capturingWriter struct {
	points []*write.Point
}

func (w *capturingWriter) WritePoint(p *write.Point) {
	w.points = append(w.points, p)
}

func TestInfluxRecorder_OnePointPerRun(t *testing.T) {
	w := &capturingWriter{}
	r := NewInfluxRecorder(w)
	ctx := context.Background()

	r.EntityApplied(ctx, "run", false, review.Result{Outcome: review.OutcomeProcessed})
	if len(w.points) != 0 {
		t.Fatalf("entity result wrote %d points, want 0", len(w.points))
	}

	r.BatchApplied(ctx, &review.Report{RunID: "run", Total: 1})
	if len(w.points) != 1 || w.points[0].Name() != influxdb.MeasurementRuns {
		t.Fatalf("points = %v, want one %s point", w.points, influxdb.MeasurementRuns)
	}
}

func TestRunStats(t *testing.T) {
	started := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	report := &review.Report{
		DryRun:    false,
		Cancelled: true,
		Total:     5,
		Processed: []review.Result{{Changed: true}, {Changed: false}},
		Skipped:   []review.Result{{}},
		Errors:    []review.Result{{Changed: true, Renamed: true}, {Changed: true}},
		StartedAt: started,
		Duration:  time.Second,
	}

	got := RunStats(report)
	want := influxdb.RunStats{
		Cancelled: true,
		Total:     5,
		Processed: 2,
		Skipped:   1,
		Errors:    2,
		Renamed:   2,
		Duration:  time.Second,
		At:        started,
	}
	if got != want {
		t.Errorf("RunStats() = %+v, want %+v", got, want)
	}
}
