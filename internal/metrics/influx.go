package metrics

import (
	"context"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/gray-logic-entity-manager/internal/infrastructure/influxdb"
	"github.com/nerrad567/gray-logic-entity-manager/internal/review"
)

// PointWriter queues InfluxDB points. *influxdb.Client implements it.
type PointWriter interface {
	WritePoint(p *write.Point)
}

// InfluxRecorder is a review.Observer writing one point per apply run.
type InfluxRecorder struct {
	writer PointWriter
}

// NewInfluxRecorder creates a recorder around writer.
func NewInfluxRecorder(writer PointWriter) *InfluxRecorder {
	return &InfluxRecorder{writer: writer}
}

// EntityApplied implements review.Observer.
func (r *InfluxRecorder) EntityApplied(context.Context, string, bool, review.Result) {}

// BatchApplied implements review.Observer.
func (r *InfluxRecorder) BatchApplied(_ context.Context, report *review.Report) {
	r.writer.WritePoint(influxdb.NewRunPoint(RunStats(report)))
}

// RunStats condenses a report for InfluxDB.
func RunStats(report *review.Report) influxdb.RunStats {
	renamed := 0
	for _, res := range report.Processed {
		if res.Changed {
			renamed++
		}
	}
	for _, res := range report.Errors {
		if res.Renamed {
			renamed++
		}
	}
	return influxdb.RunStats{
		DryRun:    report.DryRun,
		Cancelled: report.Cancelled,
		Total:     report.Total,
		Processed: len(report.Processed),
		Skipped:   len(report.Skipped),
		Errors:    len(report.Errors),
		Renamed:   renamed,
		Duration:  report.Duration,
		At:        report.StartedAt,
	}
}
