package influxdb

import (
	"strconv"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// MeasurementRuns holds one point per apply run.
const MeasurementRuns = "entity_rename_runs"

// RunStats summarises one apply run.
type RunStats struct {
	DryRun    bool
	Cancelled bool
	Total     int
	Processed int
	Skipped   int
	Errors    int
	Renamed   int
	Duration  time.Duration
	At        time.Time
}

// NewRunPoint builds the entity_rename_runs point for stats.
func NewRunPoint(stats RunStats) *write.Point {
	return write.NewPoint(
		MeasurementRuns,
		map[string]string{
			"dry_run":   strconv.FormatBool(stats.DryRun),
			"cancelled": strconv.FormatBool(stats.Cancelled),
		},
		map[string]interface{}{
			"total":       stats.Total,
			"processed":   stats.Processed,
			"skipped":     stats.Skipped,
			"errors":      stats.Errors,
			"renamed":     stats.Renamed,
			"duration_ms": stats.Duration.Milliseconds(),
		},
		stats.At,
	)
}
