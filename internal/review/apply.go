package review

import (
	"context"
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-entity-manager/internal/registry"
)

// Outcome classifies what happened to one entity.
type Outcome string

// Entity outcomes.
const (
	OutcomeProcessed Outcome = "processed"
	OutcomeSkipped   Outcome = "skipped"
	OutcomeError     Outcome = "error"
)

// Skip reasons.
const (
	ReasonAlreadyReviewed = "already reviewed"
	ReasonNoIdentifier    = "no identifier could be derived"
)

// Result is the outcome for a single entity.
type Result struct {
	OldID        string  `json:"old_entity_id"`
	NewID        string  `json:"new_entity_id"`
	FriendlyName string  `json:"friendly_name,omitempty"`
	Outcome      Outcome `json:"-"`
	Changed      bool    `json:"changed"`

	// Renamed is set on an error when the identifier change went through
	// but marking the entity reviewed failed.
	Renamed bool   `json:"renamed,omitempty"`
	Reason  string `json:"reason,omitempty"`
	Error   string `json:"error,omitempty"`
}

// Report summarises an apply run. It is returned even when entities fail.
type Report struct {
	RunID     string        `json:"run_id"`
	DryRun    bool          `json:"dry_run"`
	Total     int           `json:"total"`
	Processed []Result      `json:"processed"`
	Skipped   []Result      `json:"skipped"`
	Errors    []Result      `json:"errors"`
	Cancelled bool          `json:"cancelled,omitempty"`
	StartedAt time.Time     `json:"started_at"`
	Duration  time.Duration `json:"duration_ns"`
}

func (r *Report) add(res Result) {
	switch res.Outcome {
	case OutcomeProcessed:
		r.Processed = append(r.Processed, res)
	case OutcomeSkipped:
		r.Skipped = append(r.Skipped, res)
	default:
		r.Errors = append(r.Errors, res)
	}
}

// Observer is told about every entity result and every finished batch.
// Implementations must not block for long; they run inline with the batch.
type Observer interface {
	EntityApplied(ctx context.Context, runID string, dryRun bool, res Result)
	BatchApplied(ctx context.Context, report *Report)
}

// Observers fans out to several observers in order.
type Observers []Observer

// EntityApplied implements Observer.
func (o Observers) EntityApplied(ctx context.Context, runID string, dryRun bool, res Result) {
	for _, obs := range o {
		obs.EntityApplied(ctx, runID, dryRun, res)
	}
}

// BatchApplied implements Observer.
func (o Observers) BatchApplied(ctx context.Context, report *Report) {
	for _, obs := range o {
		obs.BatchApplied(ctx, report)
	}
}

// ApplyOptions controls an apply run.
type ApplyOptions struct {
	DryRun bool
}

// Applier renames entities and marks them reviewed.
type Applier struct {
	mutator  registry.Mutator
	observer Observer
	logger   Logger
	now      func() time.Time
}

// NewApplier creates an applier. mutator may be nil for dry runs only.
func NewApplier(mutator registry.Mutator) *Applier {
	return &Applier{
		mutator:  mutator,
		observer: Observers(nil),
		logger:   noopLogger{},
		now:      time.Now,
	}
}

// SetLogger sets the logger for the applier.
func (a *Applier) SetLogger(logger Logger) {
	a.logger = logger
}

// SetObserver sets the observer notified of results.
func (a *Applier) SetObserver(observer Observer) {
	if observer == nil {
		observer = Observers(nil)
	}
	a.observer = observer
}

// Apply works through proposals in order.
//
// A dry run reports what a live run would do without touching the
// registry. A live run renames changed entities and adds the review marker
// to every processed entity; failures are recorded per entity and the batch
// continues. Entities already applied stay applied if a later one fails or
// ctx is cancelled.
//
// The only batch-level errors are a missing mutator and failing to register
// the marker label, both before any entity is touched.
func (a *Applier) Apply(ctx context.Context, proposals []Proposal, opts ApplyOptions) (*Report, error) {
	report := &Report{
		RunID:     uuid.NewString(),
		DryRun:    opts.DryRun,
		Total:     len(proposals),
		Processed: []Result{},
		Skipped:   []Result{},
		Errors:    []Result{},
		StartedAt: a.now(),
	}

	if !opts.DryRun {
		if a.mutator == nil {
			return nil, ErrNoMutator
		}
		if err := a.ensureMarker(ctx, proposals); err != nil {
			return nil, err
		}
	}

	for _, p := range proposals {
		if ctx.Err() != nil {
			report.Cancelled = true
			a.logger.Warn("apply cancelled",
				"run_id", report.RunID,
				"completed", len(report.Processed)+len(report.Skipped)+len(report.Errors),
				"total", report.Total,
			)
			break
		}

		res := a.applyOne(ctx, p, opts.DryRun)
		report.add(res)
		a.observer.EntityApplied(ctx, report.RunID, opts.DryRun, res)
	}

	report.Duration = a.now().Sub(report.StartedAt)
	a.observer.BatchApplied(ctx, report)

	a.logger.Info("apply complete",
		"run_id", report.RunID,
		"dry_run", report.DryRun,
		"processed", len(report.Processed),
		"skipped", len(report.Skipped),
		"errors", len(report.Errors),
	)
	return report, nil
}

// ensureMarker registers the marker label with hosts that need it, but only
// when some entity will actually be marked.
func (a *Applier) ensureMarker(ctx context.Context, proposals []Proposal) error {
	ensurer, ok := a.mutator.(registry.LabelEnsurer)
	if !ok {
		return nil
	}
	needed := slices.ContainsFunc(proposals, func(p Proposal) bool {
		return p.NewID != "" && (p.Changed() || !p.Reviewed)
	})
	if !needed {
		return nil
	}
	if err := ensurer.EnsureLabel(ctx, registry.MarkerTag); err != nil {
		return fmt.Errorf("%w: %w", ErrMarkerUnavailable, err)
	}
	return nil
}

func (a *Applier) applyOne(ctx context.Context, p Proposal, dryRun bool) Result {
	res := Result{
		OldID:        p.OldID,
		NewID:        p.NewID,
		FriendlyName: p.FriendlyName,
		Changed:      p.Changed(),
	}

	switch {
	case p.NewID == "":
		res.Outcome = OutcomeSkipped
		res.Reason = ReasonNoIdentifier
		return res
	case !res.Changed && p.Reviewed:
		res.Outcome = OutcomeSkipped
		res.Reason = ReasonAlreadyReviewed
		return res
	case dryRun:
		res.Outcome = OutcomeProcessed
		return res
	}

	if res.Changed {
		err := a.mutator.UpdateEntity(ctx, p.OldID, registry.EntityUpdate{
			NewIdentifier: p.NewID,
			Name:          p.FriendlyName,
		})
		if err != nil {
			a.logger.Error("rename failed", "entity_id", p.OldID, "new_entity_id", p.NewID, "error", err)
			res.Outcome = OutcomeError
			res.Error = fmt.Sprintf("rename failed: %v", err)
			return res
		}
	}

	err := a.mutator.UpdateEntity(ctx, p.NewID, registry.EntityUpdate{
		Labels: withMarker(p.Labels),
	})
	if err != nil {
		a.logger.Error("marking reviewed failed", "entity_id", p.NewID, "renamed", res.Changed, "error", err)
		res.Outcome = OutcomeError
		res.Renamed = res.Changed
		res.Error = fmt.Sprintf("marking reviewed failed: %v", err)
		return res
	}

	a.logger.Debug("entity applied", "entity_id", p.OldID, "new_entity_id", p.NewID, "changed", res.Changed)
	res.Outcome = OutcomeProcessed
	return res
}

// withMarker returns labels with the review marker added once.
func withMarker(labels []string) []string {
	out := slices.Clone(labels)
	if !slices.Contains(out, registry.MarkerTag) {
		out = append(out, registry.MarkerTag)
	}
	return out
}
