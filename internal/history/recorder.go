package history

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-entity-manager/internal/review"
)

// Recorder stores live apply results. Dry runs are not recorded.
type Recorder struct {
	repo   Repository
	logger review.Logger
	now    func() time.Time
}

// NewRecorder creates a recorder writing to repo.
func NewRecorder(repo Repository, logger review.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger, now: time.Now}
}

// EntityApplied implements review.Observer.
func (r *Recorder) EntityApplied(ctx context.Context, runID string, dryRun bool, res review.Result) {
	if dryRun {
		return
	}
	entry := &Entry{
		RunID:        runID,
		OldID:        res.OldID,
		NewID:        res.NewID,
		FriendlyName: res.FriendlyName,
		Outcome:      string(res.Outcome),
		Changed:      res.Changed,
		Reason:       res.Reason,
		Error:        res.Error,
		CreatedAt:    r.now().UTC(),
	}
	// A cancelled batch still gets its history written.
	if err := r.repo.Create(context.WithoutCancel(ctx), entry); err != nil {
		r.logger.Error("recording rename history failed", "run_id", runID, "entity_id", res.OldID, "error", err)
	}
}

// BatchApplied implements review.Observer.
func (r *Recorder) BatchApplied(context.Context, *review.Report) {}
