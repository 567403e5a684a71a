// Package events announces apply results over MQTT.
//
// Live runs publish one entity_renamed or entity_rename_failed event per
// entity that was renamed or failed, then a batch_completed event. Dry runs
// publish only batch_completed, with dry_run set.
package events

import (
	"context"
	"time"

	"github.com/nerrad567/gray-logic-entity-manager/internal/infrastructure/mqtt"
	"github.com/nerrad567/gray-logic-entity-manager/internal/review"
)

// Sender publishes a JSON-encoded event. *mqtt.Client implements it.
type Sender interface {
	PublishEvent(eventType string, v any) error
}

// EntityEvent is the payload of entity_renamed and entity_rename_failed.
type EntityEvent struct {
	RunID        string    `json:"run_id"`
	OldID        string    `json:"old_entity_id"`
	NewID        string    `json:"new_entity_id"`
	FriendlyName string    `json:"friendly_name,omitempty"`
	Renamed      bool      `json:"renamed"`
	Error        string    `json:"error,omitempty"`
	Timestamp    time.Time `json:"timestamp"`
}

// BatchEvent is the payload of batch_completed.
type BatchEvent struct {
	RunID      string    `json:"run_id"`
	DryRun     bool      `json:"dry_run"`
	Cancelled  bool      `json:"cancelled,omitempty"`
	Total      int       `json:"total"`
	Processed  int       `json:"processed"`
	Skipped    int       `json:"skipped"`
	Errors     int       `json:"errors"`
	DurationMS int64     `json:"duration_ms"`
	Timestamp  time.Time `json:"timestamp"`
}

// Publisher is a review.Observer that forwards results to a Sender.
// Publish failures are logged and never fail the batch.
type Publisher struct {
	sender Sender
	logger review.Logger
	now    func() time.Time
}

// NewPublisher creates a publisher.
func NewPublisher(sender Sender, logger review.Logger) *Publisher {
	return &Publisher{sender: sender, logger: logger, now: time.Now}
}

// EntityApplied implements review.Observer.
func (p *Publisher) EntityApplied(_ context.Context, runID string, dryRun bool, res review.Result) {
	if dryRun {
		return
	}

	var eventType string
	switch {
	case res.Outcome == review.OutcomeError:
		eventType = mqtt.EventEntityRenameFailed
	case res.Outcome == review.OutcomeProcessed && res.Changed:
		eventType = mqtt.EventEntityRenamed
	default:
		return
	}

	p.send(eventType, EntityEvent{
		RunID:        runID,
		OldID:        res.OldID,
		NewID:        res.NewID,
		FriendlyName: res.FriendlyName,
		Renamed:      res.Outcome == review.OutcomeProcessed || res.Renamed,
		Error:        res.Error,
		Timestamp:    p.now().UTC(),
	})
}

// BatchApplied implements review.Observer.
func (p *Publisher) BatchApplied(_ context.Context, report *review.Report) {
	p.send(mqtt.EventBatchCompleted, BatchEvent{
		RunID:      report.RunID,
		DryRun:     report.DryRun,
		Cancelled:  report.Cancelled,
		Total:      report.Total,
		Processed:  len(report.Processed),
		Skipped:    len(report.Skipped),
		Errors:     len(report.Errors),
		DurationMS: report.Duration.Milliseconds(),
		Timestamp:  p.now().UTC(),
	})
}

func (p *Publisher) send(eventType string, v any) {
	if err := p.sender.PublishEvent(eventType, v); err != nil {
		p.logger.Warn("publishing event failed", "event", eventType, "error", err)
	}
}
