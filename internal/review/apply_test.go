package review

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/nerrad567/gray-logic-entity-manager/internal/registry"
)

type updateCall struct {
	ID     string
	Update registry.EntityUpdate
}

// mockMutator records updates and fails those listed in failRename or
// failMark.
type mockMutator struct {
	mu         sync.Mutex
	calls      []updateCall
	failRename map[string]error
	failMark   map[string]error
	ensured    []string
	ensureErr  error
}

func (m *mockMutator) UpdateEntity(_ context.Context, id string, u registry.EntityUpdate) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = append(m.calls, updateCall{ID: id, Update: u})
	if u.NewIdentifier != "" {
		return m.failRename[id]
	}
	return m.failMark[id]
}

func (m *mockMutator) EnsureLabel(_ context.Context, label string) error {
	m.ensured = append(m.ensured, label)
	return m.ensureErr
}

// recordingObserver captures observer callbacks.
type recordingObserver struct {
	results []Result
	batches []*Report
}

func (o *recordingObserver) EntityApplied(_ context.Context, _ string, _ bool, res Result) {
	o.results = append(o.results, res)
}

func (o *recordingObserver) BatchApplied(_ context.Context, report *Report) {
	o.batches = append(o.batches, report)
}

func testProposals() []Proposal {
	return []Proposal{
		{OldID: "light.ceiling", NewID: "light.living_room_ceiling_light_light", FriendlyName: "Living Room Ceiling Light Light", Labels: []string{"kitchen"}},
		{OldID: "light.office_lamp_light", NewID: "light.office_lamp_light", FriendlyName: "Office Lamp Light"},
		{OldID: "light.done_light", NewID: "light.done_light", FriendlyName: "Done Light", Labels: []string{registry.MarkerTag}, Reviewed: true},
	}
}

func resultIDs(results []Result) []string {
	var ids []string
	for _, r := range results {
		ids = append(ids, r.OldID)
	}
	return ids
}

func TestApply_Live(t *testing.T) {
	m := &mockMutator{}
	obs := &recordingObserver{}
	a := NewApplier(m)
	a.SetObserver(obs)

	report, err := a.Apply(context.Background(), testProposals(), ApplyOptions{})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if diff := cmp.Diff([]string{"light.ceiling", "light.office_lamp_light"}, resultIDs(report.Processed)); diff != "" {
		t.Errorf("processed mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff([]string{"light.done_light"}, resultIDs(report.Skipped)); diff != "" {
		t.Errorf("skipped mismatch (-want +got):\n%s", diff)
	}
	if len(report.Errors) != 0 {
		t.Errorf("errors = %+v", report.Errors)
	}
	if !report.Processed[0].Changed || report.Processed[1].Changed {
		t.Errorf("changed flags = %v, %v", report.Processed[0].Changed, report.Processed[1].Changed)
	}

	wantCalls := []updateCall{
		{ID: "light.ceiling", Update: registry.EntityUpdate{NewIdentifier: "light.living_room_ceiling_light_light", Name: "Living Room Ceiling Light Light"}},
		{ID: "light.living_room_ceiling_light_light", Update: registry.EntityUpdate{Labels: []string{"kitchen", registry.MarkerTag}}},
		{ID: "light.office_lamp_light", Update: registry.EntityUpdate{Labels: []string{registry.MarkerTag}}},
	}
	if diff := cmp.Diff(wantCalls, m.calls); diff != "" {
		t.Errorf("mutator calls mismatch (-want +got):\n%s", diff)
	}

	if diff := cmp.Diff([]string{registry.MarkerTag}, m.ensured); diff != "" {
		t.Errorf("ensured labels mismatch (-want +got):\n%s", diff)
	}
	if len(obs.results) != 3 || len(obs.batches) != 1 {
		t.Errorf("observer saw %d results and %d batches", len(obs.results), len(obs.batches))
	}
	if report.RunID == "" || report.Total != 3 || report.DryRun {
		t.Errorf("report header = %+v", report)
	}
}

func TestApply_DryRunNeverMutates(t *testing.T) {
	ctx := context.Background()
	mem := registry.NewMemory(nil, nil, []registry.Entity{
		{Identifier: "light.ceiling", RegistryID: "r1"},
	}, nil)

	proposals := []Proposal{{OldID: "light.ceiling", NewID: "light.living_room_ceiling_light_light"}}
	report, err := NewApplier(mem).Apply(ctx, proposals, ApplyOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if diff := cmp.Diff([]string{"light.ceiling"}, resultIDs(report.Processed)); diff != "" {
		t.Errorf("processed mismatch (-want +got):\n%s", diff)
	}

	snap, _ := mem.Snapshot(ctx)
	e, ok := snap.Entity("light.ceiling")
	if !ok {
		t.Fatal("dry run renamed the entity")
	}
	if e.ReviewState() == registry.Reviewed {
		t.Error("dry run added the review marker")
	}
	if len(mem.Labels()) != 0 {
		t.Errorf("dry run registered labels: %v", mem.Labels())
	}
}

func TestApply_DryRunWithoutMutator(t *testing.T) {
	report, err := NewApplier(nil).Apply(context.Background(), testProposals(), ApplyOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(report.Processed) != 2 || len(report.Skipped) != 1 {
		t.Errorf("report = %d processed, %d skipped", len(report.Processed), len(report.Skipped))
	}
}

func TestApply_LiveWithoutMutator(t *testing.T) {
	_, err := NewApplier(nil).Apply(context.Background(), testProposals(), ApplyOptions{})
	if !errors.Is(err, ErrNoMutator) {
		t.Errorf("Apply() error = %v, want ErrNoMutator", err)
	}
}

func TestApply_PerEntityErrors(t *testing.T) {
	proposals := []Proposal{
		{OldID: "light.a", NewID: "light.a_light"},
		{OldID: "light.b", NewID: "light.b_light"},
		{OldID: "light.c", NewID: "light.c_light"},
	}
	m := &mockMutator{
		failRename: map[string]error{"light.a": errors.New("entity id taken")},
		failMark:   map[string]error{"light.b_light": errors.New("connection lost")},
	}

	report, err := NewApplier(m).Apply(context.Background(), proposals, ApplyOptions{})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}

	if diff := cmp.Diff([]string{"light.c"}, resultIDs(report.Processed)); diff != "" {
		t.Errorf("processed mismatch (-want +got):\n%s", diff)
	}
	if len(report.Errors) != 2 {
		t.Fatalf("errors = %+v, want 2", report.Errors)
	}

	renameErr, markErr := report.Errors[0], report.Errors[1]
	if renameErr.OldID != "light.a" || renameErr.Renamed || renameErr.Error == "" {
		t.Errorf("rename error entry = %+v", renameErr)
	}
	if markErr.OldID != "light.b" || !markErr.Renamed || markErr.Error == "" {
		t.Errorf("mark error entry = %+v, want Renamed=true", markErr)
	}
}

func TestApply_MarkerUnavailableAbortsBeforeWork(t *testing.T) {
	m := &mockMutator{ensureErr: errors.New("label registry offline")}

	_, err := NewApplier(m).Apply(context.Background(), testProposals(), ApplyOptions{})
	if !errors.Is(err, ErrMarkerUnavailable) {
		t.Fatalf("Apply() error = %v, want ErrMarkerUnavailable", err)
	}
	if len(m.calls) != 0 {
		t.Errorf("mutator called %d times after marker failure", len(m.calls))
	}
}

func TestApply_NothingToMarkSkipsEnsure(t *testing.T) {
	m := &mockMutator{ensureErr: errors.New("label registry offline")}
	proposals := []Proposal{{OldID: "light.x_light", NewID: "light.x_light", Reviewed: true}}

	report, err := NewApplier(m).Apply(context.Background(), proposals, ApplyOptions{})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(m.ensured) != 0 || len(report.Skipped) != 1 {
		t.Errorf("ensured = %v, skipped = %d", m.ensured, len(report.Skipped))
	}
}

func TestApply_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report, err := NewApplier(&mockMutator{}).Apply(ctx, testProposals(), ApplyOptions{DryRun: true})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if !report.Cancelled || len(report.Processed)+len(report.Skipped)+len(report.Errors) != 0 {
		t.Errorf("report = %+v, want cancelled with no results", report)
	}
}

func TestApply_EmptyNewIdentifierSkipped(t *testing.T) {
	report, err := NewApplier(&mockMutator{}).Apply(context.Background(), []Proposal{{}}, ApplyOptions{})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if len(report.Skipped) != 1 || report.Skipped[0].Reason != ReasonNoIdentifier {
		t.Errorf("skipped = %+v", report.Skipped)
	}
}
