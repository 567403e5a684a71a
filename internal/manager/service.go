package manager

import (
	"cmp"
	"context"
	"fmt"
	"slices"

	"github.com/nerrad567/gray-logic-entity-manager/internal/naming"
	"github.com/nerrad567/gray-logic-entity-manager/internal/overrides"
	"github.com/nerrad567/gray-logic-entity-manager/internal/registry"
	"github.com/nerrad567/gray-logic-entity-manager/internal/review"
)

// MessageAlreadyCanonical is reported when a single rename has nothing to do.
const MessageAlreadyCanonical = "entity already has correct name"

// defaultBulkLimit applies when Deps.DefaultLimit is unset.
const defaultBulkLimit = 10

// Deps holds the collaborators of a Service.
type Deps struct {
	// Source supplies registry snapshots. Required.
	Source registry.Source

	// Mutator applies renames. Nil restricts the service to dry runs.
	Mutator registry.Mutator

	// Overrides holds the naming overrides. Required.
	Overrides *overrides.Store

	// Resolver builds identifiers. Required.
	Resolver *naming.Resolver

	// Observer is told about apply results. Optional.
	Observer review.Observer

	// DefaultLimit bounds a bulk rename that does not set a limit.
	DefaultLimit int

	Logger review.Logger
}

// Service runs analyses and renames against a registry.
type Service struct {
	source       registry.Source
	store        *overrides.Store
	resolver     *naming.Resolver
	analyzer     *review.Analyzer
	applier      *review.Applier
	defaultLimit int
	logger       review.Logger
}

// New creates a Service from deps.
func New(deps Deps) *Service {
	logger := deps.Logger
	if logger == nil {
		logger = noopLogger{}
	}
	limit := deps.DefaultLimit
	if limit <= 0 {
		limit = defaultBulkLimit
	}

	analyzer := review.NewAnalyzer(deps.Resolver)
	analyzer.SetLogger(logger)
	applier := review.NewApplier(deps.Mutator)
	applier.SetLogger(logger)
	applier.SetObserver(deps.Observer)

	return &Service{
		source:       deps.Source,
		store:        deps.Overrides,
		resolver:     deps.Resolver,
		analyzer:     analyzer,
		applier:      applier,
		defaultLimit: limit,
		logger:       logger,
	}
}

// Overrides returns the override store the service resolves against.
func (s *Service) Overrides() *overrides.Store {
	return s.store
}

func (s *Service) snapshot(ctx context.Context) (*registry.Snapshot, error) {
	snap, err := s.source.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("fetching registry snapshot: %w", err)
	}
	return snap, nil
}

// AnalyzeEntities proposes identifiers without changing anything.
func (s *Service) AnalyzeEntities(ctx context.Context, opts review.AnalyzeOptions) (*review.Analysis, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	return s.analyzer.Analyze(snap, s.store, opts)
}

// RenameResult is the outcome of a single-entity rename.
type RenameResult struct {
	OldID        string `json:"old_entity_id"`
	NewID        string `json:"new_entity_id"`
	FriendlyName string `json:"friendly_name"`
	Changed      bool   `json:"changed"`
	DryRun       bool   `json:"dry_run"`
	Message      string `json:"message,omitempty"`
	Error        string `json:"error,omitempty"`
}

// RenameEntity resolves one entity and renames it.
//
// An entity whose identifier is already canonical is left alone and
// reported with changed=false. A host failure is returned as
// ErrRenameFailed together with the partial result.
func (s *Service) RenameEntity(ctx context.Context, identifier string, dryRun bool) (*RenameResult, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	analysis, err := s.analyzer.Analyze(snap, s.store, review.AnalyzeOptions{
		Identifiers: []string{identifier},
	})
	if err != nil {
		return nil, err
	}
	p, ok := analysis.Get(identifier)
	if !ok {
		return nil, fmt.Errorf("%w: %s", registry.ErrEntityNotFound, identifier)
	}

	result := &RenameResult{
		OldID:        p.OldID,
		NewID:        p.NewID,
		FriendlyName: p.FriendlyName,
		DryRun:       dryRun,
	}
	if !p.Changed() {
		result.Message = MessageAlreadyCanonical
		return result, nil
	}

	report, err := s.applier.Apply(ctx, []review.Proposal{p}, review.ApplyOptions{DryRun: dryRun})
	if err != nil {
		return nil, err
	}
	if len(report.Errors) > 0 {
		res := report.Errors[0]
		result.Error = res.Error
		return result, fmt.Errorf("%w: %s", ErrRenameFailed, res.Error)
	}
	result.Changed = true
	return result, nil
}

// BulkOptions controls a bulk rename.
type BulkOptions struct {
	DryRun       bool     `json:"dry_run"`
	SkipReviewed bool     `json:"skip_reviewed"`
	ShowReviewed bool     `json:"show_reviewed"`
	Limit        int      `json:"limit"`
	Identifiers  []string `json:"entity_ids,omitempty"`
}

// DefaultBulkOptions returns a dry run over unreviewed entities bounded by
// the configured default limit.
func (s *Service) DefaultBulkOptions() BulkOptions {
	return BulkOptions{
		DryRun:       true,
		SkipReviewed: true,
		Limit:        s.defaultLimit,
	}
}

// BulkResult is the apply report plus any requested identifiers the
// registry did not know.
type BulkResult struct {
	*review.Report
	Missing []string `json:"missing,omitempty"`
}

// RenameBulk analyses and then applies in one pass.
//
// A zero limit means the default limit, unless explicit identifiers already
// bound the pass. A bulk rename is never unbounded over the whole registry.
func (s *Service) RenameBulk(ctx context.Context, opts BulkOptions) (*BulkResult, error) {
	limit := opts.Limit
	if limit == 0 && len(opts.Identifiers) == 0 {
		limit = s.defaultLimit
	}

	analysis, err := s.AnalyzeEntities(ctx, review.AnalyzeOptions{
		SkipReviewed: opts.SkipReviewed,
		ShowReviewed: opts.ShowReviewed,
		Limit:        limit,
		Identifiers:  opts.Identifiers,
	})
	if err != nil {
		return nil, err
	}

	report, err := s.applier.Apply(ctx, analysis.Proposals, review.ApplyOptions{DryRun: opts.DryRun})
	if err != nil {
		return nil, err
	}
	return &BulkResult{Report: report, Missing: analysis.Missing}, nil
}

// AreaSummary describes an area that holds entities.
type AreaSummary struct {
	ID          string   `json:"area_id"`
	Name        string   `json:"name"`
	DisplayName string   `json:"display_name"`
	HasOverride bool     `json:"has_override"`
	Domains     []string `json:"domains"`
	EntityCount int      `json:"entity_count"`
	Unreviewed  int      `json:"unreviewed_count"`
}

// Areas lists areas that hold at least one entity, sorted by name.
// Entities inherit their device's area.
func (s *Service) Areas(ctx context.Context) ([]AreaSummary, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}

	byArea := make(map[string]*AreaSummary)
	for _, e := range snap.Entities() {
		id := snap.EffectiveAreaID(e)
		if id == "" {
			continue
		}
		sum, ok := byArea[id]
		if !ok {
			a, known := snap.Area(id)
			if !known {
				continue
			}
			sum = &AreaSummary{ID: a.ID, Name: a.Name, DisplayName: a.Name, Domains: []string{}}
			if rec, has := s.store.Area(a.ID); has {
				sum.DisplayName = rec.Name
				sum.HasOverride = true
			}
			byArea[id] = sum
		}
		sum.EntityCount++
		if e.ReviewState() != registry.Reviewed {
			sum.Unreviewed++
		}
		if d := e.Domain(); !slices.Contains(sum.Domains, d) {
			sum.Domains = append(sum.Domains, d)
		}
	}

	out := make([]AreaSummary, 0, len(byArea))
	for _, sum := range byArea {
		slices.Sort(sum.Domains)
		out = append(out, *sum)
	}
	slices.SortFunc(out, func(a, b AreaSummary) int {
		return cmp.Or(cmp.Compare(a.Name, b.Name), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

// EntityFilter narrows EntitiesByArea.
type EntityFilter struct {
	// Domain keeps one domain only. Empty or "all" keeps every domain.
	Domain       string
	SkipReviewed bool
}

// EntityView is an entity in an area with its proposed identifier.
type EntityView struct {
	EntityID     string `json:"entity_id"`
	Name         string `json:"name,omitempty"`
	DeviceID     string `json:"device_id,omitempty"`
	DeviceName   string `json:"device_name,omitempty"`
	Reviewed     bool   `json:"reviewed"`
	NewID        string `json:"new_entity_id"`
	FriendlyName string `json:"friendly_name"`
	Changed      bool   `json:"changed"`
}

// EntitiesByArea lists the entities of one area in registry order.
func (s *Service) EntitiesByArea(ctx context.Context, areaID string, filter EntityFilter) ([]EntityView, error) {
	snap, err := s.snapshot(ctx)
	if err != nil {
		return nil, err
	}
	if _, ok := snap.Area(areaID); !ok {
		return nil, fmt.Errorf("%w: %s", ErrAreaNotFound, areaID)
	}

	out := []EntityView{}
	for _, e := range snap.Entities() {
		if snap.EffectiveAreaID(e) != areaID {
			continue
		}
		if filter.Domain != "" && filter.Domain != "all" && e.Domain() != filter.Domain {
			continue
		}
		reviewed := e.ReviewState() == registry.Reviewed
		if filter.SkipReviewed && reviewed {
			continue
		}

		newID, friendly := s.resolver.Resolve(e, snap, s.store)
		view := EntityView{
			EntityID:     e.Identifier,
			Name:         e.Name,
			DeviceID:     e.DeviceID,
			Reviewed:     reviewed,
			NewID:        newID,
			FriendlyName: friendly,
			Changed:      newID != e.Identifier,
		}
		if d, ok := snap.Device(e.DeviceID); ok {
			view.DeviceName = d.EffectiveName()
		}
		out = append(out, view)
	}
	return out, nil
}

// ReloadOverrides re-reads the override backend.
func (s *Service) ReloadOverrides(ctx context.Context) overrides.LoadStatus {
	status := s.store.Load(ctx)
	s.logger.Info("naming overrides reloaded", "status", status.String())
	return status
}
