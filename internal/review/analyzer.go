package review

import (
	"slices"

	"github.com/nerrad567/gray-logic-entity-manager/internal/naming"
	"github.com/nerrad567/gray-logic-entity-manager/internal/registry"
)

// Logger defines the logging interface used by this package.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// noopLogger is a logger that does nothing.
type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// AnalyzeOptions filters and bounds an analysis pass.
type AnalyzeOptions struct {
	// SkipReviewed leaves out entities carrying the review marker.
	SkipReviewed bool
	// ShowReviewed leaves out entities without the review marker.
	ShowReviewed bool
	// Limit stops the pass after this many entities passed the filters.
	// Zero means no limit.
	Limit int
	// Identifiers restricts the pass to these entities, in this order.
	Identifiers []string
}

// Validate rejects contradictory or out-of-range options.
func (o AnalyzeOptions) Validate() error {
	if o.SkipReviewed && o.ShowReviewed {
		return ErrConflictingReviewFilters
	}
	if o.Limit < 0 {
		return ErrInvalidLimit
	}
	return nil
}

// Proposal is the resolver's answer for one entity.
type Proposal struct {
	OldID        string   `json:"old_entity_id"`
	NewID        string   `json:"new_entity_id"`
	FriendlyName string   `json:"friendly_name"`
	RegistryID   string   `json:"registry_id,omitempty"`
	Labels       []string `json:"labels,omitempty"`
	Reviewed     bool     `json:"reviewed"`
	Degenerate   bool     `json:"degenerate,omitempty"`
	AreaGuessed  bool     `json:"area_guessed,omitempty"`
}

// Changed reports whether the entity would get a new identifier.
func (p Proposal) Changed() bool {
	return p.OldID != p.NewID
}

// Analysis is the ordered result of an analysis pass.
//
// Every inspected entity appears, including those whose identifier is
// already canonical. Entities left out by the review filters do not.
type Analysis struct {
	Proposals []Proposal `json:"proposals"`
	Missing   []string   `json:"missing,omitempty"`
	index     map[string]int
}

// Get returns the proposal for an old identifier.
func (a *Analysis) Get(oldID string) (Proposal, bool) {
	i, ok := a.index[oldID]
	if !ok {
		return Proposal{}, false
	}
	return a.Proposals[i], true
}

// Len returns the number of proposals.
func (a *Analysis) Len() int {
	return len(a.Proposals)
}

// Changed returns the proposals that rename their entity.
func (a *Analysis) Changed() []Proposal {
	var out []Proposal
	for _, p := range a.Proposals {
		if p.Changed() {
			out = append(out, p)
		}
	}
	return out
}

func (a *Analysis) add(p Proposal) {
	if i, seen := a.index[p.OldID]; seen {
		a.Proposals[i] = p
		return
	}
	a.index[p.OldID] = len(a.Proposals)
	a.Proposals = append(a.Proposals, p)
}

// Analyzer proposes new identifiers for a snapshot.
type Analyzer struct {
	resolver *naming.Resolver
	logger   Logger
}

// NewAnalyzer creates an analyzer around a resolver.
func NewAnalyzer(resolver *naming.Resolver) *Analyzer {
	return &Analyzer{resolver: resolver, logger: noopLogger{}}
}

// SetLogger sets the logger for the analyzer.
func (a *Analyzer) SetLogger(logger Logger) {
	a.logger = logger
}

// Analyze resolves entities of snap in registry order.
//
// Options are validated before any entity is looked at. With a limit, the
// pass ends once that many entities have passed the filters, whether or not
// they would change.
func (a *Analyzer) Analyze(snap *registry.Snapshot, ov naming.Overrides, opts AnalyzeOptions) (*Analysis, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	result := &Analysis{index: make(map[string]int)}

	candidates, missing := selectEntities(snap, opts.Identifiers)
	result.Missing = missing

	filtered := 0
	for _, e := range candidates {
		if opts.Limit > 0 && result.Len() >= opts.Limit {
			break
		}

		reviewed := e.ReviewState() == registry.Reviewed
		if (opts.SkipReviewed && reviewed) || (opts.ShowReviewed && !reviewed) {
			filtered++
			continue
		}

		res := a.resolver.Explain(e, snap, ov)
		if res.Degenerate {
			a.logger.Warn("no area or device found, identifier reduced to type",
				"entity_id", e.Identifier,
				"new_entity_id", res.Identifier,
			)
		}
		if res.AreaGuessed {
			a.logger.Warn("area guessed from identifier, check before applying",
				"entity_id", e.Identifier,
				"new_entity_id", res.Identifier,
				"area", res.Area,
			)
		}
		result.add(Proposal{
			OldID:        e.Identifier,
			NewID:        res.Identifier,
			FriendlyName: res.FriendlyName,
			RegistryID:   e.RegistryID,
			Labels:       slices.Clone(e.Labels),
			Reviewed:     reviewed,
			Degenerate:   res.Degenerate,
			AreaGuessed:  res.AreaGuessed,
		})
	}

	a.logger.Info("analysis complete",
		"inspected", result.Len(),
		"changes", len(result.Changed()),
		"filtered", filtered,
		"missing", len(missing),
	)
	return result, nil
}

// selectEntities returns the entities to consider and any requested
// identifiers the snapshot does not know.
func selectEntities(snap *registry.Snapshot, identifiers []string) ([]registry.Entity, []string) {
	if snap == nil {
		return nil, slices.Clone(identifiers)
	}
	if len(identifiers) == 0 {
		return snap.Entities(), nil
	}

	var (
		entities []registry.Entity
		missing  []string
	)
	for _, id := range identifiers {
		e, ok := snap.Entity(id)
		if !ok {
			missing = append(missing, id)
			continue
		}
		entities = append(entities, e)
	}
	return entities, missing
}
