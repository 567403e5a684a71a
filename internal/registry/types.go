package registry

import (
	"context"
	"slices"
	"strings"
)

// MarkerTag is the label that marks an entity as reviewed.
const MarkerTag = "maintained"

// Area is a named location in the host registry.
type Area struct {
	ID   string `json:"id" yaml:"id"`
	Name string `json:"name" yaml:"name"`
}

// Device is a physical or logical device in the host registry.
type Device struct {
	ID       string `json:"id" yaml:"id"`
	Name     string `json:"name" yaml:"name"`
	UserName string `json:"name_by_user,omitempty" yaml:"name_by_user,omitempty"`
	Model    string `json:"model,omitempty" yaml:"model,omitempty"`
	AreaID   string `json:"area_id,omitempty" yaml:"area_id,omitempty"`
}

// EffectiveName returns the name a user would recognise the device by.
func (d Device) EffectiveName() string {
	switch {
	case d.UserName != "":
		return d.UserName
	case d.Name != "":
		return d.Name
	default:
		return d.Model
	}
}

// Entity is an entity registry entry.
//
// Identifier is the mutable domain.slug key. RegistryID never changes and is
// what entity-level overrides are keyed by.
type Entity struct {
	Identifier string   `json:"entity_id" yaml:"entity_id"`
	RegistryID string   `json:"id" yaml:"id"`
	DeviceID   string   `json:"device_id,omitempty" yaml:"device_id,omitempty"`
	AreaID     string   `json:"area_id,omitempty" yaml:"area_id,omitempty"`
	Name       string   `json:"name,omitempty" yaml:"name,omitempty"`
	Labels     []string `json:"labels" yaml:"labels,omitempty"`
}

// Domain returns the part of the identifier before the first dot.
func (e Entity) Domain() string {
	domain, _, _ := strings.Cut(e.Identifier, ".")
	return domain
}

// HasLabel reports whether the entity carries the given label.
func (e Entity) HasLabel(label string) bool {
	return slices.Contains(e.Labels, label)
}

// ReviewState derives the review state from the entity's labels.
func (e Entity) ReviewState() ReviewState {
	if e.HasLabel(MarkerTag) {
		return Reviewed
	}
	return Unreviewed
}

// DeepCopy returns a copy that shares no memory with e.
func (e Entity) DeepCopy() Entity {
	e.Labels = slices.Clone(e.Labels)
	return e
}

// ReviewState says whether an entity has already been through an apply run.
type ReviewState int

// Review states.
const (
	Unreviewed ReviewState = iota
	Reviewed
)

// String returns the lower-case name of the state.
func (s ReviewState) String() string {
	if s == Reviewed {
		return "reviewed"
	}
	return "unreviewed"
}

// State is the part of an entity's current state the entity manager reads.
type State struct {
	Identifier string         `json:"entity_id" yaml:"entity_id"`
	Attributes map[string]any `json:"attributes,omitempty" yaml:"attributes,omitempty"`
}

// DeviceClass returns attributes.device_class, or "" when absent or not a string.
func (s State) DeviceClass() string {
	dc, _ := s.Attributes["device_class"].(string)
	return dc
}

// EntityUpdate describes a change to one entity.
// Zero-valued fields are left unchanged; Labels replaces the label set when non-nil.
type EntityUpdate struct {
	NewIdentifier string
	Name          string
	Labels        []string
}

// Source produces registry snapshots.
type Source interface {
	Snapshot(ctx context.Context) (*Snapshot, error)
}

// Mutator applies updates to entities in the host registry.
type Mutator interface {
	UpdateEntity(ctx context.Context, identifier string, update EntityUpdate) error
}

// LabelEnsurer is implemented by mutators whose host requires a label to be
// registered before it can be attached to an entity.
type LabelEnsurer interface {
	EnsureLabel(ctx context.Context, label string) error
}

// SplitIdentifier splits an identifier into domain and local name.
// ok is false when the identifier has no dot.
func SplitIdentifier(identifier string) (domain, local string, ok bool) {
	return strings.Cut(identifier, ".")
}

// ValidIdentifier reports whether identifier has a non-empty domain and local name.
func ValidIdentifier(identifier string) bool {
	domain, local, ok := SplitIdentifier(identifier)
	return ok && domain != "" && local != ""
}
