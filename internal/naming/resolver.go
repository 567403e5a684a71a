package naming

import (
	"slices"
	"strings"

	"github.com/nerrad567/gray-logic-entity-manager/internal/overrides"
	"github.com/nerrad567/gray-logic-entity-manager/internal/registry"
)

// Overrides is the read side of the override store.
// Both *overrides.Store and *overrides.Document satisfy it.
type Overrides interface {
	Area(areaID string) (overrides.Record, bool)
	Device(deviceID string) (overrides.Record, bool)
	Entity(registryID string) (overrides.Record, bool)
}

// Resolution is the outcome of resolving one entity, with the components
// the identifier was assembled from.
type Resolution struct {
	Identifier   string `json:"new_entity_id"`
	FriendlyName string `json:"friendly_name"`
	Area         string `json:"area,omitempty"`
	Device       string `json:"device,omitempty"`
	Type         string `json:"type"`

	// Degenerate is set when neither an area nor a device could be found,
	// leaving only the type token (for example light.light).
	Degenerate bool `json:"degenerate,omitempty"`

	// AreaGuessed is set when the area came from a room token in the
	// identifier rather than from the registry.
	AreaGuessed bool `json:"area_guessed,omitempty"`
}

// Resolver builds canonical identifiers and friendly names.
type Resolver struct {
	classifier *Classifier
	areas      AreaStrategy
}

// NewResolver creates a resolver using table for type tokens and strategy
// for area placement. A nil strategy means RegistryAreas.
func NewResolver(table TypeTable, strategy AreaStrategy) *Resolver {
	if strategy == nil {
		strategy = RegistryAreas{}
	}
	return &Resolver{
		classifier: NewClassifier(table),
		areas:      strategy,
	}
}

// Classifier returns the classifier used for type tokens.
func (r *Resolver) Classifier() *Classifier {
	return r.classifier
}

// Resolve returns the new identifier and friendly name for e.
//
// An empty identifier yields two empty strings. An identifier without a
// domain separator is returned unchanged as both values, so callers
// comparing old and new see no change.
func (r *Resolver) Resolve(e registry.Entity, snap *registry.Snapshot, ov Overrides) (string, string) {
	res := r.Explain(e, snap, ov)
	return res.Identifier, res.FriendlyName
}

// Explain resolves e and also reports the components used.
func (r *Resolver) Explain(e registry.Entity, snap *registry.Snapshot, ov Overrides) Resolution {
	if e.Identifier == "" {
		return Resolution{}
	}
	domain, local, ok := registry.SplitIdentifier(e.Identifier)
	if !ok {
		return Resolution{Identifier: e.Identifier, FriendlyName: e.Identifier}
	}
	if snap == nil {
		snap = registry.NewSnapshot(nil, nil, nil, nil)
	}
	if ov == nil {
		ov = overrides.NewDocument()
	}

	areaSlug, areaDisplay, guessed := r.area(e, snap, ov)

	typeToken := r.classifier.Classify(e.Identifier, snap.DeviceClass(e.Identifier))
	typeSlug := Normalize(typeToken)
	typeLabel := HumanizeToken(typeToken)
	if name, ok := overrideName(ov.Entity(e.RegistryID)); ok {
		typeSlug = Normalize(name)
		typeLabel = name
	}

	deviceSlug, deviceDisplay := r.device(e, snap, ov, domain, local, typeSlug)

	parts := joinComponents(areaSlug, deviceSlug, func(device, area string) bool {
		return strings.HasPrefix(device, area)
	})
	friendly := joinComponents(TitleCase(areaDisplay), deviceDisplay, func(device, area string) bool {
		return strings.HasPrefix(strings.ToLower(device), strings.ToLower(area))
	})

	return Resolution{
		Identifier:   domain + "." + strings.Join(append(parts, typeSlug), "_"),
		FriendlyName: strings.Join(append(friendly, typeLabel), " "),
		Area:         areaSlug,
		Device:       deviceSlug,
		Type:         typeSlug,
		Degenerate:   len(parts) == 0,
		AreaGuessed:  guessed,
	}
}

// area returns the slug and display form of the entity's area, and whether
// the area was guessed.
func (r *Resolver) area(e registry.Entity, snap *registry.Snapshot, ov Overrides) (string, string, bool) {
	m, ok := r.areas.ResolveArea(e, snap)
	if !ok {
		return "", "", false
	}
	if name, ok := overrideName(ov.Area(m.ID)); ok {
		return Normalize(name), name, m.Guessed
	}
	return Normalize(m.Name), m.Display, m.Guessed
}

// device returns the slug and display form of the entity's device. Without
// a linked device the local name is mined for a device token.
func (r *Resolver) device(e registry.Entity, snap *registry.Snapshot, ov Overrides, domain, local, typeSlug string) (string, string) {
	if d, ok := snap.Device(e.DeviceID); ok {
		name := d.EffectiveName()
		if override, ok := overrideName(ov.Device(d.ID)); ok {
			name = override
		}
		return Normalize(name), name
	}

	token := r.deviceFromLocalName(domain, local, typeSlug)
	if token == "" {
		return "", ""
	}
	return token, HumanizeToken(token)
}

// deviceFromLocalName drops tokens that only describe the entity's own type
// (or, with legacy guessing, the room) and keeps the rest. Dropping the
// resolved type keeps repeated runs from appending it again.
func (r *Resolver) deviceFromLocalName(domain, local, typeSlug string) string {
	rooms, _ := r.areas.(roomFilter)
	typeParts := strings.Split(typeSlug, "_")
	table := r.classifier.Table()

	var kept []string
	for _, tok := range strings.Split(Normalize(local), "_") {
		switch {
		case tok == "":
		case table.isOwnTypeToken(domain, tok):
		case slices.Contains(typeParts, tok):
		case rooms != nil && rooms.IsRoom(tok):
		default:
			kept = append(kept, tok)
		}
	}
	return strings.Join(kept, "_")
}

// overrideName returns the override's name when it has one that survives
// normalisation. A name such as "!!!" would give an empty slug next to a
// non-empty label, so it is ignored for both.
func overrideName(rec overrides.Record, found bool) (string, bool) {
	if !found || Normalize(rec.Name) == "" {
		return "", false
	}
	return rec.Name, true
}

// joinComponents orders area and device, omitting the area when the device
// already starts with it.
func joinComponents(area, device string, hasPrefix func(device, area string) bool) []string {
	switch {
	case area != "" && device != "":
		if hasPrefix(device, area) {
			return []string{device}
		}
		return []string{area, device}
	case area != "":
		return []string{area}
	case device != "":
		return []string{device}
	default:
		return nil
	}
}
