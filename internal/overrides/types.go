package overrides

import (
	"fmt"
	"maps"
	"strings"
)

// Kind selects one of the three override sections.
type Kind string

// Override kinds, named after their document sections.
const (
	KindArea   Kind = "areas"
	KindDevice Kind = "devices"
	KindEntity Kind = "entities"
)

// AllKinds returns every override kind in document order.
func AllKinds() []Kind {
	return []Kind{KindArea, KindDevice, KindEntity}
}

// ParseKind accepts a section name in singular or plural form.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "area", "areas":
		return KindArea, nil
	case "device", "devices":
		return KindDevice, nil
	case "entity", "entities":
		return KindEntity, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidKind, s)
	}
}

// Record is a single override. Type is only meaningful for entities.
type Record struct {
	Name string `json:"name"`
	Type string `json:"type,omitempty"`
}

// Document is the full persisted override state.
type Document struct {
	Areas    map[string]Record `json:"areas"`
	Devices  map[string]Record `json:"devices"`
	Entities map[string]Record `json:"entities"`
}

// NewDocument returns a document with three empty sections.
func NewDocument() *Document {
	return &Document{
		Areas:    make(map[string]Record),
		Devices:  make(map[string]Record),
		Entities: make(map[string]Record),
	}
}

// Clone returns a deep copy with every section present.
func (d *Document) Clone() *Document {
	out := NewDocument()
	if d == nil {
		return out
	}
	maps.Copy(out.Areas, d.Areas)
	maps.Copy(out.Devices, d.Devices)
	maps.Copy(out.Entities, d.Entities)
	return out
}

// repair inserts missing sections and reports whether any were missing.
func (d *Document) repair() bool {
	repaired := false
	if d.Areas == nil {
		d.Areas = make(map[string]Record)
		repaired = true
	}
	if d.Devices == nil {
		d.Devices = make(map[string]Record)
		repaired = true
	}
	if d.Entities == nil {
		d.Entities = make(map[string]Record)
		repaired = true
	}
	return repaired
}

// Section returns the map for a kind. The map belongs to the document.
func (d *Document) Section(kind Kind) map[string]Record {
	switch kind {
	case KindArea:
		return d.Areas
	case KindDevice:
		return d.Devices
	case KindEntity:
		return d.Entities
	default:
		return nil
	}
}

// Len returns the total number of overrides.
func (d *Document) Len() int {
	return len(d.Areas) + len(d.Devices) + len(d.Entities)
}

// Area returns the override for an area id.
func (d *Document) Area(id string) (Record, bool) {
	return lookup(d.Areas, id)
}

// Device returns the override for a device id.
func (d *Document) Device(id string) (Record, bool) {
	return lookup(d.Devices, id)
}

// Entity returns the override for an entity registry id.
func (d *Document) Entity(registryID string) (Record, bool) {
	return lookup(d.Entities, registryID)
}

func lookup(section map[string]Record, id string) (Record, bool) {
	if id == "" {
		return Record{}, false
	}
	r, ok := section[id]
	return r, ok
}
