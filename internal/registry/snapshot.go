package registry

import "maps"

// Snapshot is an immutable point-in-time copy of the host registries.
//
// Entities keep the order they were supplied in, which is the order batch
// runs iterate them. Every accessor returns copies, so a Snapshot can be
// shared between goroutines.
type Snapshot struct {
	areas     map[string]Area
	areaOrder []string
	devices   map[string]Device
	entities  []Entity
	index     map[string]int
	states    map[string]State
}

// NewSnapshot builds a snapshot from registry listings.
// A later entity with an identifier already seen replaces the earlier one
// in place.
func NewSnapshot(areas []Area, devices []Device, entities []Entity, states []State) *Snapshot {
	s := &Snapshot{
		areas:   make(map[string]Area, len(areas)),
		devices: make(map[string]Device, len(devices)),
		index:   make(map[string]int, len(entities)),
		states:  make(map[string]State, len(states)),
	}

	for _, a := range areas {
		if _, seen := s.areas[a.ID]; !seen {
			s.areaOrder = append(s.areaOrder, a.ID)
		}
		s.areas[a.ID] = a
	}
	for _, d := range devices {
		s.devices[d.ID] = d
	}
	for _, e := range entities {
		e = e.DeepCopy()
		if i, seen := s.index[e.Identifier]; seen {
			s.entities[i] = e
			continue
		}
		s.index[e.Identifier] = len(s.entities)
		s.entities = append(s.entities, e)
	}
	for _, st := range states {
		st.Attributes = maps.Clone(st.Attributes)
		s.states[st.Identifier] = st
	}
	return s
}

// Area returns the area with the given id. Empty ids are never found.
func (s *Snapshot) Area(id string) (Area, bool) {
	if id == "" {
		return Area{}, false
	}
	a, ok := s.areas[id]
	return a, ok
}

// Device returns the device with the given id. Empty ids are never found.
func (s *Snapshot) Device(id string) (Device, bool) {
	if id == "" {
		return Device{}, false
	}
	d, ok := s.devices[id]
	return d, ok
}

// Entity returns the entity with the given identifier.
func (s *Snapshot) Entity(identifier string) (Entity, bool) {
	i, ok := s.index[identifier]
	if !ok {
		return Entity{}, false
	}
	return s.entities[i].DeepCopy(), true
}

// State returns the current state of an entity, if the host reported one.
func (s *Snapshot) State(identifier string) (State, bool) {
	st, ok := s.states[identifier]
	if !ok {
		return State{}, false
	}
	st.Attributes = maps.Clone(st.Attributes)
	return st, true
}

// DeviceClass is shorthand for the device class of an entity's state.
func (s *Snapshot) DeviceClass(identifier string) string {
	return s.states[identifier].DeviceClass()
}

// Entities returns all entities in registry order.
func (s *Snapshot) Entities() []Entity {
	out := make([]Entity, len(s.entities))
	for i, e := range s.entities {
		out[i] = e.DeepCopy()
	}
	return out
}

// Areas returns all areas in registry order.
func (s *Snapshot) Areas() []Area {
	out := make([]Area, 0, len(s.areaOrder))
	for _, id := range s.areaOrder {
		out = append(out, s.areas[id])
	}
	return out
}

// Devices returns all devices keyed by id.
func (s *Snapshot) Devices() map[string]Device {
	return maps.Clone(s.devices)
}

// States returns all states in entity order, skipping entities without one.
func (s *Snapshot) States() []State {
	out := make([]State, 0, len(s.states))
	for _, e := range s.entities {
		if st, ok := s.State(e.Identifier); ok {
			out = append(out, st)
		}
	}
	return out
}

// Len returns the number of entities.
func (s *Snapshot) Len() int {
	return len(s.entities)
}

// EffectiveAreaID returns the area an entity belongs to: its device's area
// when the device has one, otherwise the entity's own area.
func (s *Snapshot) EffectiveAreaID(e Entity) string {
	if d, ok := s.Device(e.DeviceID); ok && d.AreaID != "" {
		if _, known := s.Area(d.AreaID); known {
			return d.AreaID
		}
	}
	if _, known := s.Area(e.AreaID); known {
		return e.AreaID
	}
	return ""
}
