package registry

import (
	"context"
	"fmt"
	"slices"
	"sync"
)

// Logger defines the logging interface used by Memory.
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

// Memory is an in-process host registry.
//
// It backs offline runs against a snapshot file and stands in for the host
// in tests. Snapshot hands out an immutable copy; UpdateEntity mutates the
// live tables. All public methods are thread-safe.
type Memory struct {
	mu       sync.RWMutex
	areas    []Area
	devices  []Device
	entities []Entity
	states   []State
	labels   map[string]struct{}
	logger   Logger
}

// NewMemory creates an in-memory registry seeded with the given records.
func NewMemory(areas []Area, devices []Device, entities []Entity, states []State) *Memory {
	m := &Memory{
		areas:   slices.Clone(areas),
		devices: slices.Clone(devices),
		states:  slices.Clone(states),
		labels:  make(map[string]struct{}),
		logger:  noopLogger{},
	}
	for _, e := range entities {
		m.entities = append(m.entities, e.DeepCopy())
		for _, l := range e.Labels {
			m.labels[l] = struct{}{}
		}
	}
	return m
}

// SetLogger sets the logger for the registry.
func (m *Memory) SetLogger(logger Logger) {
	m.logger = logger
}

// Snapshot returns a point-in-time copy of the registry.
func (m *Memory) Snapshot(_ context.Context) (*Snapshot, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return NewSnapshot(m.areas, m.devices, m.entities, m.states), nil
}

// UpdateEntity renames and/or relabels one entity.
func (m *Memory) UpdateEntity(ctx context.Context, identifier string, update EntityUpdate) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	i := m.indexOf(identifier)
	if i < 0 {
		return fmt.Errorf("%w: %s", ErrEntityNotFound, identifier)
	}

	if update.NewIdentifier != "" && update.NewIdentifier != identifier {
		if !ValidIdentifier(update.NewIdentifier) {
			return fmt.Errorf("%w: %q", ErrInvalidIdentifier, update.NewIdentifier)
		}
		oldDomain, _, _ := SplitIdentifier(identifier)
		newDomain, _, _ := SplitIdentifier(update.NewIdentifier)
		if oldDomain != newDomain {
			return fmt.Errorf("%w: %s -> %s", ErrDomainChange, identifier, update.NewIdentifier)
		}
		if m.indexOf(update.NewIdentifier) >= 0 {
			return fmt.Errorf("%w: %s", ErrEntityExists, update.NewIdentifier)
		}
		m.entities[i].Identifier = update.NewIdentifier
		for j := range m.states {
			if m.states[j].Identifier == identifier {
				m.states[j].Identifier = update.NewIdentifier
			}
		}
	}

	if update.Name != "" {
		m.entities[i].Name = update.Name
	}

	if update.Labels != nil {
		m.entities[i].Labels = slices.Clone(update.Labels)
	}

	m.logger.Debug("entity updated",
		"entity_id", identifier,
		"new_entity_id", m.entities[i].Identifier,
	)
	return nil
}

// EnsureLabel registers a label if it is not known yet.
func (m *Memory) EnsureLabel(_ context.Context, label string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.labels[label]; !ok {
		m.labels[label] = struct{}{}
		m.logger.Info("label created", "label", label)
	}
	return nil
}

// Labels returns the known labels in sorted order.
func (m *Memory) Labels() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]string, 0, len(m.labels))
	for l := range m.labels {
		out = append(out, l)
	}
	slices.Sort(out)
	return out
}

func (m *Memory) indexOf(identifier string) int {
	return slices.IndexFunc(m.entities, func(e Entity) bool {
		return e.Identifier == identifier
	})
}
