package registry

import (
	"fmt"
	"os"

	"github.com/nerrad567/gray-logic-entity-manager/internal/infrastructure/fileutil"
	"gopkg.in/yaml.v3"
)

const snapshotFilePermissions = 0o600

// snapshotFile is the on-disk layout of an offline registry export.
// JSON exports decode too, since YAML is a superset.
type snapshotFile struct {
	Areas    []Area   `yaml:"areas"`
	Devices  []Device `yaml:"devices"`
	Entities []Entity `yaml:"entities"`
	States   []State  `yaml:"states,omitempty"`
}

// LoadFile reads a registry export into a Memory registry.
func LoadFile(path string) (*Memory, error) {
	data, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, fmt.Errorf("reading snapshot file: %w", err)
	}

	var f snapshotFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidSnapshot, path, err) //nolint:errorlint // wrap sentinel, keep cause text
	}

	for i, e := range f.Entities {
		if !ValidIdentifier(e.Identifier) {
			return nil, fmt.Errorf("%w: entity %d has identifier %q", ErrInvalidSnapshot, i, e.Identifier)
		}
	}

	return NewMemory(f.Areas, f.Devices, f.Entities, f.States), nil
}

// WriteFile writes the current registry contents to path.
// The file is replaced atomically.
func (m *Memory) WriteFile(path string) error {
	m.mu.RLock()
	f := snapshotFile{
		Areas:    m.areas,
		Devices:  m.devices,
		Entities: m.entities,
		States:   m.states,
	}
	data, err := yaml.Marshal(&f)
	m.mu.RUnlock()
	if err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}

	return fileutil.WriteAtomic(path, data, snapshotFilePermissions)
}
