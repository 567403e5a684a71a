package registry

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
)

func newTestMemory() *Memory {
	return NewMemory(
		[]Area{{ID: "office", Name: "Office"}},
		[]Device{{ID: "dev-1", Name: "Desk Lamp", AreaID: "office"}},
		[]Entity{
			{Identifier: "light.desk", RegistryID: "r1", DeviceID: "dev-1"},
			{Identifier: "light.taken", RegistryID: "r2"},
		},
		[]State{{Identifier: "light.desk"}},
	)
}

func TestMemory_UpdateEntity(t *testing.T) {
	ctx := context.Background()

	t.Run("renames and relabels", func(t *testing.T) {
		m := newTestMemory()
		err := m.UpdateEntity(ctx, "light.desk", EntityUpdate{
			NewIdentifier: "light.office_desk_lamp_light",
			Name:          "Office Desk Lamp Light",
			Labels:        []string{MarkerTag},
		})
		if err != nil {
			t.Fatalf("UpdateEntity() error = %v", err)
		}

		snap, _ := m.Snapshot(ctx)
		if _, ok := snap.Entity("light.desk"); ok {
			t.Error("old identifier still present")
		}
		e, ok := snap.Entity("light.office_desk_lamp_light")
		if !ok {
			t.Fatal("new identifier missing")
		}
		if e.Name != "Office Desk Lamp Light" || e.ReviewState() != Reviewed {
			t.Errorf("entity = %+v", e)
		}
		if _, ok := snap.State("light.office_desk_lamp_light"); !ok {
			t.Error("state did not follow rename")
		}
	})

	tests := []struct {
		name    string
		id      string
		update  EntityUpdate
		wantErr error
	}{
		{"unknown entity", "light.nope", EntityUpdate{Name: "x"}, ErrEntityNotFound},
		{"target taken", "light.desk", EntityUpdate{NewIdentifier: "light.taken"}, ErrEntityExists},
		{"invalid target", "light.desk", EntityUpdate{NewIdentifier: "nodot"}, ErrInvalidIdentifier},
		{"domain change", "light.desk", EntityUpdate{NewIdentifier: "switch.desk"}, ErrDomainChange},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := newTestMemory()
			err := m.UpdateEntity(ctx, tt.id, tt.update)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("UpdateEntity() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestMemory_SnapshotIsolated(t *testing.T) {
	ctx := context.Background()
	m := newTestMemory()

	before, _ := m.Snapshot(ctx)
	if err := m.UpdateEntity(ctx, "light.desk", EntityUpdate{Labels: []string{MarkerTag}}); err != nil {
		t.Fatalf("UpdateEntity() error = %v", err)
	}

	e, _ := before.Entity("light.desk")
	if e.ReviewState() != Unreviewed {
		t.Error("earlier snapshot observed a later update")
	}
}

func TestMemory_EnsureLabel(t *testing.T) {
	m := newTestMemory()
	if err := m.EnsureLabel(context.Background(), MarkerTag); err != nil {
		t.Fatalf("EnsureLabel() error = %v", err)
	}
	if err := m.EnsureLabel(context.Background(), MarkerTag); err != nil {
		t.Fatalf("EnsureLabel() second call error = %v", err)
	}
	if got := m.Labels(); len(got) != 1 || got[0] != MarkerTag {
		t.Errorf("Labels() = %v", got)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.yaml")
	content := `
areas:
  - id: office
    name: Office
devices:
  - id: dev-1
    name: Desk Lamp
    area_id: office
entities:
  - entity_id: light.desk
    id: r1
    device_id: dev-1
    labels: [maintained]
states:
  - entity_id: light.desk
    attributes:
      device_class: light
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("writing snapshot: %v", err)
	}

	m, err := LoadFile(path)
	if err != nil {
		t.Fatalf("LoadFile() error = %v", err)
	}
	snap, _ := m.Snapshot(context.Background())
	e, ok := snap.Entity("light.desk")
	if !ok || e.ReviewState() != Reviewed {
		t.Fatalf("entity = %+v, found = %v", e, ok)
	}
	if snap.DeviceClass("light.desk") != "light" {
		t.Errorf("DeviceClass() = %q", snap.DeviceClass("light.desk"))
	}

	t.Run("round trip", func(t *testing.T) {
		if err := m.UpdateEntity(context.Background(), "light.desk", EntityUpdate{NewIdentifier: "light.office_desk_lamp_light"}); err != nil {
			t.Fatalf("UpdateEntity() error = %v", err)
		}
		if err := m.WriteFile(path); err != nil {
			t.Fatalf("WriteFile() error = %v", err)
		}
		reloaded, err := LoadFile(path)
		if err != nil {
			t.Fatalf("LoadFile() after write error = %v", err)
		}
		snap, _ := reloaded.Snapshot(context.Background())
		if _, ok := snap.Entity("light.office_desk_lamp_light"); !ok {
			t.Error("renamed entity missing after reload")
		}
	})

	t.Run("rejects bad identifier", func(t *testing.T) {
		bad := filepath.Join(dir, "bad.yaml")
		if err := os.WriteFile(bad, []byte("entities:\n  - entity_id: nodot\n"), 0o600); err != nil {
			t.Fatalf("writing snapshot: %v", err)
		}
		if _, err := LoadFile(bad); !errors.Is(err, ErrInvalidSnapshot) {
			t.Errorf("LoadFile() error = %v, want ErrInvalidSnapshot", err)
		}
	})
}
