package overrides

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"
)

// Logger defines the logging interface used by the Store.
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

// Backend persists the encoded override document.
//
// Load returns ErrNoDocument when nothing has been stored yet.
type Backend interface {
	Load(ctx context.Context) ([]byte, error)
	Save(ctx context.Context, data []byte) error
}

// LoadStatus describes what Load found in the backend.
type LoadStatus int

// Load outcomes.
const (
	// LoadOK means a complete document was read.
	LoadOK LoadStatus = iota
	// LoadEmpty means the backend held no document.
	LoadEmpty
	// LoadRepaired means the document lacked one or more sections.
	LoadRepaired
	// LoadFailed means the backend could not be read or decoded.
	LoadFailed
)

// String returns a short description of the status.
func (s LoadStatus) String() string {
	switch s {
	case LoadOK:
		return "ok"
	case LoadEmpty:
		return "empty"
	case LoadRepaired:
		return "repaired"
	default:
		return "failed"
	}
}

// Store holds overrides in memory and writes them through to a Backend.
type Store struct {
	backend Backend
	mu      sync.Mutex // serialises writers
	doc     atomic.Pointer[Document]
	synced  []byte // last bytes loaded or saved, guarded by mu
	logger  Logger
}

// NewStore creates an empty store on top of backend.
// Call Load to read any persisted document.
func NewStore(backend Backend) *Store {
	s := &Store{
		backend: backend,
		logger:  noopLogger{},
	}
	s.doc.Store(NewDocument())
	return s
}

// SetLogger sets the logger for the store.
func (s *Store) SetLogger(logger Logger) {
	s.logger = logger
}

// Load replaces the in-memory document with the persisted one.
//
// It never fails: an unreadable or undecodable backend leaves the store
// empty and is logged. Missing sections are added in memory and written
// back with the next mutation.
func (s *Store) Load(ctx context.Context) LoadStatus {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.backend.Load(ctx)
	return s.apply(data, err)
}

// ReloadIfChanged loads the backend only when its content differs from
// what the store last loaded or saved, so the store's own writes do not
// trigger a reload. It reports whether a reload happened.
func (s *Store) ReloadIfChanged(ctx context.Context) (LoadStatus, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := s.backend.Load(ctx)
	if err == nil && s.synced != nil && bytes.Equal(data, s.synced) {
		return LoadOK, false
	}
	return s.apply(data, err), true
}

// apply replaces the document with the result of a backend load.
// Callers hold mu.
func (s *Store) apply(data []byte, err error) LoadStatus {
	s.synced = nil
	switch {
	case errors.Is(err, ErrNoDocument):
		s.doc.Store(NewDocument())
		s.logger.Info("no naming overrides stored, starting empty")
		return LoadEmpty
	case err != nil:
		s.doc.Store(NewDocument())
		s.logger.Warn("reading naming overrides failed, starting empty", "error", err)
		return LoadFailed
	}

	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		s.doc.Store(NewDocument())
		s.logger.Warn("decoding naming overrides failed, starting empty", "error", err)
		return LoadFailed
	}
	s.synced = bytes.Clone(data)

	status := LoadOK
	if doc.repair() {
		status = LoadRepaired
		s.logger.Warn("naming overrides document incomplete, missing sections added")
	}
	s.doc.Store(&doc)

	s.logger.Info("naming overrides loaded",
		"areas", len(doc.Areas),
		"devices", len(doc.Devices),
		"entities", len(doc.Entities),
	)
	return status
}

// Snapshot returns the current document. It must not be modified.
func (s *Store) Snapshot() *Document {
	return s.doc.Load()
}

// All returns a deep copy of the current document.
func (s *Store) All() *Document {
	return s.doc.Load().Clone()
}

// Area returns the override for an area id.
func (s *Store) Area(id string) (Record, bool) {
	return s.doc.Load().Area(id)
}

// Device returns the override for a device id.
func (s *Store) Device(id string) (Record, bool) {
	return s.doc.Load().Device(id)
}

// Entity returns the override for an entity registry id.
func (s *Store) Entity(registryID string) (Record, bool) {
	return s.doc.Load().Entity(registryID)
}

// Get returns the override of the given kind.
func (s *Store) Get(kind Kind, id string) (Record, bool) {
	section := s.doc.Load().Section(kind)
	return lookup(section, id)
}

// SetArea sets the display name for an area.
func (s *Store) SetArea(ctx context.Context, areaID, name string) error {
	return s.Set(ctx, KindArea, areaID, Record{Name: name})
}

// SetDevice sets the display name for a device.
func (s *Store) SetDevice(ctx context.Context, deviceID, name string) error {
	return s.Set(ctx, KindDevice, deviceID, Record{Name: name})
}

// SetEntity sets the type name for an entity. typ may be empty.
func (s *Store) SetEntity(ctx context.Context, registryID, name, typ string) error {
	return s.Set(ctx, KindEntity, registryID, Record{Name: name, Type: typ})
}

// Set stores an override and persists the document.
func (s *Store) Set(ctx context.Context, kind Kind, id string, rec Record) error {
	if strings.TrimSpace(id) == "" {
		return ErrInvalidID
	}
	if !strings.ContainsFunc(rec.Name, isAlphanumeric) {
		return ErrInvalidName
	}
	if kind != KindEntity {
		rec.Type = ""
	}

	return s.mutate(ctx, kind, func(doc *Document) (bool, error) {
		section := doc.Section(kind)
		if section == nil {
			return false, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
		}
		section[id] = rec
		return true, nil
	})
}

// RemoveArea removes an area override.
func (s *Store) RemoveArea(ctx context.Context, areaID string) (bool, error) {
	return s.Remove(ctx, KindArea, areaID)
}

// RemoveDevice removes a device override.
func (s *Store) RemoveDevice(ctx context.Context, deviceID string) (bool, error) {
	return s.Remove(ctx, KindDevice, deviceID)
}

// RemoveEntity removes an entity override.
func (s *Store) RemoveEntity(ctx context.Context, registryID string) (bool, error) {
	return s.Remove(ctx, KindEntity, registryID)
}

// Remove deletes an override. Removing an absent override is a no-op that
// reports false and does not persist.
func (s *Store) Remove(ctx context.Context, kind Kind, id string) (bool, error) {
	removed := false
	err := s.mutate(ctx, kind, func(doc *Document) (bool, error) {
		section := doc.Section(kind)
		if section == nil {
			return false, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
		}
		if _, ok := section[id]; !ok || id == "" {
			return false, nil
		}
		delete(section, id)
		removed = true
		return true, nil
	})
	return removed, err
}

// ClearAll removes every override and persists the empty document.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	doc := NewDocument()
	s.doc.Store(doc)
	s.logger.Info("naming overrides cleared")
	return s.save(ctx, doc)
}

// mutate applies fn to a copy of the document under the writer lock.
// The copy becomes current before it is saved, so a failed save still
// leaves the change visible to readers.
func (s *Store) mutate(ctx context.Context, kind Kind, fn func(*Document) (bool, error)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := s.doc.Load().Clone()
	changed, err := fn(next)
	if err != nil || !changed {
		return err
	}

	s.doc.Store(next)
	s.logger.Debug("naming override changed", "kind", string(kind))
	return s.save(ctx, next)
}

func (s *Store) save(ctx context.Context, doc *Document) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("%w: encoding: %w", ErrSaveFailed, err)
	}
	if err := s.backend.Save(ctx, data); err != nil {
		s.logger.Error("saving naming overrides failed", "error", err)
		return fmt.Errorf("%w: %w", ErrSaveFailed, err)
	}
	s.synced = data
	return nil
}

// isAlphanumeric reports whether r is a letter or digit. A name without any
// has nothing left to build an identifier from.
func isAlphanumeric(r rune) bool {
	return unicode.IsLetter(r) || unicode.IsDigit(r)
}
