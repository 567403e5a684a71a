// Package overrides stores user-chosen names for areas, devices and entities.
//
// Overrides are keyed by registry ids, never by entity identifiers, so they
// survive renames. The Store keeps the whole document in memory and writes
// it through to a Backend after every mutation.
//
// # Document Layout
//
//	{
//	  "areas":    {"<area_id>":     {"name": "Büro"}},
//	  "devices":  {"<device_id>":   {"name": "Desk Lamp"}},
//	  "entities": {"<registry_id>": {"name": "Deckenlampe", "type": "light"}}
//	}
//
// # Backends
//
//   - FileBackend: a JSON file, replaced atomically on save
//   - SQLiteBackend: a single row in the service database
//
// # Thread Safety
//
// Writers are serialised by a mutex. Readers load an immutable document
// through an atomic pointer and never block. Concurrent edits are not
// merged; the last writer wins.
package overrides
