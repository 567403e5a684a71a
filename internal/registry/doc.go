// Package registry models the host's area, device and entity registries as
// seen by the entity manager.
//
// The host owns these records. The entity manager only ever works on a
// point-in-time Snapshot of them and asks the host to change an entity
// through a Mutator. Nothing in the naming or review packages keeps a
// Snapshot between calls.
//
// # Key Types
//
//   - Snapshot: immutable areas, devices, entities and states for one pass
//   - Source: anything that can produce a Snapshot (websocket client, file)
//   - Mutator: applies an EntityUpdate to a single entity
//   - Memory: an in-process registry implementing Source and Mutator, used
//     for offline snapshot files and tests
//
// # Review State
//
// An entity counts as reviewed when its label set contains MarkerTag.
// Callers should use Entity.ReviewState rather than comparing labels.
package registry
