// Package naming derives canonical entity identifiers and friendly names.
//
// Every identifier is rebuilt as domain.area_device_type from a registry
// Snapshot, with overrides taking precedence over registry names.
//
// # Architecture
//
//	┌────────────────────────────────────────────────────────────────┐
//	│                          Resolver                              │
//	│                                                                │
//	│  ┌──────────────┐   ┌──────────────┐   ┌──────────────────┐    │
//	│  │ AreaStrategy │   │  Classifier  │   │    Normalize     │    │
//	│  │  (area.go)   │   │(classifier.go│   │  (normalize.go)  │    │
//	│  │              │   │  + TypeTable)│   │                  │    │
//	│  │ • registry   │   │ • fixed      │   │ • umlaut folding │    │
//	│  │ • legacy     │   │ • by class   │   │ • slug tokens    │    │
//	│  │   room guess │   │ • name scan  │   │                  │    │
//	│  └──────────────┘   └──────────────┘   └──────────────────┘    │
//	└────────────────────────────────────────────────────────────────┘
//	           │                                   │
//	           ▼                                   ▼
//	  registry.Snapshot                     Overrides (areas,
//	  (areas, devices,                      devices, entities)
//	   entities, states)
//
// # Purity
//
// Resolve is a pure function of its inputs. It keeps no state between
// calls and is safe for concurrent use, provided the snapshot and the
// overrides are not being mutated at the same time.
package naming
