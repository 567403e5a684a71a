// Package manager ties the naming pipeline to a live or offline registry.
//
// The Service is what the HTTP API, the CLI and the MQTT command handler
// call. Every operation fetches a fresh registry snapshot, so results always
// reflect the host's current state:
//
//	┌────────────┐   Snapshot   ┌──────────┐   Analyze   ┌──────────┐
//	│  registry  │─────────────▶│ Service  │────────────▶│ Analyzer │
//	│  Source    │              │          │             └──────────┘
//	└────────────┘              │          │   Apply     ┌──────────┐
//	┌────────────┐  overrides   │          │────────────▶│ Applier  │──▶ Observers
//	│   Store    │─────────────▶│          │             └──────────┘
//	└────────────┘              └──────────┘
package manager
