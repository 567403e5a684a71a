// Package homeassistant talks to the Home Assistant websocket API.
//
// The Client implements registry.Source, registry.Mutator and
// registry.LabelEnsurer, so the analyzer and applier can run against a live
// installation.
//
//	entitymanager                     Home Assistant
//	    │  dial /api/websocket              │
//	    │◀──────── auth_required ───────────│
//	    │───────── auth {token} ───────────▶│
//	    │◀──────── auth_ok ─────────────────│
//	    │───────── {id:1, type:...} ───────▶│
//	    │◀──────── {id:1, type:result} ─────│
//
// Commands carry increasing ids and results are matched back by id, so
// several commands may be in flight on one connection. A dropped
// connection is redialled on the next command.
package homeassistant
