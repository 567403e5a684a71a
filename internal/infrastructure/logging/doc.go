// Package logging provides structured logging for the entity manager.
//
// This package wraps Go's standard log/slog package so every component
// logs the same way.
//
// # Features
//
//   - JSON output for production (machine-parsable)
//   - Text output for interactive CLI use
//   - Default fields (service, version) on all log entries
//   - Level-based filtering (debug, info, warn, error)
//
// # Configuration
//
//	logging:
//	  level: "info"      # debug, info, warn, error
//	  format: "json"     # json, text
//	  output: "stdout"   # stdout, stderr, discard
//
// # Usage
//
//	logger := logging.New(cfg.Logging, "1.0.0")
//	logger.Info("rename applied", "entity_id", "light.kitchen_ceiling_light")
//
// Never log the Home Assistant token.
package logging
