// Package review runs batch analysis and applies renames.
//
// An Analyzer walks a registry snapshot and proposes a new identifier for
// every entity that passes the review filters. An Applier takes those
// proposals, renames entities through a registry.Mutator and marks each one
// reviewed by adding registry.MarkerTag.
//
// Per-entity failures never stop a batch. They are collected in the Report
// next to the entities that were processed or skipped.
package review
