// Package logging assembles the structured slog loggers used across
// platter's subsystems.
//
// It centralizes level parsing, output routing, and attribute helpers so the
// aggregation, pipeline, and CLI layers emit log lines with the same shape.
// Prefer these constructors over hand-rolled slog setup; NewNop returns a
// discard logger for tests and wiring code that cannot fail.
package logging
