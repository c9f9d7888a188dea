// Package journal persists rip sessions in SQLite. Each session records the
// disc fingerprint, album identity, and per-track encoding outcomes, so
// completed and failed rips survive restarts and can be listed or resumed
// from the command line.
package journal
