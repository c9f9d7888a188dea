// Package discid wraps the external disc fingerprint tool.
//
// The fingerprint keys the persisted metadata snapshot and the
// fingerprint-based catalog lookup. The tool receives the TOC as arguments
// and prints the id on its first output line.
package discid
