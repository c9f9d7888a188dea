// Package preflight verifies the runtime environment before a rip starts:
// encoder binaries on PATH, library and scratch directories writable with
// enough free space, and the metadata services reachable.
package preflight
