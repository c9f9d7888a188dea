// Package disc models a disc's table of contents.
//
// A TOC is read once from the inserted disc and never mutated afterwards; it
// both keys the persisted metadata snapshot (via the disc fingerprint) and
// sanity-checks catalog responses during aggregation.
package disc
