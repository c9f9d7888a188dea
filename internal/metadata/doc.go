// Package metadata aggregates album and track metadata for one disc.
//
// Candidate values for every field are kept as ordered, de-duplicated lists
// with index 0 the most preferred value. Collectors (the persisted snapshot
// plus the remote catalogs) each produce a Record; the Aggregator folds them
// into one consolidated Record under fixed precedence rules, with the
// persisted snapshot always evaluated first and authoritative for the
// human-authored fields no catalog can provide.
package metadata
