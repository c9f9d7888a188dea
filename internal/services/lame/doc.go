// Package lame wraps the lame(1) MP3 encoder.
//
// Besides the lossy encode step (including clipping-correction re-encodes at
// a reduced scale), it exposes the encoder's controlled genre vocabulary,
// which the metadata aggregator appends to every genre candidate list.
package lame
