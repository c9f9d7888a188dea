// Package flac wraps the flac(1) reference encoder for the lossless encode
// and decode steps of the pipeline.
package flac
