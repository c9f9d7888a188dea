// Package encoding drives the rip-and-transcode pipeline.
//
// A single ripper worker owns the disc drive and encodes CDDA tracks to FLAC
// sequentially; each successfully ripped track is handed to its own
// transcoder worker, which decodes to WAV and encodes to MP3, correcting
// encoder-detected clipping with a bounded re-encode loop. Workers report
// through a priority-ordered status queue: lower priorities are delivered
// first, and the terminal message is only enqueued after every worker has
// been joined and is only observable after all other messages have been
// consumed.
//
// Per-track state lives in an explicit forward-only state machine so a stale
// or out-of-order update can never corrupt recorded status: illegal
// transitions are dropped as no-ops.
package encoding
