// Package services holds the shared plumbing for platter's external tool
// clients: command execution, sentinel error markers, and error wrapping.
//
// The concrete clients live in subpackages (flac, lame, discid). All of them
// run synchronous, blocking subprocesses whose combined output is captured to
// a caller-supplied writer; nothing beyond exit status and log text is ever
// inspected.
package services
