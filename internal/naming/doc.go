// Package naming maps finalized track metadata onto library paths. A Scheme
// renders the configured folder and filename templates, optionally rewrites
// the result into a filesystem-safe form, and computes the alphabet-trie
// bucket directories that fan large libraries out under the library root.
package naming
