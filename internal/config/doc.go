// Package config loads and validates platter's TOML configuration.
//
// Configuration is explicit and dependency-injected: Load produces a Config
// value that constructors receive directly, there is no ambient global state.
// Defaults live in defaults.go, path expansion and normalization in
// normalize.go, and validation in validate.go. The embedded sample config is
// written by "platter config init".
package config
