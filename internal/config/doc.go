// Package config loads the effective loci configuration. Built-in
// defaults are layered under an optional TOML file, a .env file and
// LOCI_* environment variables, in that order of increasing
// precedence. The resulting Config is plain data; adapters receive
// the slices of it they need at wiring time.
package config
