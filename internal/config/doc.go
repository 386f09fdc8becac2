// Package config loads and validates the chime configuration file.
//
// Configuration lives at ~/.config/chime/config.toml. Load applies defaults
// for anything the file omits, expands ~ in path fields, and rejects invalid
// values before any other subsystem sees them. The daemon re-runs the same
// load-and-validate path on a reload command, keeping its previous
// configuration when the new file fails validation.
package config
