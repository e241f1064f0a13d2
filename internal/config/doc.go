// Package config loads, validates, and normalizes daemon configuration.
//
// Configuration lives in a TOML file (~/.config/mural/config.toml by default,
// with ./mural.toml as a project-local override). Load applies repository
// defaults first, then file values, then normalization (home expansion,
// absolute paths, derived defaults) and validation. All duration-valued
// options are stored as integer seconds in the file and exposed as
// time.Duration accessors.
package config
