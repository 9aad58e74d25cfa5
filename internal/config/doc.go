// Package config defines the deploy settings and provides helpers to load,
// validate and save them in YAML format.
//
// A Config value is resolved once per run and passed by value into every
// step, so tests can point the tool at fake executables and temp directories.
package config
