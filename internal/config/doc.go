// Package config provides configuration structures and utilities for pwasmoke.
// It defines the options for checking project roots, the optional .pwasmoke
// YAML file, project root discovery and report output preferences.
package config
