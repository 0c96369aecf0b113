// Package config loads, normalizes, and validates bindery's TOML configuration.
package config
