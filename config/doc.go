// Package config loads nameres settings from a YAML file, a .env file and
// NAMERES_* environment variables, in that order of precedence (lowest first).
// Command-line flags are applied on top by the CLI.
package config
