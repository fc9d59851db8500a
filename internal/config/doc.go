// Package config loads and validates the TOML configuration controlling
// directories, external tool binaries, encode settings, and logging.
package config
