// SPDX-License-Identifier: MPL-2.0

// Package config handles bundlecheck configuration using Viper with CUE as the file format.
//
// Configuration is loaded from $XDG_CONFIG_HOME/bundlecheck/config.cue (~/.config on
// Linux, ~/Library/Application Support on macOS), from ./config.cue as a fallback, or
// from an explicit --config path. Every key can also be overridden from the environment
// with the BUNDLECHECK_ prefix (e.g. BUNDLECHECK_WORK_DIR).
//
// Files are validated against the embedded CUE schema (config_schema.cue) before being
// merged over the defaults, so a typo in a key or an invalid version is reported with
// its CUE path instead of being silently ignored.
package config
