// Package config provides the run configuration of tldcrawl: defaults,
// validation, the YAML config file with per-domain overrides, and the XDG
// directories used for the history database.
package config
