// Package config loads the easy-upgrade YAML document.
//
// The document maps provider names to provider sections, each holding a
// "releases" mapping. Declaration order of providers and releases is kept.
// Free-form settings are exposed as Values, which plugins decode into their
// own structs.
package config
