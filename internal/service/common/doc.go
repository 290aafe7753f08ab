// Package common holds the bootstrap shared by the list and install services.
//
// It resolves the configuration path, registers the built-in actions and
// builds the upgrade coordinator over the loaded document.
//
//nolint:revive,nolintlint // Package name "common" is intentional for shared helpers.
package common
