// Package stow provides the "stow" installer.
//
// Each version is copied into its own package directory
// <path>/stow/<package>-<version> and, when activated, GNU stow (or xstow)
// links it into <path> after unlinking every other version.
package stow
