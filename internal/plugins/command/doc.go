// Package command provides the "command" post-installer, which runs an
// external program once a release is installed.
package command
