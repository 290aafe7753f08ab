// Package plugins assembles the actions shipped with easy-upgrade.
package plugins
