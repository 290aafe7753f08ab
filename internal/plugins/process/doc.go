// Package process provides the "terminate-process" post-installer.
package process
