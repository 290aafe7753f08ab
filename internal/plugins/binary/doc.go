// Package binary provides the "binary" installer, which atomically replaces
// a single executable and keeps an install record next to it.
package binary
