// Package upgrader installs outdated releases, or the ones named on the
// command line.
//
// A marker file in the XDG state directory keeps two runs from installing
// at the same time. A marker older than MarkerLifetime is considered left
// over by a crashed run and is removed.
package upgrader
