// Package lister prints the installed and candidate versions of configured releases.
package lister
