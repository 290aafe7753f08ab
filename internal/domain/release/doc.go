// Package release holds the value types shared by the upgrade engine and its
// plugins: comparable versions, the installed/candidate pair reported for a
// package, and the record installers persist after a successful install.
package release
