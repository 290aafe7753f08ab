// Package action defines the three pipeline roles (fetcher, installer,
// post-installer) and the Registry plugins register their actions into.
//
// A Registry is populated once at startup and then only read. Each action is
// registered under a (role, name) pair together with the providers allowed to
// use it and a Factory building instances bound to one release.
package action
