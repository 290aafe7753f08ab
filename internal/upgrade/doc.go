// Package upgrade is the release orchestration engine.
//
// A Coordinator holds the configured providers, each Provider groups
// releases, and each Release binds exactly one fetcher, one installer and
// any number of post-installers resolved through an action.Registry.
//
// A release is upgraded only when its fetcher offers a candidate newer than
// what its installer reports; installed versions newer than the candidate are
// never downgraded. The pipeline runs inside a temporary workspace and every
// action built for the release is cleaned up exactly once, in reverse
// construction order, before the workspace is removed.
package upgrade
