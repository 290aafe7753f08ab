// Package github provides the "asset" fetcher for the "github" provider.
//
// Releases are named owner/repo. The candidate version is taken from the most
// recently published release allowed by the with-prerelease and with-draft
// release settings, and fetching downloads the release assets selected by
// name and by an optional CEL filter.
package github
