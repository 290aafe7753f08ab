// Package s3 provides the "objects" fetcher for the s3 provider.
//
// A bucket holds one directory per version under a release prefix:
//
//	<prefix><version>/<files...>
//
// The candidate version is the greatest parsable directory name and a fetch
// downloads every object of that directory.
package s3
