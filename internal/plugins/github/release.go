package github

import "time"

// Release is the part of a GitHub release the fetcher uses.
type Release struct {
	TagName     string    `json:"tag_name"`
	Name        string    `json:"name"`
	Draft       bool      `json:"draft"`
	Prerelease  bool      `json:"prerelease"`
	PublishedAt time.Time `json:"published_at"`
	Assets      []Asset   `json:"assets"`
}

// Asset is a file attached to a release.
type Asset struct {
	Name               string `json:"name"`
	Label              string `json:"label"`
	ContentType        string `json:"content_type"`
	Size               int64  `json:"size"`
	BrowserDownloadURL string `json:"browser_download_url"`
}

// Executable reports whether the asset is served as a raw binary.
func (a Asset) Executable() bool {
	return a.ContentType == "application/octet-stream"
}

// celValue exposes the asset to filter expressions.
func (a Asset) celValue() map[string]any {
	return map[string]any{
		"name":         a.Name,
		"label":        a.Label,
		"content_type": a.ContentType,
		"size":         a.Size,
		"url":          a.BrowserDownloadURL,
	}
}

// Latest returns the most recently published eligible release, or nil.
func Latest(releases []Release, withPrerelease, withDraft bool) *Release {
	var latest *Release

	for i := range releases {
		r := &releases[i]

		if r.Prerelease && !withPrerelease {
			continue
		}

		if r.Draft && !withDraft {
			continue
		}

		if latest == nil || r.PublishedAt.After(latest.PublishedAt) {
			latest = r
		}
	}

	return latest
}
